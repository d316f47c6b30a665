package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/rizkipratama/tierdocs/internal"
	"github.com/rizkipratama/tierdocs/internal/accesscode"
	accesscodePostgres "github.com/rizkipratama/tierdocs/internal/accesscode/postgres"
	"github.com/rizkipratama/tierdocs/internal/auth"
	authPostgres "github.com/rizkipratama/tierdocs/internal/auth/postgres"
	"github.com/rizkipratama/tierdocs/internal/document"
	documentPostgres "github.com/rizkipratama/tierdocs/internal/document/postgres"
	"github.com/rizkipratama/tierdocs/internal/identity"
	identityPostgres "github.com/rizkipratama/tierdocs/internal/identity/postgres"
	"github.com/rizkipratama/tierdocs/internal/storage"
	"github.com/rizkipratama/tierdocs/internal/transport/rest"
	"github.com/rizkipratama/tierdocs/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	GormDB *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger

	blobStore, err := initBlobStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize blob store: %w", err)
	}

	userRepo := identityPostgres.NewUserRepository(deps.GormDB)
	codeRepo := accesscodePostgres.NewAccessCodeRepository(deps.GormDB)
	docRepo := documentPostgres.NewDocumentRepository(deps.GormDB)
	accessLogRepo := documentPostgres.NewAccessLogRepository(deps.GormDB)
	registrationStore := authPostgres.NewRegistrationStore(deps.GormDB)

	tokenGen := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)

	authService := auth.NewService(registrationStore, userRepo, tokenGen,
		cfg.Security.BCryptCost, cfg.AccessPolicy.DefaultDepartment, lg)
	identityService := identity.NewService(userRepo, cfg.AccessPolicy.GlobalViewTier, lg)
	codeService := accesscode.NewService(codeRepo, userRepo, accesscode.Policy{
		DefaultExpiryDays: cfg.AccessPolicy.DefaultExpiryDays,
		MaxExpiryDays:     cfg.AccessPolicy.MaxExpiryDays,
		MaxUsesCap:        cfg.AccessPolicy.MaxUsesCap,
	}, lg)
	documentService := document.NewService(docRepo, accessLogRepo, userRepo, blobStore, lg)

	rest.RegisterAllRoutes(
		deps.Router,
		deps.DB.DB,
		cfg.Server.AllowedOrigins,
		auth.NewHandler(authService),
		identity.NewHandler(identityService),
		accesscode.NewHandler(codeService),
		document.NewHandler(documentService),
		lg,
	)
	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGormDB(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	return &Dependencies{
		Config: config,
		Logger: logger.LoggerWrapper(),
		DB:     db,
		GormDB: gormDB,
		Router: chi.NewRouter(),
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGormDB layers GORM over the already-open pgx connection pool.
func initGormDB(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{})
}

// initBlobStore picks S3 when an endpoint or credentials are configured and
// falls back to the in-process store for local development.
func initBlobStore(cfg internal.StorageConfig) (storage.BlobStore, error) {
	if cfg.S3AccessKey == "" && cfg.S3BaseEndpoint == "" {
		return storage.NewMemoryStore(), nil
	}
	return storage.NewS3Store(context.Background(), cfg)
}
