package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Storage       StorageConfig       `mapstructure:"storage"`
	AccessPolicy  AccessPolicyConfig  `mapstructure:"access_policy"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	AccessTokenSecret    string        `mapstructure:"access_token_secret" validate:"required,min=32"`
	RefreshTokenSecret   string        `mapstructure:"refresh_token_secret" validate:"required,min=32"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration" validate:"required,min=1m,max=1h"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" validate:"required,min=1h"`
	BCryptCost           int           `mapstructure:"bcrypt_cost" validate:"required,min=10,max=15"`
}

// StorageConfig points at the S3-compatible blob store holding document contents.
type StorageConfig struct {
	S3Region       string `mapstructure:"s3_region"`
	S3BaseEndpoint string `mapstructure:"s3_base_endpoint"`
	S3Bucket       string `mapstructure:"s3_bucket"`
	S3AccessKey    string `mapstructure:"s3_access_key"`
	S3SecretKey    string `mapstructure:"s3_secret_key"`
}

// AccessPolicyConfig carries the tunable rules of the invitation and
// visibility engine. Zero values fall back to the documented defaults.
type AccessPolicyConfig struct {
	DefaultExpiryDays int    `mapstructure:"default_expiry_days"`
	MaxExpiryDays     int    `mapstructure:"max_expiry_days"`
	MaxUsesCap        int    `mapstructure:"max_uses_cap"`
	GlobalViewTier    int    `mapstructure:"global_view_tier"`
	DefaultDepartment string `mapstructure:"default_department"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

const (
	DefaultExpiryDays    = 30
	DefaultMaxExpiryDays = 365
	DefaultMaxUsesCap    = 100
	DefaultGlobalTier    = 2
	DefaultDepartment    = "General"
)

// ----------------- DEFAULTS -----------------

func (c *AccessPolicyConfig) ApplyDefaults() {
	if c.DefaultExpiryDays <= 0 {
		c.DefaultExpiryDays = DefaultExpiryDays
	}
	if c.MaxExpiryDays <= 0 {
		c.MaxExpiryDays = DefaultMaxExpiryDays
	}
	if c.MaxUsesCap <= 0 {
		c.MaxUsesCap = DefaultMaxUsesCap
	}
	if c.GlobalViewTier <= 0 {
		c.GlobalViewTier = DefaultGlobalTier
	}
	if c.DefaultDepartment == "" {
		c.DefaultDepartment = DefaultDepartment
	}
}

// ----------------- ENV LOADING -----------------

func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_SERVER_PORT", 8080),
			BaseURL:           getEnv("HTTP_SERVER_BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("HTTP_SERVER_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_SERVER_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_SERVER_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_SERVER_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DATABASE_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_SOURCE", ""),
		},
		Security: SecurityConfig{
			AccessTokenSecret:    getEnv("SECURITY_ACCESS_TOKEN_SECRET", ""),
			RefreshTokenSecret:   getEnv("SECURITY_REFRESH_TOKEN_SECRET", ""),
			AccessTokenDuration:  getEnvAsDuration("SECURITY_ACCESS_TOKEN_DURATION", 15*time.Minute),
			RefreshTokenDuration: getEnvAsDuration("SECURITY_REFRESH_TOKEN_DURATION", 7*24*time.Hour),
			BCryptCost:           getEnvAsInt("SECURITY_BCRYPT_COST", 12),
		},
		Storage: StorageConfig{
			S3Region:       getEnv("STORAGE_S3_REGION", "us-east-1"),
			S3BaseEndpoint: getEnv("STORAGE_S3_BASE_ENDPOINT", ""),
			S3Bucket:       getEnv("STORAGE_S3_BUCKET", "tierdocs"),
			S3AccessKey:    getEnv("STORAGE_S3_ACCESS_KEY", ""),
			S3SecretKey:    getEnv("STORAGE_S3_SECRET_KEY", ""),
		},
		AccessPolicy: AccessPolicyConfig{
			DefaultExpiryDays: getEnvAsInt("ACCESS_POLICY_DEFAULT_EXPIRY_DAYS", DefaultExpiryDays),
			MaxExpiryDays:     getEnvAsInt("ACCESS_POLICY_MAX_EXPIRY_DAYS", DefaultMaxExpiryDays),
			MaxUsesCap:        getEnvAsInt("ACCESS_POLICY_MAX_USES_CAP", DefaultMaxUsesCap),
			GlobalViewTier:    getEnvAsInt("ACCESS_POLICY_GLOBAL_VIEW_TIER", DefaultGlobalTier),
			DefaultDepartment: getEnv("ACCESS_POLICY_DEFAULT_DEPARTMENT", DefaultDepartment),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("OBSERVABILITY_LOGGING_LEVEL", "info"),
				Format: getEnv("OBSERVABILITY_LOGGING_FORMAT", "json"),
			},
		},
	}

	cfg.AccessPolicy.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.AccessPolicy.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("access policy config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.AccessTokenSecret) < 32 {
		return errors.New("access token secret must be at least 32 characters")
	}
	if len(c.RefreshTokenSecret) < 32 {
		return errors.New("refresh token secret must be at least 32 characters")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("access and refresh token secrets must differ")
	}
	return nil
}

func (c *AccessPolicyConfig) Validate() error {
	c.ApplyDefaults()
	if c.DefaultExpiryDays > c.MaxExpiryDays {
		return errors.New("default_expiry_days cannot exceed max_expiry_days")
	}
	if c.GlobalViewTier < 1 {
		return errors.New("global_view_tier must be >= 1")
	}
	return nil
}
