package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/rizkipratama/tierdocs/internal/accesscode"
	"github.com/rizkipratama/tierdocs/internal/auth"
	"github.com/rizkipratama/tierdocs/internal/document"
	"github.com/rizkipratama/tierdocs/internal/identity"
	"github.com/rizkipratama/tierdocs/internal/transport/middleware"
	"github.com/rizkipratama/tierdocs/internal/transport/swagger"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, allowedOrigins string, authHandler *auth.Handler, identityHandler *identity.Handler, codeHandler *accesscode.Handler, documentHandler *document.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	tier := auth.NewTierAuthorization(logger)

	// Apply global middleware
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		if authHandler != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/register", authHandler.Register)
				sr.Post("/login", authHandler.Login)
				sr.Post("/refresh", authHandler.RefreshToken)
				sr.Post("/logout", authHandler.Logout)
			})

			// Protected routes that require authentication
			r.Group(func(pr chi.Router) {
				pr.Use(authHandler.AuthMiddleware)
				pr.Use(tier.RequireAuthenticated())

				if identityHandler != nil {
					pr.Get("/users/me", identityHandler.Me)
					pr.Get("/users/subordinates", identityHandler.Subordinates)
					pr.Get("/users/organization-tree", identityHandler.OrganizationTree)
					pr.Post("/users/{userID}/deactivate", identityHandler.Deactivate)
				}

				if codeHandler != nil {
					pr.Route("/access-codes", func(cr chi.Router) {
						cr.Post("/", codeHandler.Generate)
						cr.Get("/", codeHandler.ListIssued)
						cr.Get("/{code}/redemptions", codeHandler.ListRedemptions)
					})
				}

				if documentHandler != nil {
					pr.Route("/documents", func(dr chi.Router) {
						dr.Post("/", documentHandler.Upload)
						dr.Get("/", documentHandler.List)
						dr.Get("/history", documentHandler.MyHistory)
						dr.Get("/{documentID}", documentHandler.View)
						dr.Get("/{documentID}/download", documentHandler.Download)
						dr.Get("/{documentID}/can-access", documentHandler.CanAccess)
						dr.Get("/{documentID}/history", documentHandler.History)
						dr.Delete("/{documentID}", documentHandler.Delete)
					})
				}
			})
		}
	})
}
