package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rmfernandez/acadguard/internal/auth"
	"github.com/rmfernandez/acadguard/internal/database"
	"github.com/rmfernandez/acadguard/internal/handlers"
	"github.com/rmfernandez/acadguard/internal/middleware"
	"github.com/rmfernandez/acadguard/internal/models"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	notificationHandler *handlers.NotificationHandler,
	adminHandler *handlers.AdminHandler,
	tokenManager *auth.TokenManager,
	accountRepo auth.AccountRepository,
	db *database.DB,
) {
	router.Get("/health", healthHandler(db))

	// Public routes, credential responses must never be cached
	router.Group(func(r chi.Router) {
		r.Use(middleware.NoCache)
		loginLimit := middleware.RateLimitByIP(middleware.DefaultLoginRateLimit())
		r.With(loginLimit).Post("/auth/login", authHandler.Login)
		r.With(loginLimit).Post("/auth/refresh", authHandler.Refresh)
	})

	// Authenticated routes
	router.Group(func(r chi.Router) {
		r.Use(middleware.NoCache)
		r.Use(auth.Middleware(tokenManager))

		r.Post("/auth/logout", authHandler.Logout)
		r.Post("/auth/change-password", authHandler.ChangePassword)

		// Admin-only security surface
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(accountRepo, models.RoleAdmin))
			r.Use(middleware.RateLimitByIP(middleware.DefaultAdminRateLimit()))

			r.Get("/admin/notifications", notificationHandler.List)
			r.Get("/admin/notifications/stats", notificationHandler.Stats)
			r.Post("/admin/notifications/{id}/read", notificationHandler.MarkRead)
			r.Post("/admin/notifications/{id}/resolve", notificationHandler.Resolve)

			r.Get("/admin/audit-events", adminHandler.ListAuditEvents)
			r.Post("/admin/accounts/{handle}/unlock", adminHandler.UnlockAccount)
			r.Post("/admin/ips/{ip}/unblock", adminHandler.UnblockIP)
		})
	})
}

func healthHandler(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
