package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rmfernandez/acadguard/internal/auth"
	"github.com/rmfernandez/acadguard/internal/background"
	"github.com/rmfernandez/acadguard/internal/config"
	"github.com/rmfernandez/acadguard/internal/database"
	"github.com/rmfernandez/acadguard/internal/handlers"
	middlewareCustom "github.com/rmfernandez/acadguard/internal/middleware"
	"github.com/rmfernandez/acadguard/internal/models"
	"github.com/rmfernandez/acadguard/internal/repositories"
	"github.com/rmfernandez/acadguard/internal/routes"
	"github.com/rmfernandez/acadguard/internal/services"
	pkgauth "github.com/rmfernandez/acadguard/pkg/auth"
	pkghttp "github.com/rmfernandez/acadguard/pkg/http"
	pkglogger "github.com/rmfernandez/acadguard/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx); err != nil {
		migrateCancel()
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	migrateCancel()

	// Repositories
	accountRepo := repositories.NewAccountRepository(db)
	ipAttemptRepo := repositories.NewIPAttemptRepository(db)
	historyRepo := repositories.NewPasswordHistoryRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	auditRepo := repositories.NewAuditEventRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)

	// Token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	// Email delivery of lockout notices is optional
	var emailService services.EmailService = services.NoopEmailService{}
	if cfg.Email.Enabled {
		sesService, err := services.NewAWSSESEmailService(
			cfg.Email.AWSRegion,
			cfg.Email.FromAddress,
			cfg.Email.SendTimeout,
			logger,
		)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		emailService = sesService
	}

	// Services
	auditLogger := pkglogger.NewAuditLogger(logger)
	auditService := services.NewAuditService(auditRepo, auditLogger, logger)
	notificationService := services.NewNotificationService(notificationRepo, logger)
	sessionService := services.NewSessionService(sessionRepo, cfg.Security.SimultaneousAccessWindow)
	loginSecurity := services.NewLoginSecurityService(
		accountRepo,
		ipAttemptRepo,
		sessionService,
		auditService,
		notificationService,
		emailService,
		tokenManager,
		cfg.Security,
		logger,
	)
	passwordService := services.NewPasswordService(
		accountRepo,
		historyRepo,
		auditService,
		cfg.Security.ReuseHistoryWindow,
		logger,
	)

	// Handlers
	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	authHandler := handlers.NewAuthHandler(loginSecurity, passwordService, ipConfig)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	adminHandler := handlers.NewAdminHandler(loginSecurity, auditService, ipConfig)

	bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminAccount(bootstrapCtx, accountRepo, logger); err != nil {
		logger.Error("failed to ensure admin account", slog.Any("error", err))
	}
	bootstrapCancel()

	// Router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(middlewareCustom.AdminIPGuard(cfg.Server.AdminAllowedIPs, ipConfig, func(r *http.Request, ip string) {
		auditService.Record(r.Context(), services.SecurityEvent{
			Action:      models.ActionAdminIPDeny,
			TargetModel: "admin",
			Description: fmt.Sprintf("access to %s denied from address %s", r.URL.Path, ip),
			IPAddress:   ip,
			UserAgent:   r.UserAgent(),
		})
	}))

	routes.RegisterRoutes(router, authHandler, notificationHandler, adminHandler, tokenManager, accountRepo, db)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Background cleanup of stale sessions and expired IP records
	cleaner := background.NewCleaner(
		sessionService,
		ipAttemptRepo,
		cfg.Security.CleanupInterval,
		cfg.Security.SessionRetention,
		logger,
	)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go cleaner.Run(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")
	cleanupCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminAccount creates the first admin account when ADMIN_HANDLE,
// ADMIN_EMAIL and ADMIN_PASSWORD are set and no such account exists yet.
func ensureAdminAccount(ctx context.Context, accountRepo *repositories.AccountRepository, logger *slog.Logger) error {
	handle := os.Getenv("ADMIN_HANDLE")
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")

	if handle == "" || email == "" || password == "" {
		logger.Info("admin bootstrap variables not set, skipping admin account creation")
		return nil
	}

	_, err := accountRepo.GetByHandle(ctx, handle)
	if err == nil {
		logger.Info("admin account already exists", slog.String("handle", handle))
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("check admin account: %w", err)
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = accountRepo.Create(ctx, &models.Account{
		Handle:       handle,
		Email:        email,
		FullName:     "Administrator",
		Role:         models.RoleAdmin,
		PasswordHash: hash,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin account: %w", err)
	}

	logger.Info("admin account created", slog.String("handle", handle))
	return nil
}
