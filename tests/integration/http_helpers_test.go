package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/rmfernandez/acadguard/internal/auth"
	"github.com/rmfernandez/acadguard/internal/config"
	"github.com/rmfernandez/acadguard/internal/handlers"
	middlewareCustom "github.com/rmfernandez/acadguard/internal/middleware"
	"github.com/rmfernandez/acadguard/internal/repositories"
	"github.com/rmfernandez/acadguard/internal/routes"
	"github.com/rmfernandez/acadguard/internal/services"
	pkghttp "github.com/rmfernandez/acadguard/pkg/http"
	pkglogger "github.com/rmfernandez/acadguard/pkg/logger"
)

// TestServer wires the full HTTP stack against the shared test database.
type TestServer struct {
	Server       *httptest.Server
	TokenManager *auth.TokenManager
	Accounts     *repositories.AccountRepository
	Email        *services.MockEmailService
}

// NewTestServer builds the router the way cmd/api does, minus rate
// limiting knobs that would interfere with repeated test requests.
func NewTestServer(cfg config.SecurityConfig) *TestServer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	accounts := repositories.NewAccountRepository(testDB.DB)
	ips := repositories.NewIPAttemptRepository(testDB.DB)
	history := repositories.NewPasswordHistoryRepository(testDB.DB)
	sessions := repositories.NewSessionRepository(testDB.DB)
	auditRepo := repositories.NewAuditEventRepository(testDB.DB)
	notificationRepo := repositories.NewNotificationRepository(testDB.DB)

	auditService := services.NewAuditService(auditRepo, pkglogger.NewAuditLogger(logger), logger)
	notificationService := services.NewNotificationService(notificationRepo, logger)
	sessionService := services.NewSessionService(sessions, cfg.SimultaneousAccessWindow)
	email := &services.MockEmailService{}
	tokenManager := auth.NewTokenManager("integration-test-signing-secret", 15*time.Minute, 7*24*time.Hour)

	loginSecurity := services.NewLoginSecurityService(
		accounts, ips, sessionService, auditService, notificationService,
		email, tokenManager, cfg, logger,
	)
	passwordService := services.NewPasswordService(accounts, history, auditService, cfg.ReuseHistoryWindow, logger)

	ipConfig := pkghttp.NewIPConfig(nil)
	authHandler := handlers.NewAuthHandler(loginSecurity, passwordService, ipConfig)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	adminHandler := handlers.NewAdminHandler(loginSecurity, auditService, ipConfig)

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: "development"}))
	router.Use(chiMiddleware.Recoverer)
	routes.RegisterRoutes(router, authHandler, notificationHandler, adminHandler, tokenManager, accounts, testDB.DB)

	return &TestServer{
		Server:       httptest.NewServer(router),
		TokenManager: tokenManager,
		Accounts:     accounts,
		Email:        email,
	}
}

func (ts *TestServer) Close() {
	ts.Server.Close()
}

// DoJSON issues a request with an optional JSON body and bearer token.
func (ts *TestServer) DoJSON(method, path, token string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return ts.Server.Client().Do(req)
}

// DecodeBody decodes a JSON response body into out and closes it.
func DecodeBody(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}
