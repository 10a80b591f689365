package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rmfernandez/acadguard/internal/auth"
	"github.com/rmfernandez/acadguard/internal/models"
	"github.com/rmfernandez/acadguard/internal/repositories"
	"github.com/rmfernandez/acadguard/internal/services"
	pkghttp "github.com/rmfernandez/acadguard/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds account claims to request context for testing
// authenticated endpoints
func WithAuthContext(req *http.Request, accountID, handle, role string) *http.Request {
	claims := &models.TokenClaims{
		Type:      "access",
		AccountID: accountID,
		Handle:    handle,
		Role:      role,
	}
	ctx := context.WithValue(req.Context(), auth.AccountContextKey, claims)
	return req.WithContext(ctx)
}

// WithAdminContext adds admin claims with a fresh UUID
func WithAdminContext(req *http.Request) *http.Request {
	return WithAuthContext(req, uuid.New().String(), "admin", models.RoleAdmin)
}

// WithChiRouteContext adds chi URL parameters to request context for testing
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockLoginSecurityService implements LoginSecurityInterface and
// AdminSecurityInterface for testing
type MockLoginSecurityService struct {
	AttemptLoginFunc  func(ctx context.Context, handle, password, ipAddress, userAgent string) (*services.LoginResult, error)
	RefreshFunc       func(ctx context.Context, refreshToken, ipAddress, userAgent string) (*services.LoginResult, error)
	LogoutFunc        func(ctx context.Context, accountID, handle, sessionKey, ipAddress, userAgent string) error
	UnlockAccountFunc func(ctx context.Context, handle string, adminID uuid.UUID, ipAddress string) (*models.Account, error)
	UnblockIPFunc     func(ctx context.Context, ipAddress string, adminID uuid.UUID, adminIP string) error
}

func (m *MockLoginSecurityService) AttemptLogin(ctx context.Context, handle, password, ipAddress, userAgent string) (*services.LoginResult, error) {
	if m.AttemptLoginFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.AttemptLoginFunc(ctx, handle, password, ipAddress, userAgent)
}

func (m *MockLoginSecurityService) Refresh(ctx context.Context, refreshToken, ipAddress, userAgent string) (*services.LoginResult, error) {
	if m.RefreshFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.RefreshFunc(ctx, refreshToken, ipAddress, userAgent)
}

func (m *MockLoginSecurityService) Logout(ctx context.Context, accountID, handle, sessionKey, ipAddress, userAgent string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, accountID, handle, sessionKey, ipAddress, userAgent)
}

func (m *MockLoginSecurityService) UnlockAccount(ctx context.Context, handle string, adminID uuid.UUID, ipAddress string) (*models.Account, error) {
	if m.UnlockAccountFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UnlockAccountFunc(ctx, handle, adminID, ipAddress)
}

func (m *MockLoginSecurityService) UnblockIP(ctx context.Context, ipAddress string, adminID uuid.UUID, adminIP string) error {
	if m.UnblockIPFunc == nil {
		return nil
	}
	return m.UnblockIPFunc(ctx, ipAddress, adminID, adminIP)
}

// MockPasswordService implements PasswordServiceInterface for testing
type MockPasswordService struct {
	ChangePasswordFunc func(ctx context.Context, accountID, currentPassword, newPassword, ipAddress, userAgent string) error
}

func (m *MockPasswordService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword, ipAddress, userAgent string) error {
	if m.ChangePasswordFunc == nil {
		return nil
	}
	return m.ChangePasswordFunc(ctx, accountID, currentPassword, newPassword, ipAddress, userAgent)
}

// MockNotificationService implements NotificationServiceInterface for testing
type MockNotificationService struct {
	ListFunc     func(ctx context.Context, filters models.NotificationFilters, limit, offset int) ([]*models.Notification, error)
	GetFunc      func(ctx context.Context, id string) (*models.Notification, error)
	MarkReadFunc func(ctx context.Context, id string) (*models.Notification, error)
	ResolveFunc  func(ctx context.Context, id string, resolvedBy uuid.UUID) (*models.Notification, error)
	StatsFunc    func(ctx context.Context) (*models.NotificationStats, error)
}

func (m *MockNotificationService) List(ctx context.Context, filters models.NotificationFilters, limit, offset int) ([]*models.Notification, error) {
	if m.ListFunc == nil {
		return []*models.Notification{}, nil
	}
	return m.ListFunc(ctx, filters, limit, offset)
}

func (m *MockNotificationService) Get(ctx context.Context, id string) (*models.Notification, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, id string) (*models.Notification, error) {
	if m.MarkReadFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.MarkReadFunc(ctx, id)
}

func (m *MockNotificationService) Resolve(ctx context.Context, id string, resolvedBy uuid.UUID) (*models.Notification, error) {
	if m.ResolveFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.ResolveFunc(ctx, id, resolvedBy)
}

func (m *MockNotificationService) Stats(ctx context.Context) (*models.NotificationStats, error) {
	if m.StatsFunc == nil {
		return &models.NotificationStats{}, nil
	}
	return m.StatsFunc(ctx)
}

// MockAuditService implements AuditServiceInterface for testing
type MockAuditService struct {
	ListFunc func(ctx context.Context, filters repositories.AuditEventFilters, limit, offset int) ([]*models.AuditEvent, error)
}

func (m *MockAuditService) List(ctx context.Context, filters repositories.AuditEventFilters, limit, offset int) ([]*models.AuditEvent, error) {
	if m.ListFunc == nil {
		return []*models.AuditEvent{}, nil
	}
	return m.ListFunc(ctx, filters, limit, offset)
}
