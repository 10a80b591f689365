package integration

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmfernandez/acadguard/internal/config"
	"github.com/rmfernandez/acadguard/internal/handlers"
	"github.com/rmfernandez/acadguard/internal/models"
)

// The login and refresh routes share a 10 requests/minute transport
// limit keyed by client address, and every httptest request arrives
// from 127.0.0.1. Each test below stays well under that budget.

func newAPIServer(t *testing.T, cfg config.SecurityConfig) *TestServer {
	t.Helper()
	require.NoError(t, testDB.CleanupTables(context.Background()))
	ts := NewTestServer(cfg)
	t.Cleanup(ts.Close)
	return ts
}

func TestAPILoginLogout(t *testing.T) {
	ts := newAPIServer(t, defaultSecurityConfig())
	ctx := context.Background()

	_, err := SeedAccount(ctx, testDB.Pool, "jdoe", "jdoe@university.edu", "Original-Pass1", models.RoleStudent)
	require.NoError(t, err)

	// Wrong password is rejected without leaking whether the handle exists.
	resp, err := ts.DoJSON("POST", "/auth/login", "", handlers.LoginRequest{Handle: "jdoe", Password: "Wrong-Pass1"})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = ts.DoJSON("POST", "/auth/login", "", handlers.LoginRequest{Handle: "jdoe", Password: "Original-Pass1"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login handlers.LoginResponse
	require.NoError(t, DecodeBody(resp, &login))
	assert.NotEmpty(t, login.AccessToken)
	assert.NotEmpty(t, login.RefreshToken)
	require.NotNil(t, login.Account)
	assert.Equal(t, "jdoe", login.Account.Handle)

	// Logout needs the access token and closes the session.
	resp, err = ts.DoJSON("POST", "/auth/logout", login.AccessToken, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = ts.DoJSON("POST", "/auth/logout", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPIAccountLockoutAndAdminUnlock(t *testing.T) {
	require.NoError(t, testDB.CleanupTables(context.Background()))
	cfg := defaultSecurityConfig()
	cfg.AccountLockThreshold = 2
	ts := NewTestServer(cfg)
	defer ts.Close()
	ctx := context.Background()

	_, err := SeedAccount(ctx, testDB.Pool, "jdoe", "jdoe@university.edu", "Original-Pass1", models.RoleStudent)
	require.NoError(t, err)
	admin, err := SeedAccount(ctx, testDB.Pool, "registrar", "registrar@university.edu", "Admin-Pass1", models.RoleAdmin)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		resp, err := ts.DoJSON("POST", "/auth/login", "", handlers.LoginRequest{Handle: "jdoe", Password: "Wrong-Pass1"})
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	// The account is now locked; even the correct password gets 423
	// with a Retry-After telling the client when to come back.
	resp, err := ts.DoJSON("POST", "/auth/login", "", handlers.LoginRequest{Handle: "jdoe", Password: "Original-Pass1"})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusLocked, resp.StatusCode)
	retryAfter, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retryAfter, int((14 * time.Minute).Seconds()))

	adminToken, _, err := ts.TokenManager.GenerateAccessToken(admin)
	require.NoError(t, err)

	resp, err = ts.DoJSON("POST", "/admin/accounts/jdoe/unlock", adminToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var unlocked handlers.AccountResponse
	require.NoError(t, DecodeBody(resp, &unlocked))
	assert.Equal(t, "jdoe", unlocked.Handle)

	resp, err = ts.DoJSON("POST", "/auth/login", "", handlers.LoginRequest{Handle: "jdoe", Password: "Original-Pass1"})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIRefreshFlow(t *testing.T) {
	ts := newAPIServer(t, defaultSecurityConfig())
	ctx := context.Background()

	_, err := SeedAccount(ctx, testDB.Pool, "jdoe", "jdoe@university.edu", "Original-Pass1", models.RoleStudent)
	require.NoError(t, err)

	resp, err := ts.DoJSON("POST", "/auth/login", "", handlers.LoginRequest{Handle: "jdoe", Password: "Original-Pass1"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login handlers.LoginResponse
	require.NoError(t, DecodeBody(resp, &login))

	resp, err = ts.DoJSON("POST", "/auth/refresh", "", handlers.RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var refreshed handlers.LoginResponse
	require.NoError(t, DecodeBody(resp, &refreshed))
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.AccessToken, refreshed.AccessToken)

	// Access tokens are not accepted where a refresh token is expected.
	resp, err = ts.DoJSON("POST", "/auth/refresh", "", handlers.RefreshRequest{RefreshToken: login.AccessToken})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPIChangePassword(t *testing.T) {
	ts := newAPIServer(t, defaultSecurityConfig())
	ctx := context.Background()

	_, err := SeedAccount(ctx, testDB.Pool, "jdoe", "jdoe@university.edu", "Original-Pass1", models.RoleStudent)
	require.NoError(t, err)

	resp, err := ts.DoJSON("POST", "/auth/login", "", handlers.LoginRequest{Handle: "jdoe", Password: "Original-Pass1"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login handlers.LoginResponse
	require.NoError(t, DecodeBody(resp, &login))

	resp, err = ts.DoJSON("POST", "/auth/change-password", login.AccessToken, handlers.ChangePasswordRequest{
		CurrentPassword: "Original-Pass1",
		NewPassword:     "Second-Pass2",
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Setting the same password back is refused by the reuse guard.
	resp, err = ts.DoJSON("POST", "/auth/change-password", login.AccessToken, handlers.ChangePasswordRequest{
		CurrentPassword: "Second-Pass2",
		NewPassword:     "Original-Pass1",
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = ts.DoJSON("POST", "/auth/login", "", handlers.LoginRequest{Handle: "jdoe", Password: "Second-Pass2"})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIAdminEndpointsEnforceRole(t *testing.T) {
	ts := newAPIServer(t, defaultSecurityConfig())
	ctx := context.Background()

	student, err := SeedAccount(ctx, testDB.Pool, "jdoe", "jdoe@university.edu", "Original-Pass1", models.RoleStudent)
	require.NoError(t, err)
	admin, err := SeedAccount(ctx, testDB.Pool, "registrar", "registrar@university.edu", "Admin-Pass1", models.RoleAdmin)
	require.NoError(t, err)

	studentToken, _, err := ts.TokenManager.GenerateAccessToken(student)
	require.NoError(t, err)
	adminToken, _, err := ts.TokenManager.GenerateAccessToken(admin)
	require.NoError(t, err)

	paths := []string{"/admin/notifications", "/admin/notifications/stats", "/admin/audit-events"}
	for _, path := range paths {
		resp, err := ts.DoJSON("GET", path, "", nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)

		resp, err = ts.DoJSON("GET", path, studentToken, nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)

		resp, err = ts.DoJSON("GET", path, adminToken, nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestAPIHealth(t *testing.T) {
	ts := newAPIServer(t, defaultSecurityConfig())

	resp, err := ts.DoJSON("GET", "/health", "", nil)
	require.NoError(t, err)
	var body map[string]string
	require.NoError(t, DecodeBody(resp, &body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}
