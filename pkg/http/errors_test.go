package http_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	pkghttp "github.com/rmfernandez/acadguard/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteError(w, 400, "bad_request", "Handle is required")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "bad_request", resp.Error)
	assert.Equal(t, "Handle is required", resp.Message)
	assert.Empty(t, resp.Details)
}

func TestWriteErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteErrorWithDetails(w, 409, "conflict", "Password was used recently", "last 5 passwords are checked")

	assert.Equal(t, 409, w.Code)

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "conflict", resp.Error)
	assert.Equal(t, "last 5 passwords are checked", resp.Details)
}

func TestErrorWriterStatusCodes(t *testing.T) {
	cases := []struct {
		write  func(w *httptest.ResponseRecorder)
		status int
		code   string
	}{
		{func(w *httptest.ResponseRecorder) { pkghttp.WriteUnauthorized(w, "invalid credentials") }, 401, "unauthorized"},
		{func(w *httptest.ResponseRecorder) { pkghttp.WriteForbidden(w, "admin only") }, 403, "forbidden"},
		{func(w *httptest.ResponseRecorder) { pkghttp.WriteNotFound(w, "no such account") }, 404, "not_found"},
		{func(w *httptest.ResponseRecorder) { pkghttp.WriteTooManyRequests(w, "address blocked") }, 429, "rate_limit_exceeded"},
		{func(w *httptest.ResponseRecorder) { pkghttp.WriteInternalError(w, "unexpected error") }, 500, "internal_error"},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		tc.write(w)

		assert.Equal(t, tc.status, w.Code)
		var resp pkghttp.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, tc.code, resp.Error)
	}
}

func TestWriteLocked(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteLocked(w, 10*time.Minute)

	assert.Equal(t, 423, w.Code)
	assert.Equal(t, "600", w.Header().Get("Retry-After"))

	var resp pkghttp.LockedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "account_locked", resp.Error)
	assert.Equal(t, int64(600), resp.RetryAfterSeconds)
}

func TestWriteLocked_RoundsUpPartialSeconds(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteLocked(w, 90500*time.Millisecond)

	assert.Equal(t, "91", w.Header().Get("Retry-After"))
}

func TestWriteLocked_MinimumOneSecond(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteLocked(w, 0)

	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	var resp pkghttp.LockedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.RetryAfterSeconds)
}
