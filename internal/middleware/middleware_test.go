package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders_SetsBaseHeaders(t *testing.T) {
	handler := SecurityHeaders(SecurityHeadersConfig{Env: "development"})(okHandler())

	req := httptest.NewRequest("GET", "/health", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	checks := map[string]string{
		"X-Frame-Options":         "DENY",
		"X-Content-Type-Options":  "nosniff",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	}
	for header, want := range checks {
		if got := recorder.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}

	if recorder.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS should not be set outside production")
	}
}

func TestSecurityHeaders_HSTSOnlyForForwardedHTTPS(t *testing.T) {
	handler := SecurityHeaders(SecurityHeadersConfig{Env: "production"})(okHandler())

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Header().Get("Strict-Transport-Security") == "" {
		t.Error("expected HSTS header for forwarded HTTPS in production")
	}
}

func TestNoCache_SetsCacheHeaders(t *testing.T) {
	handler := NoCache(okHandler())

	req := httptest.NewRequest("POST", "/auth/login", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if got := recorder.Header().Get("Cache-Control"); got != "no-cache, no-store, must-revalidate, private" {
		t.Errorf("Cache-Control = %q", got)
	}
	if recorder.Header().Get("Pragma") != "no-cache" {
		t.Error("expected Pragma: no-cache")
	}
}

func TestCORS_OnlyAllowsConfiguredOrigins(t *testing.T) {
	config := DefaultCORSConfig([]string{"https://portal.example.edu"})
	handler := CORS(config)(okHandler())

	req := httptest.NewRequest("GET", "/admin/notifications", nil)
	req.Header.Set("Origin", "https://portal.example.edu")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "https://portal.example.edu" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req = httptest.NewRequest("GET", "/admin/notifications", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unlisted origin should get no CORS headers")
	}
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	config := DefaultCORSConfig([]string{"https://portal.example.edu"})

	called := false
	handler := CORS(config)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("OPTIONS", "/auth/login", nil)
	req.Header.Set("Origin", "https://portal.example.edu")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("preflight status = %d", recorder.Code)
	}
	if called {
		t.Error("preflight should not reach the next handler")
	}
}

func TestRateLimitByIP_Returns429AfterLimit(t *testing.T) {
	config := RateLimitConfig{Requests: 2, Window: time.Minute}
	handler := RateLimitByIP(config)(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.RemoteAddr = "203.0.113.1:1000"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		if recorder.Code != http.StatusOK {
			t.Fatalf("request %d failed with status %d", i+1, recorder.Code)
		}
	}

	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "203.0.113.1:1000"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", recorder.Code)
	}
	if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON error body, got Content-Type %q", ct)
	}
}

func TestRateLimitByIP_IsolatesAddresses(t *testing.T) {
	config := RateLimitConfig{Requests: 1, Window: time.Minute}
	handler := RateLimitByIP(config)(okHandler())

	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "203.0.113.1:1000"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("first address blocked prematurely: %d", recorder.Code)
	}

	req = httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "203.0.113.2:1000"
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("second address should have its own bucket, got %d", recorder.Code)
	}
}

func TestAdminIPGuard_EmptyListDisablesCheck(t *testing.T) {
	handler := AdminIPGuard(nil, nil, nil)(okHandler())

	req := httptest.NewRequest("GET", "/admin/accounts", nil)
	req.RemoteAddr = "203.0.113.50:4000"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("empty allow list should pass everyone, got %d", recorder.Code)
	}
}

func TestAdminIPGuard_AllowsListedAddress(t *testing.T) {
	handler := AdminIPGuard([]string{"203.0.113.10"}, nil, nil)(okHandler())

	req := httptest.NewRequest("GET", "/admin/audit-events", nil)
	req.RemoteAddr = "203.0.113.10:4000"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("listed address should be allowed, got %d", recorder.Code)
	}
}

func TestAdminIPGuard_AllowsCIDRMatch(t *testing.T) {
	handler := AdminIPGuard([]string{"10.20.0.0/16"}, nil, nil)(okHandler())

	req := httptest.NewRequest("GET", "/admin/accounts", nil)
	req.RemoteAddr = "10.20.31.7:4000"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("address inside allowed range should pass, got %d", recorder.Code)
	}
}

func TestAdminIPGuard_DeniesUnlistedAddress(t *testing.T) {
	var deniedIP string
	onDeny := func(r *http.Request, ip string) { deniedIP = ip }
	handler := AdminIPGuard([]string{"203.0.113.10"}, nil, onDeny)(okHandler())

	req := httptest.NewRequest("GET", "/admin/accounts", nil)
	req.RemoteAddr = "198.51.100.99:4000"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusForbidden {
		t.Errorf("unlisted address should get 403, got %d", recorder.Code)
	}
	if deniedIP != "198.51.100.99" {
		t.Errorf("onDeny received %q, want the denied client address", deniedIP)
	}
}

func TestAdminIPGuard_IgnoresNonAdminPaths(t *testing.T) {
	handler := AdminIPGuard([]string{"203.0.113.10"}, nil, nil)(okHandler())

	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "198.51.100.99:4000"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("restriction only covers the admin surface, got %d", recorder.Code)
	}
}
