package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/rmfernandez/acadguard/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP_UsesRemoteAddrByDefault(t *testing.T) {
	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "203.0.113.7:51234"

	ip := pkghttp.ExtractClientIP(req, pkghttp.NewIPConfig(nil))
	assert.Equal(t, "203.0.113.7", ip)
}

func TestExtractClientIP_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	req.Header.Set("X-Forwarded-For", "198.51.100.9")

	ip := pkghttp.ExtractClientIP(req, pkghttp.NewIPConfig(nil))
	assert.Equal(t, "203.0.113.7", ip)
}

func TestExtractClientIP_HonorsForwardedForFromTrustedProxy(t *testing.T) {
	cfg := pkghttp.NewIPConfig([]string{"10.0.0.0/8"})

	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "10.1.2.3:443"
	req.Header.Set("X-Forwarded-For", "198.51.100.9, 10.1.2.3")

	ip := pkghttp.ExtractClientIP(req, cfg)
	assert.Equal(t, "198.51.100.9", ip)
}

func TestExtractClientIP_SkipsGarbageForwardedHops(t *testing.T) {
	cfg := pkghttp.NewIPConfig([]string{"10.0.0.0/8"})

	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "10.1.2.3:443"
	req.Header.Set("X-Forwarded-For", "not-an-ip, 198.51.100.9")

	ip := pkghttp.ExtractClientIP(req, cfg)
	assert.Equal(t, "198.51.100.9", ip)
}

func TestExtractClientIP_FallsBackToRealIPHeader(t *testing.T) {
	cfg := pkghttp.NewIPConfig([]string{"10.0.0.0/8"})

	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "10.1.2.3:443"
	req.Header.Set("X-Real-IP", "198.51.100.9")

	ip := pkghttp.ExtractClientIP(req, cfg)
	assert.Equal(t, "198.51.100.9", ip)
}

func TestNewIPConfig_SkipsInvalidCIDRs(t *testing.T) {
	cfg := pkghttp.NewIPConfig([]string{"not-a-cidr", "10.0.0.0/8"})

	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "10.1.2.3:443"
	req.Header.Set("X-Real-IP", "198.51.100.9")

	assert.Equal(t, "198.51.100.9", pkghttp.ExtractClientIP(req, cfg))
}

func TestExtractClientIP_NilConfig(t *testing.T) {
	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	req.Header.Set("X-Forwarded-For", "198.51.100.9")

	assert.Equal(t, "203.0.113.7", pkghttp.ExtractClientIP(req, nil))
}
