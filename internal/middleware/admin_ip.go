package middleware

import (
	"net"
	"net/http"
	"strings"

	pkghttp "github.com/rmfernandez/acadguard/pkg/http"
)

// AdminIPGuard restricts the admin surface to an allow-list of source
// addresses. Entries may be single IPs or CIDR ranges; invalid entries are
// skipped. An empty list disables the restriction, which is the expected
// state in development. onDeny is invoked before the refusal is written so
// the caller can audit it.
func AdminIPGuard(allowed []string, ipConfig *pkghttp.IPConfig, onDeny func(r *http.Request, ip string)) func(http.Handler) http.Handler {
	nets := parseAllowList(allowed)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(nets) == 0 || !strings.HasPrefix(r.URL.Path, "/admin") {
				next.ServeHTTP(w, r)
				return
			}

			ip := pkghttp.ExtractClientIP(r, ipConfig)
			if addr := net.ParseIP(ip); addr != nil {
				for _, n := range nets {
					if n.Contains(addr) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			if onDeny != nil {
				onDeny(r, ip)
			}
			pkghttp.WriteForbidden(w, "Access from your address is not permitted")
		})
	}
}

func parseAllowList(entries []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			if _, n, err := net.ParseCIDR(entry); err == nil {
				nets = append(nets, n)
			}
			continue
		}
		if addr := net.ParseIP(entry); addr != nil {
			bits := 32
			if addr.To4() == nil {
				bits = 128
			}
			nets = append(nets, &net.IPNet{IP: addr, Mask: net.CIDRMask(bits, bits)})
		}
	}
	return nets
}
