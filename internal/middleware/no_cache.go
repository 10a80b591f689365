package middleware

import "net/http"

// NoCache prevents intermediaries and browsers from caching responses.
// Applied to the auth and admin surfaces, where every response carries
// account state or security telemetry that must never be replayed stale.
func NoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate, private")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}
