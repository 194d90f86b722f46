package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/evyataryagoni/geoflipper/internal/limiter"
)

// RateLimitMiddleware enforces rate limiting per client IP address (returns 429 when exceeded)
// Proxy headers are only consulted when trustProxy is set
func RateLimitMiddleware(lim limiter.Limiter, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow(r.Context(), ClientIP(r, trustProxy)) {
				writeJSONError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the address of the client that made the request
// With trustProxy: X-Real-IP > first X-Forwarded-For entry > RemoteAddr host
// Without it the headers are client-controlled and only RemoteAddr counts
func ClientIP(r *http.Request, trustProxy bool) string {
	if !trustProxy {
		return remoteHost(r)
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	// X-Forwarded-For can contain multiple IPs (format: "client, proxy1, proxy2")
	if forwardedFor := r.Header.Get("X-Forwarded-For"); forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// writeJSONError writes {"error": message} with the given status
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message}) //nolint:errcheck
}
