package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/evyataryagoni/geoflipper/internal/metrics"
)

// MetricsMiddleware records HTTP metrics for each request
// Endpoints are labelled by route pattern (/v1/search, not /v1/search?q=...) to keep cardinality bounded
func MetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap the response writer to capture status code and size
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			endpoint := routePattern(r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK // handler wrote nothing
			}
			statusLabel := strconv.Itoa(status)

			if r.ContentLength > 0 {
				m.HTTPRequestSize.WithLabelValues(r.Method, endpoint).Observe(float64(r.ContentLength))
			}
			m.HTTPRequestsTotal.WithLabelValues(r.Method, endpoint, statusLabel).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, endpoint, statusLabel).Observe(time.Since(start).Seconds())
			m.HTTPResponseSize.WithLabelValues(r.Method, endpoint, statusLabel).Observe(float64(ww.BytesWritten()))
		})
	}
}

// routePattern returns the matched chi route, or "unmatched" for 404s
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
