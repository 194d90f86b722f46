package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/evyataryagoni/geoflipper/internal/logger"
)

// LoggingMiddleware logs HTTP requests with structured data
func LoggingMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	log = logger.OrDefault(log)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// Request ID is set by chi's RequestID middleware
			reqLog := log.WithRequestID(middleware.GetReqID(r.Context()))

			reqLog.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", ClientIP(r, false)).
				Str("user_agent", r.UserAgent()).
				Msg("Request started")

			next.ServeHTTP(ww, r)

			// Determine log level based on status code
			logEvent := reqLog.Info()
			if ww.Status() >= 500 {
				logEvent = reqLog.Error()
			} else if ww.Status() >= 400 {
				logEvent = reqLog.Warn()
			}

			// The session middleware runs further down the chain and echoes the id
			if sessionID := ww.Header().Get(SessionHeader); sessionID != "" {
				logEvent = logEvent.Str("session_id", sessionID)
			}

			logEvent.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration_ms", time.Since(start)).
				Msg("Request completed")
		})
	}
}
