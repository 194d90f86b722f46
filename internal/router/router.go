package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evyataryagoni/geoflipper/internal/limiter"
	"github.com/evyataryagoni/geoflipper/internal/logger"
	"github.com/evyataryagoni/geoflipper/internal/metrics"
	custommiddleware "github.com/evyataryagoni/geoflipper/internal/middleware"
	v1 "github.com/evyataryagoni/geoflipper/internal/router/v1"
)

// Options carries everything the router needs
type Options struct {
	Handlers       v1.Handlers
	Auth           custommiddleware.Authenticator // session gate for member-only routes
	RateLimiter    limiter.Limiter
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer // source for /metrics, nil = default registry
	Logger         *logger.Logger
	AllowedOrigins []string // CORS allow-list for the browser UI
	SecureCookies  bool

	// TrustProxyHeaders honours X-Real-IP / X-Forwarded-For. Only enable it
	// behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// SetupRouter creates and configures the Chi router with all middleware and routes
// This separates routing logic from the main application setup
func SetupRouter(opts Options) chi.Router {
	r := chi.NewRouter()

	// Apply global middleware - these run on every request
	// Order matters! RequestID should be first, then logging, then rate limiting
	r.Use(middleware.RequestID) // Add unique request ID to each request
	if opts.TrustProxyHeaders {
		r.Use(middleware.RealIP) // Get real client IP from the proxy in front of us
	}
	r.Use(custommiddleware.LoggingMiddleware(opts.Logger))                                // Structured logging
	r.Use(middleware.Recoverer)                                                           // Recover from panics and return 500
	r.Use(cors.Handler(corsOptions(opts.AllowedOrigins)))                                 // Browser UI on another origin
	r.Use(custommiddleware.RateLimitMiddleware(opts.RateLimiter, opts.TrustProxyHeaders)) // Rate limiting per IP
	if opts.Metrics != nil {
		r.Use(custommiddleware.MetricsMiddleware(opts.Metrics)) // Collect Prometheus metrics
	}

	// Mount v1 API routes under /v1 prefix
	r.Mount("/v1", v1.SetupRoutes(opts.Handlers, v1.Middleware{
		Session:       custommiddleware.SessionMiddleware(opts.SecureCookies),
		RequireMember: custommiddleware.RequireMember(opts.Auth, opts.Logger),
	}))

	// Root-level routes (not versioned)
	// Health check endpoint - used by load balancers and monitoring
	r.Get("/health", healthCheckHandler)

	// Prometheus metrics endpoint
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", custommiddleware.SessionHeader},
		ExposedHeaders:   []string{custommiddleware.SessionHeader},
		AllowCredentials: true, // session cookie
		MaxAge:           300,
	}
}

// healthCheckHandler is a simple health check endpoint
// Returns 200 OK if the service is running
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
