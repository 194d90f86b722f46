package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evyataryagoni/geoflipper/internal/app"
	"github.com/evyataryagoni/geoflipper/internal/config"
	"github.com/evyataryagoni/geoflipper/internal/crm"
	"github.com/evyataryagoni/geoflipper/internal/handler"
	"github.com/evyataryagoni/geoflipper/internal/limiter"
	"github.com/evyataryagoni/geoflipper/internal/logger"
	"github.com/evyataryagoni/geoflipper/internal/membership"
	"github.com/evyataryagoni/geoflipper/internal/metrics"
	"github.com/evyataryagoni/geoflipper/internal/router"
	v1 "github.com/evyataryagoni/geoflipper/internal/router/v1"
	"github.com/evyataryagoni/geoflipper/internal/search"
	"github.com/evyataryagoni/geoflipper/internal/service"
	"github.com/evyataryagoni/geoflipper/internal/store"
)

func main() {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize components
	appLogger := setupLogger(appConfig)
	metricsCollector := setupMetrics(appLogger)

	credentialStore := setupCredentialStore(appConfig, metricsCollector, appLogger)
	defer credentialStore.Close()

	rateLimiter := setupRateLimiter(appConfig, appLogger)
	defer rateLimiter.Close()

	// Providers shared by every session
	addresses := app.Geocoder(appConfig, appLogger, metricsCollector)
	population := app.Population(appConfig, appLogger, metricsCollector)
	registry := search.NewRegistry(
		app.SearchFactory(addresses, population, appLogger, metricsCollector),
		appConfig.SessionIdle,
		metricsCollector,
	)

	verifier := membership.NewClient(appConfig.MembershipURL,
		membership.WithTimeout(appConfig.MembershipTimeout),
		membership.WithRequireAnnual(appConfig.RequireAnnualPlan),
		membership.WithLogger(appLogger),
		membership.WithMetrics(metricsCollector),
	)
	opportunities := crm.NewClient(appConfig.GHLAPIURL, appConfig.GHLAPIKey,
		crm.WithLocationID(appConfig.GHLLocationID),
		crm.WithMetrics(metricsCollector),
	)

	// Build application layers
	authService := service.NewAuthService(credentialStore, verifier, appLogger)
	searchService := service.NewSearchService(registry, metricsCollector, appLogger)
	opportunityService := service.NewOpportunityService(opportunities, appLogger)

	appRouter := router.SetupRouter(router.Options{
		Handlers: v1.Handlers{
			Auth:          handler.NewAuthHandler(authService, searchService, appLogger),
			Search:        handler.NewSearchHandler(searchService, appLogger),
			Map:           handler.NewMapHandler(app.Tiles(appConfig)),
			Opportunities: handler.NewOpportunityHandler(opportunityService),
		},
		Auth:           authService,
		RateLimiter:    rateLimiter,
		Metrics:        metricsCollector,
		Logger:         appLogger,
		AllowedOrigins: appConfig.AllowedOrigins,
		SecureCookies:  appConfig.SecureCookies,

		TrustProxyHeaders: appConfig.TrustProxy,
	})

	// Start server
	startServer(appConfig, appRouter, appLogger)
}

// setupLogger initializes the structured logger
func setupLogger(appConfig *config.Config) *logger.Logger {
	appLogger := logger.New(logger.Config{
		Level:      appConfig.LogLevel,
		Pretty:     appConfig.LogPretty,
		OutputFile: appConfig.LogFile,
	})

	appLogger.Info().Msg("Starting GeoFlipper Server...")
	appLogger.Info().
		Str("port", appConfig.Port).
		Str("rate_limiter_type", appConfig.RateLimitType).
		Float64("rate_limit", appConfig.RateLimit).
		Bool("trust_proxy_headers", appConfig.TrustProxy).
		Str("store_type", appConfig.StoreType).
		Bool("opencage_configured", appConfig.OpenCageAPIKey != "").
		Bool("place_search", appConfig.PopulationPlaceSearch).
		Bool("countriesnow", appConfig.CountriesNowURL != "").
		Bool("crm_configured", appConfig.GHLAPIKey != "").
		Msg("Configuration loaded")

	if appConfig.OpenCageAPIKey == "" {
		appLogger.Warn().Msg("OPENCAGE_API_KEY is not set, only coordinate searches will succeed")
	}

	return appLogger
}

// setupCredentialStore initializes the credential store based on configuration
// Supports memory, file, MySQL, and Redis backends
func setupCredentialStore(appConfig *config.Config, m *metrics.Metrics, log *logger.Logger) store.Store {
	credentialStore, err := store.New(store.Config{
		Type:          appConfig.StoreType,
		Path:          appConfig.StorePath,
		MySQLDSN:      appConfig.MySQLDSN,
		RedisAddr:     appConfig.RedisAddr,
		RedisPassword: appConfig.RedisPassword,
		RedisDB:       appConfig.RedisDB,
		TTL:           appConfig.StoreTTL,
	})
	if err != nil {
		log.Fatal().Err(err).Str("type", appConfig.StoreType).Msg("Failed to initialize credential store")
	}

	fmt.Printf("✅ Credential store initialized (type: %s)\n", appConfig.StoreType)
	return store.Instrument(credentialStore, appConfig.StoreType, m)
}

// setupRateLimiter initializes the rate limiter
// Supports in-memory and Redis-based rate limiting
func setupRateLimiter(appConfig *config.Config, log *logger.Logger) limiter.Limiter {
	rateLimiter, err := limiter.NewLimiter(limiter.LimiterConfig{
		Type:              appConfig.RateLimitType,
		RequestsPerSecond: appConfig.RateLimit,
		RedisAddr:         appConfig.RedisAddr,
		RedisPassword:     appConfig.RedisPassword,
		RedisDB:           appConfig.RedisDB,
		Logger:            log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize rate limiter")
	}

	fmt.Printf("✅ Rate limiter initialized (type: %s, limit: %.2f req/s)\n",
		appConfig.RateLimitType, appConfig.RateLimit)

	return rateLimiter
}

// setupMetrics initializes the Prometheus metrics collector
func setupMetrics(log *logger.Logger) *metrics.Metrics {
	metricsCollector := metrics.New(nil)
	log.Info().Msg("Metrics initialized")
	return metricsCollector
}

// startServer runs the HTTP server until SIGINT or SIGTERM, then drains in-flight requests
func startServer(appConfig *config.Config, appRouter http.Handler, log *logger.Logger) {
	server := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           appRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("port", appConfig.Port).
		Str("api_endpoint", "http://localhost:"+appConfig.Port+"/v1/search?q=<address|lat,lng>").
		Str("health_check", "http://localhost:"+appConfig.Port+"/health").
		Str("metrics", "http://localhost:"+appConfig.Port+"/metrics").
		Msg("Server is running")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server failed")
		}
		return
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
