package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Credential store Metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec

	// Provider Metrics
	GeocodeRequestsTotal   *prometheus.CounterVec
	GeocodeRequestDuration prometheus.Histogram
	PopulationLookupsTotal *prometheus.CounterVec
	MembershipChecksTotal  *prometheus.CounterVec
	CRMRequestsTotal       *prometheus.CounterVec

	// Application Metrics
	SearchesTotal    *prometheus.CounterVec
	SearchesStale    prometheus.Counter
	MarketTiersTotal *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
}

// New creates all Prometheus metrics and registers them with reg.
// A nil reg registers with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPRequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "endpoint"},
		),

		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "endpoint", "status"},
		),

		// Credential store Metrics
		StoreOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credential_store_operations_total",
				Help: "Total number of credential store operations",
			},
			[]string{"store", "operation", "status"},
		),

		StoreOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "credential_store_operation_duration_seconds",
				Help:    "Credential store operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"store", "operation"},
		),

		// Provider Metrics
		GeocodeRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geocode_requests_total",
				Help: "Total number of geocoding requests by result kind",
			},
			[]string{"result"},
		),

		GeocodeRequestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "geocode_request_duration_seconds",
				Help:    "Geocoding request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		PopulationLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "population_lookups_total",
				Help: "Total number of population lookups by strategy and result",
			},
			[]string{"strategy", "result"},
		),

		MembershipChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "membership_checks_total",
				Help: "Total number of membership checks by result",
			},
			[]string{"result"},
		),

		CRMRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_requests_total",
				Help: "Total number of CRM opportunity searches by status",
			},
			[]string{"status"},
		),

		// Application Metrics
		SearchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searches_total",
				Help: "Total number of searches by outcome",
			},
			[]string{"outcome"},
		),

		SearchesStale: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "searches_superseded_total",
				Help: "Total number of search results discarded because a newer search started",
			},
		),

		MarketTiersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "market_tiers_total",
				Help: "Total number of market classifications by tier",
			},
			[]string{"tier"},
		),

		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "search_sessions_active",
				Help: "Number of sessions holding a search orchestrator",
			},
		),
	}
}
