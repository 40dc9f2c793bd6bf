// Package metrics defines the Prometheus metric collectors used across the
// services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the query parser services.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	ParseRequestsTotal   *prometheus.CounterVec
	ParseLatency         *prometheus.HistogramVec
	ParseWarningsTotal   *prometheus.CounterVec
	QueryTooLongTotal    *prometheus.CounterVec
	CrossSearchTotal     *prometheus.CounterVec
	QueryClassesTotal    *prometheus.CounterVec
	CacheHitsTotal       *prometheus.CounterVec
	CacheMissesTotal     prometheus.Counter
	CacheRemoteErrors    *prometheus.CounterVec
	ParserBuildsTotal    prometheus.Counter
	CachedParsers        prometheus.Gauge
	AnalyticsEventsTotal *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all collectors and registers them with reg. Tests
// pass a fresh prometheus.NewRegistry() so collectors never collide.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		ParseRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parse_requests_total",
				Help: "Total parse requests by result (ok, too_long, error).",
			},
			[]string{"result"},
		),
		ParseLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parse_latency_seconds",
				Help:    "Query parse latency in seconds.",
				Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
			},
			[]string{"cache_status"},
		),
		ParseWarningsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parse_warnings_total",
				Help: "Parse warnings by message key.",
			},
			[]string{"message"},
		),
		QueryTooLongTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parse_query_too_long_total",
				Help: "Queries rejected for length, by limit kind (hard, soft).",
			},
			[]string{"kind"},
		),
		CrossSearchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parse_cross_search_strategy_total",
				Help: "Parsed queries by cross-search strategy.",
			},
			[]string{"strategy"},
		),
		QueryClassesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parse_query_classes_total",
				Help: "Parsed queries by assigned class.",
			},
			[]string{"class"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of parse cache hits by level (local, redis).",
			},
			[]string{"level"},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of parse cache misses.",
			},
		),
		CacheRemoteErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_remote_errors_total",
				Help: "Failed Redis cache calls by operation and kind (timeout, circuit_open, error).",
			},
			[]string{"op", "kind"},
		),
		ParserBuildsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "parser_factory_builds_total",
				Help: "Parsers constructed by the factory (memoized hits excluded).",
			},
		),
		CachedParsers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "parser_factory_cached_parsers",
				Help: "Number of distinct parser configurations held by the factory.",
			},
		),
		AnalyticsEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_events_total",
				Help: "Parse analytics events by status (published, dropped, consumed, failed).",
			},
			[]string{"status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.ParseRequestsTotal,
		m.ParseLatency,
		m.ParseWarningsTotal,
		m.QueryTooLongTotal,
		m.CrossSearchTotal,
		m.QueryClassesTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheRemoteErrors,
		m.ParserBuildsTotal,
		m.CachedParsers,
		m.AnalyticsEventsTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
