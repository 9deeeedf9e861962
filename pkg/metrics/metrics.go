// Package metrics defines the Prometheus collectors used by the monitor and
// the dashboard API and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service along with the
// registry they are registered in.
type Metrics struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	PostsScannedTotal     prometheus.Counter
	MentionsDetectedTotal *prometheus.CounterVec
	MentionsSavedTotal    prometheus.Counter
	MentionsDuplicate     prometheus.Counter
	RedditFetchTotal      *prometheus.CounterVec
	RedditFetchLatency    *prometheus.HistogramVec
	PassDuration          prometheus.Histogram
	ListingCacheHits      prometheus.Counter
	ListingCacheMisses    prometheus.Counter
	CircuitBreakerState   *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, in a fresh registry.
func New() *Metrics {
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
		PostsScannedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "posts_scanned_total",
				Help: "Posts evaluated against a user's terms.",
			},
		),
		MentionsDetectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mentions_detected_total",
				Help: "Matches found, by the category of the winning term.",
			},
			[]string{"category"},
		),
		MentionsSavedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mentions_saved_total",
				Help: "Mentions written to the store.",
			},
		),
		MentionsDuplicate: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mentions_duplicate_total",
				Help: "Matches skipped because the post was already stored for the user.",
			},
		),
		RedditFetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reddit_fetch_total",
				Help: "Listing fetch attempts by source and outcome (ok, error, skipped, not_found).",
			},
			[]string{"source", "outcome"},
		),
		RedditFetchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reddit_fetch_latency_seconds",
				Help:    "Listing fetch latency in seconds by source.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"source"},
		),
		PassDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "monitor_pass_duration_seconds",
				Help:    "Wall time of a full monitoring pass.",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
		ListingCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "listing_cache_hits_total",
				Help: "Listing requests served from the cache.",
			},
		),
		ListingCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "listing_cache_misses_total",
				Help: "Listing requests that went to Reddit.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.PostsScannedTotal,
		m.MentionsDetectedTotal,
		m.MentionsSavedTotal,
		m.MentionsDuplicate,
		m.RedditFetchTotal,
		m.RedditFetchLatency,
		m.PassDuration,
		m.ListingCacheHits,
		m.ListingCacheMisses,
		m.CircuitBreakerState,
	)

	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
