package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trendscout/application/ports"
	"trendscout/application/queries/bus"
)

// Collector holds all Prometheus metrics for the application. Each collector
// owns its registry so tests can create as many as they need.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Exploration metrics
	Explorations           *prometheus.CounterVec
	ExplorationDuration    *prometheus.HistogramVec
	ExplorationDiscoveries prometheus.Histogram
	Searches               *prometheus.CounterVec
	Discoveries            *prometheus.CounterVec

	// Query metrics
	Queries       *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
}

var (
	_ ports.Metrics = (*Collector)(nil)
	_ bus.Metrics   = (*Collector)(nil)
)

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Explorations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "explorations_total",
				Help:      "Total number of finished explorations",
			},
			[]string{"strategy", "outcome"},
		),
		ExplorationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "exploration_duration_seconds",
				Help:      "Exploration wall time in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"strategy"},
		),
		ExplorationDiscoveries: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "exploration_discoveries",
				Help:      "Discoveries returned per exploration",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		Searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "content_searches_total",
				Help:      "Content searches by outcome",
			},
			[]string{"outcome"},
		),
		Discoveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "keywords_discovered_total",
				Help:      "Keywords recorded as discoveries",
			},
			[]string{"trending"},
		),
		Queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Queries dispatched through the query bus",
			},
			[]string{"query", "status"},
		),
		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Query handler duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"query"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Explorations,
		c.ExplorationDuration,
		c.ExplorationDiscoveries,
		c.Searches,
		c.Discoveries,
		c.Queries,
		c.QueryDuration,
	)
	return c
}

// Registry returns the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RegisterGaugeFunc exposes a value computed at scrape time
func (c *Collector) RegisterGaugeFunc(namespace, name, help string, fn func() float64) error {
	return c.registry.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help},
		fn,
	))
}

// RecordExploration implements ports.Metrics
func (c *Collector) RecordExploration(strategy string, duration time.Duration, discoveries int, cancelled bool) {
	outcome := "completed"
	if cancelled {
		outcome = "cancelled"
	}
	c.Explorations.WithLabelValues(strategy, outcome).Inc()
	c.ExplorationDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	c.ExplorationDiscoveries.Observe(float64(discoveries))
}

// RecordSearch implements ports.Metrics
func (c *Collector) RecordSearch(outcome string) {
	c.Searches.WithLabelValues(outcome).Inc()
}

// RecordDiscovery implements ports.Metrics
func (c *Collector) RecordDiscovery(trending bool) {
	c.Discoveries.WithLabelValues(strconv.FormatBool(trending)).Inc()
}

// RecordHTTPRequest records one served request
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveQuery implements bus.Metrics
func (c *Collector) ObserveQuery(name string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	c.Queries.WithLabelValues(name, status).Inc()
	c.QueryDuration.WithLabelValues(name).Observe(duration.Seconds())
}
