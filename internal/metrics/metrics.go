// Package metrics exposes Prometheus collectors for generation, history
// persistence and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "bmc"

// Collector holds the application metrics on a private registry, so several
// collectors can coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	generations        *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	fallbacks          *prometheus.CounterVec

	historyItems           prometheus.Gauge
	historyPersistFailures prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector creates and registers the metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "generations_total",
			Help:      "Generation calls by artifact kind and outcome.",
		}, []string{"kind", "outcome"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "generation_duration_seconds",
			Help:      "Generation latency including the fallback attempt.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 90},
		}, []string{"kind"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "generation_fallbacks_total",
			Help:      "Generations that needed the lenient retry.",
		}, []string{"kind"}),
		historyItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "history_items",
			Help:      "Items in the history list after the last flush.",
		}),
		historyPersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "history_persist_failures_total",
			Help:      "History flushes that failed to reach storage.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		c.generations,
		c.generationDuration,
		c.fallbacks,
		c.historyItems,
		c.historyPersistFailures,
		c.httpRequests,
		c.httpDuration,
		prometheus.NewGoCollector(),
	)
	return c
}

// GenerationCompleted records one gateway call.
func (c *Collector) GenerationCompleted(kind, outcome string, attempts int, elapsed time.Duration) {
	c.generations.WithLabelValues(kind, outcome).Inc()
	c.generationDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if attempts > 1 {
		c.fallbacks.WithLabelValues(kind).Inc()
	}
}

// HistoryPersisted records one history flush.
func (c *Collector) HistoryPersisted(items int, err error) {
	c.historyItems.Set(float64(items))
	if err != nil {
		c.historyPersistFailures.Inc()
	}
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Registry returns the registry the collectors live on.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
