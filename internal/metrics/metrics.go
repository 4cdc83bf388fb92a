// Package metrics exposes cache and HTTP metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goliatone/go-tagcache/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tagcache"

// Metrics holds every collector of the service. It implements cache.Recorder.
type Metrics struct {
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	TagInvalidations prometheus.Counter
	KeyEvictions     prometheus.Counter

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

var _ cache.Recorder = (*Metrics)(nil)

// New registers the collectors on registry. A nil registry uses a fresh
// prometheus.Registry so that several instances can coexist in tests.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)

	return &Metrics{
		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Cache lookups answered from the cache, by read operation",
			},
			[]string{"op"},
		),
		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Cache lookups that ran the fetch function, by read operation",
			},
			[]string{"op"},
		),
		TagInvalidations: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_tags_invalidated_total",
				Help:      "Tags invalidated",
			},
		),
		KeyEvictions: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_keys_evicted_total",
				Help:      "Cache keys dropped by tag invalidation",
			},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"method", "route"},
		),
		gatherer: registry,
	}
}

func (m *Metrics) CacheHit(op string) {
	m.CacheHits.WithLabelValues(op).Inc()
}

func (m *Metrics) CacheMiss(op string) {
	m.CacheMisses.WithLabelValues(op).Inc()
}

func (m *Metrics) TagsInvalidated(n int) {
	m.TagInvalidations.Add(float64(n))
}

func (m *Metrics) KeysEvicted(n int) {
	m.KeyEvictions.Add(float64(n))
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
