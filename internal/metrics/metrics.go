// Package metrics provides Prometheus metrics for corpus loading and the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results.
const (
	CacheHit        = "hit"
	CacheMiss       = "miss"
	CacheUnreadable = "unreadable"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry registers metrics on registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// WithHistogramBuckets sets the rebuild duration buckets. Empty keeps the
// defaults.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// Manager owns the collectors. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	cacheLookups    *prometheus.CounterVec
	cachePersistErr prometheus.Counter
	tracksFetched   prometheus.Counter
	decodeFailures  prometheus.Counter
	rebuildDuration prometheus.Histogram
	rebuildFailures prometheus.Counter
	corpusTracks    prometheus.Gauge

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a Manager. Without WithRegistry it uses its own registry
// so the default Go collectors are not exported.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "mkwr",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.cacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Record cache lookups by result",
	}, []string{"result"})

	m.cachePersistErr = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "cache",
		Name:      "persist_failures_total",
		Help:      "Failed writes of the record cache",
	})

	m.tracksFetched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "rebuild",
		Name:      "tracks_fetched_total",
		Help:      "Track pages fetched and decoded",
	})

	m.decodeFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "rebuild",
		Name:      "decode_failures_total",
		Help:      "Pages whose markup could not be decoded",
	})

	m.rebuildDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "rebuild",
		Name:      "duration_seconds",
		Help:      "Duration of full corpus rebuilds",
		Buckets:   m.histogramBuckets,
	})

	m.rebuildFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "rebuild",
		Name:      "failures_total",
		Help:      "Aborted corpus rebuilds",
	})

	m.corpusTracks = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "corpus",
		Name:      "tracks",
		Help:      "Tracks in the loaded corpus",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
}

// Registry returns the registry the collectors live on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Manager) RecordCachePersistFailure() {
	if m == nil {
		return
	}
	m.cachePersistErr.Inc()
}

func (m *Manager) RecordTrackFetched() {
	if m == nil {
		return
	}
	m.tracksFetched.Inc()
}

func (m *Manager) RecordDecodeFailure() {
	if m == nil {
		return
	}
	m.decodeFailures.Inc()
}

// RecordRebuild observes a finished rebuild; failed rebuilds only count.
func (m *Manager) RecordRebuild(duration time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.rebuildFailures.Inc()
		return
	}
	m.rebuildDuration.Observe(duration.Seconds())
}

func (m *Manager) SetCorpusTracks(n int) {
	if m == nil {
		return
	}
	m.corpusTracks.Set(float64(n))
}

func (m *Manager) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
