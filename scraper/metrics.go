package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors shared by every poller.
type Metrics struct {
	Registry         *prometheus.Registry
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	FailuresTotal    *prometheus.CounterVec
	SessionRefreshes *prometheus.CounterVec
	ProxiesEvicted   *prometheus.CounterVec
	ProxiesAvailable *prometheus.GaugeVec
	CachedItems      *prometheus.GaugeVec
	NewItemsTotal    *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_watch_requests_total",
			Help: "Total HTTP requests issued, by watch and endpoint.",
		},
		[]string{"watch", "endpoint"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_watch_request_duration_seconds",
			Help:    "HTTP request latency, by endpoint.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_watch_failures_total",
			Help: "Classified cycle failures, by watch and kind.",
		},
		[]string{"watch", "kind"},
	)
	refreshes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_watch_session_refreshes_total",
			Help: "CSRF session refresh attempts, by watch and result.",
		},
		[]string{"watch", "result"},
	)
	evicted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_watch_proxies_evicted_total",
			Help: "Proxies permanently evicted, by watch.",
		},
		[]string{"watch"},
	)
	available := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_watch_proxies_available",
			Help: "Proxies still selectable, by watch.",
		},
		[]string{"watch"},
	)
	cached := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_watch_cached_items",
			Help: "Items in the latest catalog snapshot, by watch.",
		},
		[]string{"watch"},
	)
	newItems := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_watch_new_items_total",
			Help: "Newly listed items detected, by watch.",
		},
		[]string{"watch"},
	)

	registry.MustRegister(requests, requestDuration, failures, refreshes, evicted, available, cached, newItems)

	return &Metrics{
		Registry:         registry,
		RequestsTotal:    requests,
		RequestDuration:  requestDuration,
		FailuresTotal:    failures,
		SessionRefreshes: refreshes,
		ProxiesEvicted:   evicted,
		ProxiesAvailable: available,
		CachedItems:      cached,
		NewItemsTotal:    newItems,
	}
}

// IncRequest increments the requests counter.
func (m *Metrics) IncRequest(watch, endpoint string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(watch, endpoint).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(endpoint string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// IncFailure increments the failures counter for a kind.
func (m *Metrics) IncFailure(watch string, kind FailureKind) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(watch, kind.String()).Inc()
}

// IncRefresh records a session refresh attempt.
func (m *Metrics) IncRefresh(watch string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.SessionRefreshes.WithLabelValues(watch, result).Inc()
}

// IncEvicted records a proxy eviction.
func (m *Metrics) IncEvicted(watch string) {
	if m == nil {
		return
	}
	m.ProxiesEvicted.WithLabelValues(watch).Inc()
}

// SetProxiesAvailable sets the selectable proxy gauge.
func (m *Metrics) SetProxiesAvailable(watch string, n int) {
	if m == nil {
		return
	}
	m.ProxiesAvailable.WithLabelValues(watch).Set(float64(n))
}

// SetCachedItems sets the cache size gauge.
func (m *Metrics) SetCachedItems(watch string, n int) {
	if m == nil {
		return
	}
	m.CachedItems.WithLabelValues(watch).Set(float64(n))
}

// AddNewItems adds to the new items counter.
func (m *Metrics) AddNewItems(watch string, n int) {
	if m == nil {
		return
	}
	m.NewItemsTotal.WithLabelValues(watch).Add(float64(n))
}
