package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"minerva-ai/minerva/pkg/config"
)

// CacheMetrics tracks response cache performance.
//
// Metrics:
//   - minerva_cache_hits_total: total cache hits
//   - minerva_cache_misses_total: total cache misses
//   - minerva_cache_evictions_total: total LRU evictions
//   - minerva_cache_entries: current entry count
//
// All methods are safe on a nil receiver so the cache can run without
// metrics.
type CacheMetrics struct {
	hitsTotal      prometheus.Counter
	missesTotal    prometheus.Counter
	evictionsTotal prometheus.Counter
	entries        prometheus.Gauge
}

// NewCacheMetrics creates and registers cache metrics with the registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		hitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_hits_total",
			Help:      "Total number of response cache hits",
		}),
		missesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_misses_total",
			Help:      "Total number of response cache misses",
		}),
		evictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_evictions_total",
			Help:      "Total number of LRU evictions",
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_entries",
			Help:      "Current number of cached responses",
		}),
	}

	registry.MustRegister(cm.hitsTotal, cm.missesTotal, cm.evictionsTotal, cm.entries)
	return cm
}

// Hit records a cache hit.
func (m *CacheMetrics) Hit() {
	if m == nil {
		return
	}
	m.hitsTotal.Inc()
}

// Miss records a cache miss.
func (m *CacheMetrics) Miss() {
	if m == nil {
		return
	}
	m.missesTotal.Inc()
}

// Eviction records an LRU eviction.
func (m *CacheMetrics) Eviction() {
	if m == nil {
		return
	}
	m.evictionsTotal.Inc()
}

// SetEntries updates the current entry gauge.
func (m *CacheMetrics) SetEntries(n int) {
	if m == nil {
		return
	}
	m.entries.Set(float64(n))
}
