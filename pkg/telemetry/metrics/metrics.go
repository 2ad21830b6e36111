package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"minerva-ai/minerva/pkg/config"
)

// Collector bundles all Minerva metric groups behind one registry.
type Collector struct {
	Registry *prometheus.Registry
	Cache    *CacheMetrics
	Requests *RequestMetrics
}

// NewCollector creates a registry with all metric groups registered.
// When metrics are disabled it returns a collector whose groups are nil;
// every metric method is nil-safe, so callers never need to check.
func NewCollector(cfg *config.MetricsConfig) *Collector {
	if !cfg.Enabled {
		return &Collector{}
	}

	registry := prometheus.NewRegistry()
	return &Collector{
		Registry: registry,
		Cache:    NewCacheMetrics(cfg, registry),
		Requests: NewRequestMetrics(cfg, registry),
	}
}

// Handler returns an HTTP handler serving the /metrics endpoint, or a 404
// handler when metrics are disabled.
func (c *Collector) Handler() http.Handler {
	if c.Registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})
}
