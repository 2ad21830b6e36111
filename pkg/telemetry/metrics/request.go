package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"minerva-ai/minerva/pkg/config"
)

// RequestMetrics tracks completion request outcomes and token consumption.
//
// Metrics:
//   - minerva_requests_total{outcome}: completions by outcome
//     (ok, cached, truncated, rate_limited, timed_out, error)
//   - minerva_tokens_total{direction}: tokens consumed (prompt, completion)
//   - minerva_request_duration_seconds: end-to-end completion latency
//   - minerva_active_users: users with tracked usage patterns
//
// All methods are safe on a nil receiver.
type RequestMetrics struct {
	requestsTotal *prometheus.CounterVec
	tokensTotal   *prometheus.CounterVec
	duration      prometheus.Histogram
	activeUsers   prometheus.Gauge
}

// NewRequestMetrics creates and registers request metrics with the
// registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "requests_total",
			Help:      "Total completion requests by outcome",
		}, []string{"outcome"}),
		tokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "tokens_total",
			Help:      "Total tokens consumed by direction",
		}, []string{"direction"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "request_duration_seconds",
			Help:      "End-to-end completion latency",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		activeUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "active_users",
			Help:      "Users with tracked usage patterns",
		}),
	}

	registry.MustRegister(rm.requestsTotal, rm.tokensTotal, rm.duration, rm.activeUsers)
	return rm
}

// Request records a completed request with the given outcome label.
func (m *RequestMetrics) Request(outcome string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(outcome).Inc()
}

// Tokens records token consumption.
func (m *RequestMetrics) Tokens(promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	m.tokensTotal.WithLabelValues("prompt").Add(float64(promptTokens))
	m.tokensTotal.WithLabelValues("completion").Add(float64(completionTokens))
}

// Duration records end-to-end request latency.
func (m *RequestMetrics) Duration(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

// SetActiveUsers updates the tracked-users gauge.
func (m *RequestMetrics) SetActiveUsers(n int) {
	if m == nil {
		return
	}
	m.activeUsers.Set(float64(n))
}
