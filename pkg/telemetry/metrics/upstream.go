package metrics

import (
	"time"

	"mercator-hq/parley/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics tracks the completion API.
//
// Metrics:
//   - parley_upstream_health: Upstream health status (1=healthy, 0=unhealthy)
//   - parley_upstream_latency_seconds: Upstream exchange latency
//   - parley_upstream_errors_total: Upstream errors by kind
//   - parley_upstream_requests_total: Streaming requests sent upstream
type UpstreamMetrics struct {
	health   *prometheus.GaugeVec
	latency  *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	requests *prometheus.CounterVec
}

// NewUpstreamMetrics creates and registers upstream metrics with the provided registry.
func NewUpstreamMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *UpstreamMetrics {
	um := &UpstreamMetrics{
		health: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_health",
				Help:      "Upstream health status (1=healthy, 0=unhealthy)",
			},
			[]string{"upstream"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_latency_seconds",
				Help:      "Upstream streaming exchange latency in seconds",
				Buckets:   cfg.LatencyBuckets,
			},
			[]string{"upstream", "model"},
		),

		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_errors_total",
				Help:      "Total number of upstream errors by kind",
			},
			[]string{"upstream", "kind"},
		),

		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_requests_total",
				Help:      "Total number of streaming requests sent upstream",
			},
			[]string{"upstream", "model"},
		),
	}

	registry.MustRegister(
		um.health,
		um.latency,
		um.errors,
		um.requests,
	)

	return um
}

// UpdateHealth sets the health gauge; 1=healthy, 0=unhealthy.
func (um *UpstreamMetrics) UpdateHealth(upstream string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	um.health.WithLabelValues(upstream).Set(value)
}

// RecordCall records one upstream exchange.
//
// Error kinds:
//   - "config": credential missing, no request sent
//   - "http": non-2xx status
//   - "transport": connect, timeout or mid-stream read failure
func (um *UpstreamMetrics) RecordCall(upstream, model string, latency time.Duration, errorKind string) {
	if errorKind == "config" {
		um.errors.WithLabelValues(upstream, errorKind).Inc()
		return
	}
	um.requests.WithLabelValues(upstream, model).Inc()
	um.latency.WithLabelValues(upstream, model).Observe(latency.Seconds())
	if errorKind != "" {
		um.errors.WithLabelValues(upstream, errorKind).Inc()
	}
}
