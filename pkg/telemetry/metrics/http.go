package metrics

import (
	"mercator-hq/parley/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks the HTTP plumbing around the relay.
//
// Metrics:
//   - parley_rate_limited_total: Requests rejected by the rate limiter, by tier
//   - parley_log_write_failures_total: Log lines the output writer rejected
//   - parley_panics_recovered_total: Recovered panics by location
type HTTPMetrics struct {
	rateLimited      *prometheus.CounterVec
	logWriteFailures prometheus.Counter
	panics           *prometheus.CounterVec
}

// NewHTTPMetrics creates and registers HTTP metrics with the provided registry.
func NewHTTPMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *HTTPMetrics {
	hm := &HTTPMetrics{
		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rate_limited_total",
				Help:      "Total number of requests rejected by the rate limiter",
			},
			[]string{"tier"},
		),
		logWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "log_write_failures_total",
			Help:      "Total number of log lines the output writer rejected",
		}),
		panics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "panics_recovered_total",
				Help:      "Total number of recovered panics",
			},
			[]string{"where"},
		),
	}

	registry.MustRegister(
		hm.rateLimited,
		hm.logWriteFailures,
		hm.panics,
	)

	return hm
}
