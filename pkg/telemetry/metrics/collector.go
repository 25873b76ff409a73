package metrics

import (
	"time"

	"mercator-hq/parley/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Turn outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

// Collector owns every Prometheus metric of the relay.
//
// A nil *Collector is valid and records nothing, so components can be built
// without metrics in tests.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	turns      *TurnMetrics
	upstream   *UpstreamMetrics
	transcript *TranscriptMetrics
	http       *HTTPMetrics
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is used.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true, Namespace: "parley"}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = append([]float64(nil), config.DefaultLatencyBuckets...)
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}

	c.turns = NewTurnMetrics(cfg, registry)
	c.upstream = NewUpstreamMetrics(cfg, registry)
	c.transcript = NewTranscriptMetrics(cfg, registry)
	c.http = NewHTTPMetrics(cfg, registry)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordTurn records the end of a chat turn.
//
// Parameters:
//   - outcome: OutcomeCompleted, OutcomeFailed or OutcomeRejected
//   - deltas: number of deltas relayed to the client
//   - duration: time from request receipt to the closing envelope
func (c *Collector) RecordTurn(outcome string, deltas int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.turns.RecordTurn(outcome, deltas, duration)
}

// RecordFirstDelta records the time from opening the upstream stream to the
// first relayed delta.
func (c *Collector) RecordFirstDelta(latency time.Duration) {
	if !c.enabled() {
		return
	}
	c.turns.RecordFirstDelta(latency)
}

// RecordUpstreamCall records one upstream exchange.
//
// Parameters:
//   - upstream: upstream name (e.g., "deepseek")
//   - model: model id
//   - latency: time until the stream ended or failed
//   - errorKind: "" on success, otherwise "http", "transport", "config"
func (c *Collector) RecordUpstreamCall(upstream, model string, latency time.Duration, errorKind string) {
	if !c.enabled() {
		return
	}
	c.upstream.RecordCall(upstream, model, latency, errorKind)
}

// UpdateUpstreamHealth updates the health gauge of the upstream.
func (c *Collector) UpdateUpstreamHealth(upstream string, healthy bool) {
	if !c.enabled() {
		return
	}
	c.upstream.UpdateHealth(upstream, healthy)
}

// RecordCommit records a committed assistant reply.
func (c *Collector) RecordCommit() {
	if !c.enabled() {
		return
	}
	c.transcript.commits.Inc()
}

// RecordReset records a transcript reset.
func (c *Collector) RecordReset() {
	if !c.enabled() {
		return
	}
	c.transcript.resets.Inc()
}

// RecordStorageError records a failed transcript operation.
func (c *Collector) RecordStorageError(op string) {
	if !c.enabled() {
		return
	}
	c.transcript.storageErrors.WithLabelValues(op).Inc()
}

// RecordSweep records the outcome of an expiry sweep.
// It satisfies transcript.SweepRecorder.
func (c *Collector) RecordSweep(deleted int, err error) {
	if !c.enabled() {
		return
	}
	c.transcript.RecordSweep(deleted, err)
}

// RecordRateLimited records a request rejected by the rate limiter.
func (c *Collector) RecordRateLimited(tier string) {
	if !c.enabled() {
		return
	}
	c.http.rateLimited.WithLabelValues(tier).Inc()
}

// RecordLogWriteFailure records a log line the output writer rejected.
func (c *Collector) RecordLogWriteFailure() {
	if !c.enabled() {
		return
	}
	c.http.logWriteFailures.Inc()
}

// RecordPanic records a recovered handler panic.
func (c *Collector) RecordPanic(where string) {
	if !c.enabled() {
		return
	}
	c.http.panics.WithLabelValues(where).Inc()
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
