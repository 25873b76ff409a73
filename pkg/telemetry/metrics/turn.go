package metrics

import (
	"time"

	"mercator-hq/parley/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// TurnMetrics tracks chat turns.
//
// Metrics:
//   - parley_turns_total: Turns by outcome
//   - parley_turn_duration_seconds: Turn duration histogram
//   - parley_deltas_total: Deltas relayed to clients
//   - parley_time_to_first_delta_seconds: Latency of the first delta
type TurnMetrics struct {
	turnsTotal   *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec
	deltasTotal  prometheus.Counter
	firstDelta   prometheus.Histogram
}

// NewTurnMetrics creates and registers turn metrics with the provided registry.
func NewTurnMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *TurnMetrics {
	tm := &TurnMetrics{
		turnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "turns_total",
				Help:      "Total number of chat turns by outcome",
			},
			[]string{"outcome"},
		),

		turnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "turn_duration_seconds",
				Help:      "Duration of chat turns in seconds",
				Buckets:   cfg.LatencyBuckets,
			},
			[]string{"outcome"},
		),

		deltasTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "deltas_total",
				Help:      "Total number of text deltas relayed to clients",
			},
		),

		firstDelta: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "time_to_first_delta_seconds",
				Help:      "Time from opening the upstream stream to the first delta",
				Buckets:   cfg.LatencyBuckets,
			},
		),
	}

	registry.MustRegister(
		tm.turnsTotal,
		tm.turnDuration,
		tm.deltasTotal,
		tm.firstDelta,
	)

	return tm
}

// RecordTurn records a finished turn.
func (tm *TurnMetrics) RecordTurn(outcome string, deltas int, duration time.Duration) {
	tm.turnsTotal.WithLabelValues(outcome).Inc()
	tm.turnDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if deltas > 0 {
		tm.deltasTotal.Add(float64(deltas))
	}
}

// RecordFirstDelta records the latency of the first delta of a turn.
func (tm *TurnMetrics) RecordFirstDelta(latency time.Duration) {
	tm.firstDelta.Observe(latency.Seconds())
}
