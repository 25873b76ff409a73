// Package metrics provides Prometheus metrics collection for the relay.
//
// # Metrics Categories
//
//   - Turn Metrics: turns by outcome, turn duration, deltas, time to first delta
//   - Upstream Metrics: upstream health, latency, requests and errors by kind
//   - Transcript Metrics: commits, resets, storage errors, expiry sweeps
//   - HTTP Metrics: rate-limited requests, log write failures, recovered panics
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordTurn(metrics.OutcomeCompleted, 12, 3*time.Second)
//	http.Handle("/metrics", collector.Handler())
//
// All metrics are registered on a private registry, so several collectors can
// coexist in tests. A nil *Collector records nothing.
package metrics
