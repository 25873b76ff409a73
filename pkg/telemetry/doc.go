// Package telemetry groups the observability subpackages of the relay.
//
//   - logging: log/slog setup with credential masking and request fields
//   - metrics: Prometheus metrics for turns, upstream calls and transcripts
//   - tracing: OpenTelemetry spans exported over OTLP gRPC
//   - health: liveness and readiness probes
package telemetry
