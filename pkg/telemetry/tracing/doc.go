// Package tracing provides OpenTelemetry distributed tracing.
//
// Spans are opened per HTTP request (HTTPMiddleware), per chat turn and per
// upstream call. The W3C traceparent header is injected into the upstream
// request, so a collector can join the relay's spans with the completion
// API's when it participates in tracing.
//
// # Configuration
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: localhost:4317
//	    insecure: true
//	    sampler: ratio
//	    sample_ratio: 0.1
//
// Export uses OTLP over gRPC. With tracing disabled every span is a noop.
package tracing
