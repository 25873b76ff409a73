package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Custom attribute keys use the "parley.*" namespace.
const (
	AttrUpstream = "parley.upstream"
	AttrModel    = "parley.model"

	AttrRequestID = "parley.request_id"
	AttrSession   = "parley.session"

	AttrHistoryLength = "parley.history.length"
	AttrDeltaCount    = "parley.deltas"
	AttrOutcome       = "parley.outcome"
	AttrErrorType     = "parley.error.type"
)

// SetUpstreamAttributes sets upstream-related attributes on a span.
func SetUpstreamAttributes(span trace.Span, upstream, model string) {
	span.SetAttributes(
		attribute.String(AttrUpstream, upstream),
		attribute.String(AttrModel, model),
	)
}

// SetRequestAttributes sets request correlation attributes on a span.
// Empty values are skipped.
func SetRequestAttributes(span trace.Span, requestID, session string) {
	var attrs []attribute.KeyValue
	if requestID != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, requestID))
	}
	if session != "" {
		attrs = append(attrs, attribute.String(AttrSession, session))
	}
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
}

// SetTurnAttributes records the size and outcome of a chat turn.
func SetTurnAttributes(span trace.Span, historyLength, deltas int, outcome string) {
	span.SetAttributes(
		attribute.Int(AttrHistoryLength, historyLength),
		attribute.Int(AttrDeltaCount, deltas),
		attribute.String(AttrOutcome, outcome),
	)
}

// SetErrorAttributes marks the span as failed with a classified error type.
func SetErrorAttributes(span trace.Span, err error, errorType string) {
	if err == nil {
		return
	}
	span.SetAttributes(attribute.String(AttrErrorType, errorType))
	SetError(span, err)
}
