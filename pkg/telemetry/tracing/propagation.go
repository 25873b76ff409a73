package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Extract extracts W3C trace context from HTTP headers and returns a context
// carrying it. If no trace context is found, the original context is returned.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(headers))
}

// Inject writes the trace context of ctx into outgoing HTTP headers as
// traceparent and tracestate.
//
//	req, _ := http.NewRequestWithContext(ctx, "POST", url, body)
//	tracing.Inject(ctx, req.Header)
func Inject(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}

// HTTPMiddleware extracts trace context from incoming requests, opens a
// server span per request, and echoes the trace ID in X-Trace-ID.
func HTTPMiddleware(tracer *Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := Extract(r.Context(), r.Header)

			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path)
			defer span.End()

			if traceID := TraceID(ctx); traceID != "" {
				w.Header().Set("X-Trace-ID", traceID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
