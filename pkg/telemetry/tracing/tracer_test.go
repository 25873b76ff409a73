package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/parley/pkg/config"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer(t *testing.T) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := newWithExporter(&config.TracingConfig{
		Enabled:     true,
		Sampler:     SamplerAlways,
		ServiceName: "test-service",
	}, sdktrace.WithSyncer(exporter))
	if err != nil {
		t.Fatalf("failed to create tracer: %v", err)
	}
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })
	return tracer, exporter
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *config.TracingConfig
		wantErr bool
		enabled bool
	}{
		{
			name:    "nil config",
			config:  nil,
			wantErr: true,
		},
		{
			name:   "disabled tracing",
			config: &config.TracingConfig{Enabled: false, ServiceName: "test-service"},
		},
		{
			name: "enabled with lazy OTLP connection",
			config: &config.TracingConfig{
				Enabled:     true,
				Sampler:     SamplerNever,
				Endpoint:    "localhost:4317",
				Insecure:    true,
				ServiceName: "test-service",
			},
			enabled: true,
		},
		{
			name: "invalid sampler",
			config: &config.TracingConfig{
				Enabled:     true,
				Sampler:     "sometimes",
				Endpoint:    "localhost:4317",
				Insecure:    true,
				ServiceName: "test-service",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer tracer.Shutdown(context.Background())

			if tracer.Enabled() != tt.enabled {
				t.Errorf("Enabled() = %v, want %v", tracer.Enabled(), tt.enabled)
			}
		})
	}
}

func TestTracer_RecordsSpans(t *testing.T) {
	tracer, exporter := newRecordingTracer(t)

	ctx, span := tracer.Start(context.Background(), "chat.turn")
	SetUpstreamAttributes(span, "deepseek", "deepseek-chat")
	SetRequestAttributes(span, "req-1", "")
	SetErrorAttributes(span, errors.New("upstream reset"), "transport")
	if TraceID(ctx) == "" {
		t.Error("expected a trace ID inside the span")
	}
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := spans[0]
	if got.Name != "chat.turn" {
		t.Errorf("span name = %q", got.Name)
	}
	if got.Status.Code != codes.Error {
		t.Errorf("expected error status, got %v", got.Status.Code)
	}

	attrs := map[string]string{}
	for _, kv := range got.Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs[AttrUpstream] != "deepseek" || attrs[AttrErrorType] != "transport" {
		t.Errorf("unexpected attributes %v", attrs)
	}
	if _, ok := attrs[AttrSession]; ok {
		t.Error("empty session must not be recorded")
	}
}

func TestNilAndDisabledTracer(t *testing.T) {
	var nilTracer *Tracer
	ctx, span := nilTracer.Start(context.Background(), "noop")
	span.End()
	if TraceID(ctx) != "" {
		t.Error("noop span must not carry a trace ID")
	}
	if err := nilTracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() on nil tracer: %v", err)
	}
	if Disabled().Enabled() {
		t.Error("Disabled() tracer reports enabled")
	}
}

func TestHTTPMiddleware(t *testing.T) {
	tracer, exporter := newRecordingTracer(t)

	var innerTraceID string
	handler := HTTPMiddleware(tracer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		innerTraceID = TraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if innerTraceID != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("expected incoming trace to be continued, got %q", innerTraceID)
	}
	if rec.Header().Get("X-Trace-ID") != innerTraceID {
		t.Errorf("X-Trace-ID = %q", rec.Header().Get("X-Trace-ID"))
	}
	if spans := exporter.GetSpans(); len(spans) != 1 || spans[0].Name != "POST /api/chat" {
		t.Errorf("unexpected spans %+v", spans)
	}
}
