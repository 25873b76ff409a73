package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"mercator-hq/parley/pkg/providers"
	"mercator-hq/parley/pkg/telemetry/metrics"
	"mercator-hq/parley/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/trace"
)

// internalErrorMessage is sent in-band when streaming panics.
const internalErrorMessage = "internal error while streaming reply"

// Turn is a validated chat turn whose user message is already stored.
// It streams exactly once.
type Turn struct {
	service   *Service
	upstream  providers.Upstream
	sessionID string
	history   []providers.Message
	started   time.Time
}

// History returns the messages sent upstream, ending with the new user
// message.
func (t *Turn) History() []providers.Message {
	return t.history
}

// Stream relays the upstream reply to w as a single JSON envelope:
//
//	{"ok": true, "chunks": [{"delta":"Hel"},{"delta":"lo"}]}
//
// Each delta is written and flushed as soon as it arrives. An upstream
// failure, before or during streaming, becomes a final {"error": "..."}
// event. The closing "]}" is written on every exit path, including a
// panic, so the body always parses.
//
// Cancelling ctx (the client went away) aborts the upstream read. The
// returned error is the failure that ended the turn, or nil when the
// upstream stream completed.
func (t *Turn) Stream(ctx context.Context, w io.Writer) (err error) {
	s := t.service
	up := t.upstream

	ctx, span := s.tracer.Start(ctx, "chat.turn")
	defer span.End()
	tracing.SetUpstreamAttributes(span, up.GetName(), up.GetModel())

	env := newEnvelopeWriter(w)
	deltas := 0
	var upstreamStart time.Time
	var upstreamErr error

	defer func() {
		if r := recover(); r != nil {
			s.metrics.RecordPanic("stream")
			s.logger.ErrorContext(ctx, "panic while streaming reply",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("stream panicked: %v", r)
			_ = env.event(StreamEvent{Error: internalErrorMessage})
		}

		if closeErr := env.close(); closeErr != nil && err == nil {
			err = closeErr
		}

		t.finish(ctx, span, deltas, upstreamStart, upstreamErr, err)
	}()

	if err := env.open(); err != nil {
		return err
	}

	upstreamStart = time.Now()
	stream, err := up.OpenStream(ctx, t.history)
	if err != nil {
		upstreamErr = err
		_ = env.event(StreamEvent{Error: err.Error()})
		return err
	}
	defer stream.Close()

	for {
		delta, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			upstreamErr = err
			_ = env.event(StreamEvent{Error: err.Error()})
			return err
		}

		if deltas == 0 {
			s.metrics.RecordFirstDelta(time.Since(upstreamStart))
		}
		deltas++

		if err := env.event(StreamEvent{Delta: delta}); err != nil {
			return err
		}
	}
}

// finish records metrics, span attributes and the turn log line.
func (t *Turn) finish(ctx context.Context, span trace.Span, deltas int, upstreamStart time.Time, upstreamErr, err error) {
	s := t.service
	up := t.upstream

	outcome := metrics.OutcomeCompleted
	if err != nil {
		outcome = metrics.OutcomeFailed
	}

	kind := ""
	if upstreamErr != nil {
		kind = errorKind(upstreamErr)
	}
	if !upstreamStart.IsZero() {
		s.metrics.RecordUpstreamCall(up.GetName(), up.GetModel(), time.Since(upstreamStart), kind)
		s.metrics.UpdateUpstreamHealth(up.GetName(), up.IsHealthy())
	}
	s.metrics.RecordTurn(outcome, deltas, time.Since(t.started))

	tracing.SetTurnAttributes(span, len(t.history), deltas, outcome)

	attrs := []any{
		"upstream", up.GetName(),
		"model", up.GetModel(),
		"history_length", len(t.history),
		"deltas", deltas,
		"outcome", outcome,
		"duration_ms", time.Since(t.started).Milliseconds(),
	}

	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "chat turn completed", attrs...)
	case errors.Is(err, context.Canceled):
		s.logger.InfoContext(ctx, "chat turn aborted by client", attrs...)
	default:
		if kind == "" {
			kind = kindInternal
		}
		tracing.SetErrorAttributes(span, err, kind)
		s.logger.WarnContext(ctx, "chat turn failed", append(attrs, "error", err)...)
	}
}
