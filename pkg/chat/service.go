package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"mercator-hq/parley/pkg/providers"
	"mercator-hq/parley/pkg/telemetry/metrics"
	"mercator-hq/parley/pkg/telemetry/tracing"
	"mercator-hq/parley/pkg/transcript"
)

// pingPrompt is the single user message sent by Ping.
const pingPrompt = "ping"

// UpstreamSource yields the upstream to use for the next exchange.
// *providers.Holder implements it.
type UpstreamSource interface {
	Current() providers.Upstream
}

// Options configures a Service.
type Options struct {
	// Upstreams yields the current upstream client (required)
	Upstreams UpstreamSource

	// Store persists transcripts (required)
	Store transcript.Store

	// MaxLength is the number of messages kept when a transcript is saved
	MaxLength int

	// Metrics records turn and transcript metrics (optional)
	Metrics *metrics.Collector

	// Tracer creates spans for turns (optional)
	Tracer *tracing.Tracer

	// Logger defaults to slog.Default()
	Logger *slog.Logger
}

// Service orchestrates chat turns, commits and resets over a transcript
// store and the upstream completion API.
type Service struct {
	upstreams UpstreamSource
	store     transcript.Store
	maxLength int
	metrics   *metrics.Collector
	tracer    *tracing.Tracer
	logger    *slog.Logger
}

// NewService creates a Service.
func NewService(opts Options) (*Service, error) {
	if opts.Upstreams == nil {
		return nil, errors.New("chat: upstream source is required")
	}
	if opts.Store == nil {
		return nil, errors.New("chat: transcript store is required")
	}
	if opts.MaxLength <= 0 {
		return nil, fmt.Errorf("chat: max length must be positive, got %d", opts.MaxLength)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Service{
		upstreams: opts.Upstreams,
		store:     opts.Store,
		maxLength: opts.MaxLength,
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
		logger:    opts.Logger,
	}, nil
}

// MaxLength returns the transcript length bound applied on commit.
func (s *Service) MaxLength() int {
	return s.maxLength
}

// upstream returns the current upstream or a *providers.ConfigError when
// none is installed.
func (s *Service) upstream() (providers.Upstream, error) {
	up := s.upstreams.Current()
	if up == nil {
		return nil, &providers.ConfigError{
			Provider: "upstream",
			Field:    "upstream",
			Message:  "no upstream configured",
		}
	}
	return up, nil
}

// BeginTurn validates a chat message and records it in the transcript.
//
// Validation happens in order: the trimmed message must be non-empty
// (*ValidationError), then the upstream must have a credential
// (*providers.ConfigError). Only then is the user message appended. Store
// failures are returned as *transcript.StorageError.
//
// The returned Turn holds the full history to send upstream. Nothing has
// been written to the client yet, so the caller can still answer with an
// error status.
func (s *Service) BeginTurn(ctx context.Context, sessionID, message string) (*Turn, error) {
	start := time.Now()

	message = strings.TrimSpace(message)
	if message == "" {
		s.metrics.RecordTurn(metrics.OutcomeRejected, 0, time.Since(start))
		return nil, &ValidationError{Field: "message", Message: "message required"}
	}

	up, err := s.upstream()
	if err != nil {
		s.metrics.RecordTurn(metrics.OutcomeRejected, 0, time.Since(start))
		return nil, err
	}
	if err := up.CheckCredential(); err != nil {
		s.metrics.RecordUpstreamCall(up.GetName(), up.GetModel(), 0, kindConfig)
		s.metrics.RecordTurn(metrics.OutcomeRejected, 0, time.Since(start))
		s.logger.WarnContext(ctx, "chat rejected: upstream credential missing",
			"upstream", up.GetName(),
		)
		return nil, err
	}

	userMsg := providers.Message{Role: providers.RoleUser, Content: message}
	if err := s.store.Append(ctx, sessionID, userMsg); err != nil {
		s.storageFailed(ctx, "append", err)
		s.metrics.RecordTurn(metrics.OutcomeFailed, 0, time.Since(start))
		return nil, err
	}

	history, err := s.store.Get(ctx, sessionID)
	if err != nil {
		s.storageFailed(ctx, "get", err)
		s.metrics.RecordTurn(metrics.OutcomeFailed, 0, time.Since(start))
		return nil, err
	}

	return &Turn{
		service:   s,
		upstream:  up,
		sessionID: sessionID,
		history:   history,
		started:   start,
	}, nil
}

// Commit appends an assistant reply to the transcript and trims it to the
// configured maximum length. Empty content is rejected with a
// *ValidationError before the store is touched.
func (s *Service) Commit(ctx context.Context, sessionID, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return &ValidationError{Field: "content", Message: "content required"}
	}

	history, err := s.store.Get(ctx, sessionID)
	if err != nil {
		s.storageFailed(ctx, "get", err)
		return err
	}

	history = append(history, providers.Message{Role: providers.RoleAssistant, Content: content})
	if err := s.store.Save(ctx, sessionID, history, s.maxLength); err != nil {
		s.storageFailed(ctx, "save", err)
		return err
	}

	s.metrics.RecordCommit()
	s.logger.DebugContext(ctx, "assistant reply committed",
		"content_length", len(content),
		"history_length", min(len(history), s.maxLength),
	)
	return nil
}

// Reset replaces the session's transcript with an empty one.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	if err := s.store.Reset(ctx, sessionID); err != nil {
		s.storageFailed(ctx, "reset", err)
		return err
	}
	s.metrics.RecordReset()
	s.logger.DebugContext(ctx, "transcript reset")
	return nil
}

// History returns the session's transcript.
func (s *Service) History(ctx context.Context, sessionID string) ([]providers.Message, error) {
	history, err := s.store.Get(ctx, sessionID)
	if err != nil {
		s.storageFailed(ctx, "get", err)
		return nil, err
	}
	return history, nil
}

// Ping checks the upstream end to end. It sends a one-message prompt and
// waits for the first delta or the end of the stream. No transcript is
// touched. Any failure, including a panic, is returned as an error.
func (s *Service) Ping(ctx context.Context) (err error) {
	ctx, span := s.tracer.Start(ctx, "chat.ping")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			s.metrics.RecordPanic("ping")
			err = fmt.Errorf("ping panicked: %v", r)
		}
		if err != nil {
			tracing.SetErrorAttributes(span, err, errorKind(err))
		}
	}()

	up, err := s.upstream()
	if err != nil {
		return err
	}
	tracing.SetUpstreamAttributes(span, up.GetName(), up.GetModel())

	if err := up.CheckCredential(); err != nil {
		return err
	}

	start := time.Now()
	stream, err := up.OpenStream(ctx, []providers.Message{
		{Role: providers.RoleUser, Content: pingPrompt},
	})
	if err != nil {
		s.metrics.RecordUpstreamCall(up.GetName(), up.GetModel(), time.Since(start), errorKind(err))
		return err
	}
	defer stream.Close()

	if _, err := stream.Next(ctx); err != nil && !errors.Is(err, io.EOF) {
		s.metrics.RecordUpstreamCall(up.GetName(), up.GetModel(), time.Since(start), errorKind(err))
		return err
	}

	s.metrics.RecordUpstreamCall(up.GetName(), up.GetModel(), time.Since(start), "")
	s.metrics.UpdateUpstreamHealth(up.GetName(), up.IsHealthy())
	return nil
}

func (s *Service) storageFailed(ctx context.Context, op string, err error) {
	s.metrics.RecordStorageError(op)
	s.logger.ErrorContext(ctx, "transcript store failed",
		"op", op,
		"error", err,
	)
}
