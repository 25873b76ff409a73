package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"mercator-hq/parley/pkg/providers"
)

const (
	// maxLineSize bounds a single SSE line; payloads are small JSON objects.
	maxLineSize = 1 << 20

	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// streamReader reads Server-Sent Events from an OpenAI-compatible stream
// and yields the text deltas. It implements providers.DeltaStream.
type streamReader struct {
	provider *providers.HTTPProvider
	body     io.ReadCloser
	scanner  *bufio.Scanner

	// finished is set once the stream reached [DONE], EOF or an error.
	finished bool

	// answered is set once a success was recorded: at the first delta, or
	// at the end of a stream that carried none. Closing early after that
	// still counts as a success.
	answered bool

	// closed is set by Close, which may run concurrently with Next.
	closed atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

// newStreamReader wraps a successful streaming response body.
func newStreamReader(provider *providers.HTTPProvider, body io.ReadCloser) *streamReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	return &streamReader{
		provider: provider,
		body:     body,
		scanner:  scanner,
	}
}

// Next returns the next non-empty delta.
// Returns "", io.EOF when the stream ends normally, either at the [DONE]
// sentinel or when the upstream closes the body.
// Returns "", *providers.TransportError if reading the body fails.
func (s *streamReader) Next(ctx context.Context) (string, error) {
	if s.finished || s.closed.Load() {
		return "", io.EOF
	}

	for {
		if err := ctx.Err(); err != nil {
			s.finished = true
			return "", s.provider.ReadError(ctx, err)
		}

		if !s.scanner.Scan() {
			s.finished = true
			if err := s.scanner.Err(); err != nil {
				if s.closed.Load() {
					return "", io.EOF
				}
				return "", s.provider.ReadError(ctx, err)
			}
			s.recordSuccess(ctx)
			return "", io.EOF
		}

		line := s.scanner.Text()

		// Skip blank separators, comments, heartbeats and other fields
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
		if data == doneSentinel {
			s.finished = true
			s.recordSuccess(ctx)
			return "", io.EOF
		}

		var payload StreamResponse
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			slog.DebugContext(ctx, "skipping malformed stream payload",
				"provider", s.provider.GetName(),
				"error", err,
			)
			continue
		}

		if delta := deltaText(&payload); delta != "" {
			s.recordSuccess(ctx)
			return delta, nil
		}
	}
}

// recordSuccess reports the exchange as successful once per stream.
func (s *streamReader) recordSuccess(ctx context.Context) {
	if s.answered {
		return
	}
	s.answered = true
	s.provider.RecordOutcome(ctx, nil)
}

// Close closes the response body, aborting any in-progress read.
func (s *streamReader) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
