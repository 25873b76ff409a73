package transcript

import (
	"context"
	"fmt"
	"time"

	"mercator-hq/parley/pkg/providers"
)

// Store holds one ordered transcript per session.
//
// Implementations must be safe for concurrent use. Concurrent turns on the
// same session may interleave but never corrupt a transcript. Every backend
// failure is returned as a *StorageError.
type Store interface {
	// Get returns a copy of the session's transcript, oldest first.
	// An unknown session has an empty transcript.
	Get(ctx context.Context, sessionID string) ([]providers.Message, error)

	// Append adds msg to the end of the transcript without trimming.
	Append(ctx context.Context, sessionID string, msg providers.Message) error

	// Save replaces the transcript with the last maxLen entries of messages.
	Save(ctx context.Context, sessionID string, messages []providers.Message, maxLen int) error

	// Reset empties the transcript. Resetting an empty transcript is a no-op.
	Reset(ctx context.Context, sessionID string) error

	// Cleanup deletes transcripts not modified since olderThan and returns
	// how many were removed.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// StorageError reports a failed transcript backend operation.
type StorageError struct {
	// Backend is the store kind ("memory", "sqlite")
	Backend string

	// Op is the operation that failed
	Op string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("transcript %s %s failed: %v", e.Backend, e.Op, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Trim returns a copy of the last maxLen messages. Oldest entries are
// evicted first; order is preserved.
func Trim(messages []providers.Message, maxLen int) []providers.Message {
	if maxLen <= 0 {
		return []providers.Message{}
	}
	start := 0
	if len(messages) > maxLen {
		start = len(messages) - maxLen
	}
	out := make([]providers.Message, len(messages)-start)
	copy(out, messages[start:])
	return out
}
