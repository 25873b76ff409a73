package transcript

import (
	"context"
	"sync"
	"time"

	"mercator-hq/parley/pkg/providers"
)

// MemoryStore implements Store using in-memory storage.
// All transcripts are lost when the process exits.
type MemoryStore struct {
	// sessions maps session id to its transcript.
	sessions map[string]*memoryEntry

	// mu protects access to sessions.
	mu sync.RWMutex

	now func() time.Time
}

type memoryEntry struct {
	messages  []providers.Message
	updatedAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		now:      time.Now,
	}
}

// Get returns a copy of the session's transcript.
func (m *MemoryStore) Get(ctx context.Context, sessionID string) ([]providers.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.sessions[sessionID]
	if !ok {
		return []providers.Message{}, nil
	}
	out := make([]providers.Message, len(entry.messages))
	copy(out, entry.messages)
	return out, nil
}

// Append adds msg to the end of the transcript.
func (m *MemoryStore) Append(ctx context.Context, sessionID string, msg providers.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[sessionID]
	if !ok {
		entry = &memoryEntry{}
		m.sessions[sessionID] = entry
	}
	entry.messages = append(entry.messages, msg)
	entry.updatedAt = m.now()
	return nil
}

// Save replaces the transcript with the last maxLen messages.
func (m *MemoryStore) Save(ctx context.Context, sessionID string, messages []providers.Message, maxLen int) error {
	trimmed := Trim(messages, maxLen)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[sessionID] = &memoryEntry{messages: trimmed, updatedAt: m.now()}
	return nil
}

// Reset empties the transcript.
func (m *MemoryStore) Reset(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}

// Cleanup removes transcripts not modified since olderThan.
func (m *MemoryStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, entry := range m.sessions {
		if entry.updatedAt.Before(olderThan) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of sessions with a stored transcript.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close releases the stored transcripts.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string]*memoryEntry)
	return nil
}
