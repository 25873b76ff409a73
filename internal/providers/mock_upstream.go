package providers

import (
	"context"
	"io"
	"sync"

	"mercator-hq/parley/pkg/providers"
)

// MockUpstream is an in-process providers.Upstream for orchestrator tests.
// It replays scripted deltas and can fail when opening or mid-stream.
type MockUpstream struct {
	mu sync.Mutex

	// Deltas are yielded in order by each opened stream
	Deltas []string

	// MissingKey makes CheckCredential and OpenStream fail with *ConfigError
	MissingKey bool

	// OpenErr is returned by OpenStream
	OpenErr error

	// FailAfter makes Next return StreamErr after this many deltas (-1 = never)
	FailAfter int

	// StreamErr is returned by Next once FailAfter deltas were yielded
	StreamErr error

	// PanicAfter makes Next panic after this many deltas (-1 = never)
	PanicAfter int

	calls   [][]providers.Message
	healthy bool
	closed  int
}

// NewMockUpstream creates a healthy mock upstream yielding deltas.
func NewMockUpstream(deltas ...string) *MockUpstream {
	return &MockUpstream{
		Deltas:     deltas,
		FailAfter:  -1,
		PanicAfter: -1,
		healthy:    true,
	}
}

// CheckCredential implements providers.Upstream.
func (m *MockUpstream) CheckCredential() error {
	if m.MissingKey {
		return &providers.ConfigError{
			Provider: "mock",
			Field:    "api_key",
			Message:  "Server missing DEEPSEEK_API_KEY. Set it in .env and restart.",
		}
	}
	return nil
}

// OpenStream implements providers.Upstream and records the messages sent.
func (m *MockUpstream) OpenStream(ctx context.Context, messages []providers.Message) (providers.DeltaStream, error) {
	if err := m.CheckCredential(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls = append(m.calls, append([]providers.Message(nil), messages...))
	m.mu.Unlock()

	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	return &mockStream{upstream: m}, nil
}

// Calls returns the message lists passed to OpenStream.
func (m *MockUpstream) Calls() [][]providers.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]providers.Message(nil), m.calls...)
}

// ClosedStreams returns how many streams were closed.
func (m *MockUpstream) ClosedStreams() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// SetHealthy sets the value reported by IsHealthy.
func (m *MockUpstream) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = healthy
}

// GetName implements providers.Upstream.
func (m *MockUpstream) GetName() string { return "mock" }

// GetModel implements providers.Upstream.
func (m *MockUpstream) GetModel() string { return "mock-model" }

// IsHealthy implements providers.Upstream.
func (m *MockUpstream) IsHealthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy
}

// GetHealth implements providers.Upstream.
func (m *MockUpstream) GetHealth() providers.ProviderHealth {
	return providers.ProviderHealth{IsHealthy: m.IsHealthy()}
}

// Close implements providers.Upstream.
func (m *MockUpstream) Close() error { return nil }

type mockStream struct {
	upstream *MockUpstream
	pos      int
}

func (s *mockStream) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m := s.upstream
	if m.PanicAfter >= 0 && s.pos == m.PanicAfter {
		panic("mock upstream panic")
	}
	if m.FailAfter >= 0 && s.pos == m.FailAfter {
		return "", m.StreamErr
	}
	if s.pos >= len(m.Deltas) {
		return "", io.EOF
	}
	delta := m.Deltas[s.pos]
	s.pos++
	return delta, nil
}

func (s *mockStream) Close() error {
	s.upstream.mu.Lock()
	s.upstream.closed++
	s.upstream.mu.Unlock()
	return nil
}
