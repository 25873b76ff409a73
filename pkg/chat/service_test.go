package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	testproviders "mercator-hq/parley/internal/providers"
	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/providers"
	"mercator-hq/parley/pkg/telemetry/metrics"
	"mercator-hq/parley/pkg/transcript"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testSession = "session-1"

// failingStore fails the configured operation and delegates the rest.
type failingStore struct {
	*transcript.MemoryStore
	failOp string
}

func (f *failingStore) fail(op string) error {
	if f.failOp == op {
		return &transcript.StorageError{Backend: "test", Op: op, Cause: errors.New("disk full")}
	}
	return nil
}

func (f *failingStore) Get(ctx context.Context, sessionID string) ([]providers.Message, error) {
	if err := f.fail("get"); err != nil {
		return nil, err
	}
	return f.MemoryStore.Get(ctx, sessionID)
}

func (f *failingStore) Append(ctx context.Context, sessionID string, msg providers.Message) error {
	if err := f.fail("append"); err != nil {
		return err
	}
	return f.MemoryStore.Append(ctx, sessionID, msg)
}

func (f *failingStore) Save(ctx context.Context, sessionID string, messages []providers.Message, maxLen int) error {
	if err := f.fail("save"); err != nil {
		return err
	}
	return f.MemoryStore.Save(ctx, sessionID, messages, maxLen)
}

func (f *failingStore) Reset(ctx context.Context, sessionID string) error {
	if err := f.fail("reset"); err != nil {
		return err
	}
	return f.MemoryStore.Reset(ctx, sessionID)
}

type testEnv struct {
	service   *Service
	upstream  *testproviders.MockUpstream
	store     transcript.Store
	collector *metrics.Collector
}

func newTestEnv(t *testing.T, up *testproviders.MockUpstream, store transcript.Store, maxLen int) *testEnv {
	t.Helper()

	if store == nil {
		store = transcript.NewMemoryStore()
	}
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true}, nil)

	svc, err := NewService(Options{
		Upstreams: providers.NewHolder(up),
		Store:     store,
		MaxLength: maxLen,
		Metrics:   collector,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	return &testEnv{service: svc, upstream: up, store: store, collector: collector}
}

func (e *testEnv) history(t *testing.T) []providers.Message {
	t.Helper()
	history, err := e.store.Get(context.Background(), testSession)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	return history
}

func errorEvent(t *testing.T, err error) string {
	t.Helper()
	data, mErr := json.Marshal(StreamEvent{Error: err.Error()})
	if mErr != nil {
		t.Fatalf("json.Marshal() error = %v", mErr)
	}
	return string(data)
}

func TestNewService(t *testing.T) {
	store := transcript.NewMemoryStore()
	holder := providers.NewHolder(testproviders.NewMockUpstream())

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "valid", opts: Options{Upstreams: holder, Store: store, MaxLength: 20}},
		{name: "missing upstreams", opts: Options{Store: store, MaxLength: 20}, wantErr: true},
		{name: "missing store", opts: Options{Upstreams: holder, MaxLength: 20}, wantErr: true},
		{name: "zero max length", opts: Options{Upstreams: holder, Store: store}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewService() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && svc.MaxLength() != tt.opts.MaxLength {
				t.Errorf("MaxLength() = %d, want %d", svc.MaxLength(), tt.opts.MaxLength)
			}
		})
	}
}

func TestTurn_StreamCompleted(t *testing.T) {
	env := newTestEnv(t, testproviders.NewMockUpstream("Hel", "lo"), nil, 20)
	ctx := context.Background()

	turn, err := env.service.BeginTurn(ctx, testSession, "  Hello  ")
	if err != nil {
		t.Fatalf("BeginTurn() error = %v", err)
	}

	var body bytes.Buffer
	if err := turn.Stream(ctx, &body); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	want := `{"ok": true, "chunks": [{"delta":"Hel"},{"delta":"lo"}]}`
	if body.String() != want {
		t.Errorf("body = %s, want %s", body.String(), want)
	}

	calls := env.upstream.Calls()
	if len(calls) != 1 {
		t.Fatalf("upstream calls = %d, want 1", len(calls))
	}
	wantSent := []providers.Message{{Role: providers.RoleUser, Content: "Hello"}}
	if len(calls[0]) != 1 || calls[0][0] != wantSent[0] {
		t.Errorf("sent messages = %v, want %v", calls[0], wantSent)
	}

	// The reply is not stored until committed
	history := env.history(t)
	if len(history) != 1 || history[0] != wantSent[0] {
		t.Errorf("history = %v, want %v", history, wantSent)
	}

	if env.upstream.ClosedStreams() != 1 {
		t.Errorf("closed streams = %d, want 1", env.upstream.ClosedStreams())
	}

	expected := `
# HELP parley_turns_total Total number of chat turns by outcome
# TYPE parley_turns_total counter
parley_turns_total{outcome="completed"} 1
# HELP parley_deltas_total Total number of text deltas relayed to clients
# TYPE parley_deltas_total counter
parley_deltas_total 2
`
	if err := testutil.GatherAndCompare(env.collector.Registry(), strings.NewReader(expected),
		"parley_turns_total", "parley_deltas_total"); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestTurn_SendsPriorHistory(t *testing.T) {
	env := newTestEnv(t, testproviders.NewMockUpstream("ok"), nil, 20)
	ctx := context.Background()

	if err := env.store.Save(ctx, testSession, []providers.Message{
		{Role: providers.RoleUser, Content: "Hi"},
		{Role: providers.RoleAssistant, Content: "Hello!"},
	}, 20); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	turn, err := env.service.BeginTurn(ctx, testSession, "How are you?")
	if err != nil {
		t.Fatalf("BeginTurn() error = %v", err)
	}
	if got := len(turn.History()); got != 3 {
		t.Fatalf("turn history length = %d, want 3", got)
	}

	if err := turn.Stream(ctx, &bytes.Buffer{}); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	sent := env.upstream.Calls()[0]
	want := []string{"Hi", "Hello!", "How are you?"}
	for i, msg := range sent {
		if msg.Content != want[i] {
			t.Errorf("sent[%d] = %q, want %q", i, msg.Content, want[i])
		}
	}
}

func TestBeginTurn_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		message    string
		missingKey bool
		check      func(t *testing.T, err error)
	}{
		{
			name:    "empty message",
			message: "",
			check: func(t *testing.T, err error) {
				var valErr *ValidationError
				if !errors.As(err, &valErr) || valErr.Message != "message required" {
					t.Errorf("error = %v, want ValidationError(message required)", err)
				}
			},
		},
		{
			name:    "whitespace message",
			message: " \n\t ",
			check: func(t *testing.T, err error) {
				var valErr *ValidationError
				if !errors.As(err, &valErr) {
					t.Errorf("error = %v, want *ValidationError", err)
				}
			},
		},
		{
			name:       "empty message wins over missing key",
			message:    "",
			missingKey: true,
			check: func(t *testing.T, err error) {
				var valErr *ValidationError
				if !errors.As(err, &valErr) {
					t.Errorf("error = %v, want *ValidationError", err)
				}
			},
		},
		{
			name:       "missing key",
			message:    "Hello",
			missingKey: true,
			check: func(t *testing.T, err error) {
				var cfgErr *providers.ConfigError
				if !errors.As(err, &cfgErr) {
					t.Errorf("error = %v, want *providers.ConfigError", err)
				}
				if !strings.Contains(err.Error(), "DEEPSEEK_API_KEY") {
					t.Errorf("error = %q, want mention of DEEPSEEK_API_KEY", err.Error())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := testproviders.NewMockUpstream("never")
			up.MissingKey = tt.missingKey
			env := newTestEnv(t, up, nil, 20)

			turn, err := env.service.BeginTurn(context.Background(), testSession, tt.message)
			if err == nil {
				t.Fatalf("BeginTurn() = %v, want error", turn)
			}
			tt.check(t, err)

			if len(env.upstream.Calls()) != 0 {
				t.Error("upstream was called for a rejected turn")
			}
			if len(env.history(t)) != 0 {
				t.Error("transcript was modified for a rejected turn")
			}
		})
	}
}

func TestTurn_StreamUpstreamFailure(t *testing.T) {
	httpErr := &providers.HTTPError{Provider: "mock", StatusCode: 401, Body: `{"error":"bad key"}`}
	readErr := &providers.TransportError{Provider: "mock", Op: "read", Cause: errors.New("connection reset")}

	tests := []struct {
		name      string
		setup     func(up *testproviders.MockUpstream)
		wantErr   error
		wantBody  func(t *testing.T) string
		wantKind  string
		wantDelta int
	}{
		{
			name:  "open fails",
			setup: func(up *testproviders.MockUpstream) { up.OpenErr = httpErr },
			wantBody: func(t *testing.T) string {
				return `{"ok": true, "chunks": [` + errorEvent(t, httpErr) + `]}`
			},
			wantErr:  httpErr,
			wantKind: "http",
		},
		{
			name: "fails mid-stream",
			setup: func(up *testproviders.MockUpstream) {
				up.FailAfter = 1
				up.StreamErr = readErr
			},
			wantBody: func(t *testing.T) string {
				return `{"ok": true, "chunks": [{"delta":"Hel"},` + errorEvent(t, readErr) + `]}`
			},
			wantErr:   readErr,
			wantKind:  "transport",
			wantDelta: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := testproviders.NewMockUpstream("Hel", "lo")
			tt.setup(up)
			env := newTestEnv(t, up, nil, 20)
			ctx := context.Background()

			turn, err := env.service.BeginTurn(ctx, testSession, "Hello")
			if err != nil {
				t.Fatalf("BeginTurn() error = %v", err)
			}

			var body bytes.Buffer
			err = turn.Stream(ctx, &body)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Stream() error = %v, want %v", err, tt.wantErr)
			}
			if want := tt.wantBody(t); body.String() != want {
				t.Errorf("body = %s, want %s", body.String(), want)
			}

			var parsed struct {
				OK     bool          `json:"ok"`
				Chunks []StreamEvent `json:"chunks"`
			}
			if err := json.Unmarshal(body.Bytes(), &parsed); err != nil {
				t.Fatalf("body is not valid JSON: %v", err)
			}
			if !parsed.OK || len(parsed.Chunks) != tt.wantDelta+1 {
				t.Errorf("parsed = %+v, want ok with %d chunks", parsed, tt.wantDelta+1)
			}

			// The user message stays in the transcript
			if len(env.history(t)) != 1 {
				t.Errorf("history length = %d, want 1", len(env.history(t)))
			}

			expected := `
# HELP parley_turns_total Total number of chat turns by outcome
# TYPE parley_turns_total counter
parley_turns_total{outcome="failed"} 1
# HELP parley_upstream_errors_total Total number of upstream errors by kind
# TYPE parley_upstream_errors_total counter
parley_upstream_errors_total{kind="` + tt.wantKind + `",upstream="mock"} 1
`
			if err := testutil.GatherAndCompare(env.collector.Registry(), strings.NewReader(expected),
				"parley_turns_total", "parley_upstream_errors_total"); err != nil {
				t.Errorf("unexpected metrics: %v", err)
			}
		})
	}
}

func TestTurn_StreamRecoversPanic(t *testing.T) {
	up := testproviders.NewMockUpstream("Hel", "lo")
	up.PanicAfter = 1
	env := newTestEnv(t, up, nil, 20)
	ctx := context.Background()

	turn, err := env.service.BeginTurn(ctx, testSession, "Hello")
	if err != nil {
		t.Fatalf("BeginTurn() error = %v", err)
	}

	var body bytes.Buffer
	if err := turn.Stream(ctx, &body); err == nil {
		t.Error("Stream() error = nil, want panic error")
	}

	want := `{"ok": true, "chunks": [{"delta":"Hel"},{"error":"` + internalErrorMessage + `"}]}`
	if body.String() != want {
		t.Errorf("body = %s, want %s", body.String(), want)
	}
	if up.ClosedStreams() != 1 {
		t.Errorf("closed streams = %d, want 1", up.ClosedStreams())
	}

	expected := `
# HELP parley_panics_recovered_total Total number of recovered panics
# TYPE parley_panics_recovered_total counter
parley_panics_recovered_total{where="stream"} 1
`
	if err := testutil.GatherAndCompare(env.collector.Registry(), strings.NewReader(expected),
		"parley_panics_recovered_total"); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestTurn_StreamClientGone(t *testing.T) {
	env := newTestEnv(t, testproviders.NewMockUpstream("Hel", "lo"), nil, 20)

	t.Run("write fails", func(t *testing.T) {
		turn, err := env.service.BeginTurn(context.Background(), testSession, "Hello")
		if err != nil {
			t.Fatalf("BeginTurn() error = %v", err)
		}
		if err := turn.Stream(context.Background(), &failingWriter{}); err == nil {
			t.Error("Stream() error = nil, want write error")
		}
	})

	t.Run("context cancelled", func(t *testing.T) {
		turn, err := env.service.BeginTurn(context.Background(), testSession, "Hello again")
		if err != nil {
			t.Fatalf("BeginTurn() error = %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var body bytes.Buffer
		if err := turn.Stream(ctx, &body); !errors.Is(err, context.Canceled) {
			t.Errorf("Stream() error = %v, want context.Canceled", err)
		}
		if !strings.HasSuffix(body.String(), "]}") {
			t.Errorf("body = %s, want closed envelope", body.String())
		}
	})
}

func TestBeginTurn_StorageFailure(t *testing.T) {
	for _, op := range []string{"append", "get"} {
		t.Run(op, func(t *testing.T) {
			store := &failingStore{MemoryStore: transcript.NewMemoryStore(), failOp: op}
			env := newTestEnv(t, testproviders.NewMockUpstream("x"), store, 20)

			_, err := env.service.BeginTurn(context.Background(), testSession, "Hello")
			var storageErr *transcript.StorageError
			if !errors.As(err, &storageErr) {
				t.Fatalf("BeginTurn() error = %v, want *transcript.StorageError", err)
			}
			if storageErr.Op != op {
				t.Errorf("StorageError.Op = %q, want %q", storageErr.Op, op)
			}
			if len(env.upstream.Calls()) != 0 {
				t.Error("upstream was called after a storage failure")
			}

			expected := `
# HELP parley_storage_errors_total Total number of failed transcript store operations
# TYPE parley_storage_errors_total counter
parley_storage_errors_total{op="` + op + `"} 1
`
			if err := testutil.GatherAndCompare(env.collector.Registry(), strings.NewReader(expected),
				"parley_storage_errors_total"); err != nil {
				t.Errorf("unexpected metrics: %v", err)
			}
		})
	}
}

func TestCommit(t *testing.T) {
	t.Run("appends trimmed assistant reply", func(t *testing.T) {
		env := newTestEnv(t, testproviders.NewMockUpstream(), nil, 20)
		ctx := context.Background()

		if err := env.store.Append(ctx, testSession, providers.Message{Role: providers.RoleUser, Content: "Hi"}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if err := env.service.Commit(ctx, testSession, "  Hello!  "); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}

		history := env.history(t)
		want := []providers.Message{
			{Role: providers.RoleUser, Content: "Hi"},
			{Role: providers.RoleAssistant, Content: "Hello!"},
		}
		if len(history) != len(want) {
			t.Fatalf("history = %v, want %v", history, want)
		}
		for i := range want {
			if history[i] != want[i] {
				t.Errorf("history[%d] = %v, want %v", i, history[i], want[i])
			}
		}
	})

	t.Run("trims to max length", func(t *testing.T) {
		env := newTestEnv(t, testproviders.NewMockUpstream(), nil, 4)
		ctx := context.Background()

		for _, content := range []string{"u1", "u2", "u3", "u4"} {
			if err := env.store.Append(ctx, testSession, providers.Message{Role: providers.RoleUser, Content: content}); err != nil {
				t.Fatalf("Append() error = %v", err)
			}
		}
		if err := env.service.Commit(ctx, testSession, "a1"); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}

		history := env.history(t)
		if len(history) != 4 {
			t.Fatalf("history length = %d, want 4", len(history))
		}
		if history[0].Content != "u2" || history[3].Content != "a1" {
			t.Errorf("history = %v, want u2..a1", history)
		}
	})

	t.Run("empty content", func(t *testing.T) {
		store := &failingStore{MemoryStore: transcript.NewMemoryStore(), failOp: "get"}
		env := newTestEnv(t, testproviders.NewMockUpstream(), store, 20)

		err := env.service.Commit(context.Background(), testSession, "   ")
		var valErr *ValidationError
		if !errors.As(err, &valErr) || valErr.Message != "content required" {
			t.Errorf("Commit() error = %v, want ValidationError(content required)", err)
		}
	})

	t.Run("storage failure", func(t *testing.T) {
		store := &failingStore{MemoryStore: transcript.NewMemoryStore(), failOp: "save"}
		env := newTestEnv(t, testproviders.NewMockUpstream(), store, 20)

		err := env.service.Commit(context.Background(), testSession, "reply")
		var storageErr *transcript.StorageError
		if !errors.As(err, &storageErr) {
			t.Errorf("Commit() error = %v, want *transcript.StorageError", err)
		}
	})
}

func TestReset(t *testing.T) {
	env := newTestEnv(t, testproviders.NewMockUpstream(), nil, 20)
	ctx := context.Background()

	if err := env.store.Append(ctx, testSession, providers.Message{Role: providers.RoleUser, Content: "Hi"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// Reset is idempotent
	for i := 0; i < 2; i++ {
		if err := env.service.Reset(ctx, testSession); err != nil {
			t.Fatalf("Reset() error = %v", err)
		}
	}

	history, err := env.service.History(ctx, testSession)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history = %v, want empty", history)
	}

	expected := `
# HELP parley_resets_total Total number of transcript resets
# TYPE parley_resets_total counter
parley_resets_total 2
`
	if err := testutil.GatherAndCompare(env.collector.Registry(), strings.NewReader(expected),
		"parley_resets_total"); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestPing(t *testing.T) {
	openErr := &providers.TransportError{Provider: "mock", Op: "request", Cause: errors.New("connection refused")}

	tests := []struct {
		name    string
		setup   func(up *testproviders.MockUpstream)
		wantErr bool
	}{
		{name: "first delta", setup: func(up *testproviders.MockUpstream) {}},
		{name: "empty stream", setup: func(up *testproviders.MockUpstream) { up.Deltas = nil }},
		{name: "missing key", setup: func(up *testproviders.MockUpstream) { up.MissingKey = true }, wantErr: true},
		{name: "open fails", setup: func(up *testproviders.MockUpstream) { up.OpenErr = openErr }, wantErr: true},
		{name: "panics", setup: func(up *testproviders.MockUpstream) { up.PanicAfter = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := testproviders.NewMockUpstream("pong", "never read")
			tt.setup(up)
			env := newTestEnv(t, up, nil, 20)

			err := env.service.Ping(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Ping() error = %v, wantErr %v", err, tt.wantErr)
			}

			if calls := up.Calls(); len(calls) == 1 {
				if len(calls[0]) != 1 || calls[0][0].Content != "ping" {
					t.Errorf("ping sent %v, want single ping message", calls[0])
				}
			}
			if env.store.(*transcript.MemoryStore).Len() != 0 {
				t.Error("Ping() touched the transcript store")
			}
		})
	}
}
