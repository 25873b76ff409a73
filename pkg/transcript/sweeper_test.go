package transcript

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mercator-hq/parley/pkg/providers"
)

type recordedSweep struct {
	deleted int
	err     error
}

type fakeRecorder struct {
	mu     sync.Mutex
	sweeps []recordedSweep
}

func (r *fakeRecorder) RecordSweep(deleted int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps = append(r.sweeps, recordedSweep{deleted: deleted, err: err})
}

type failingStore struct {
	*MemoryStore
}

func (f failingStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	return 0, &StorageError{Backend: "memory", Op: "cleanup", Cause: errors.New("disk on fire")}
}

func TestSweeper_Sweep(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	store := NewMemoryStore()
	store.now = func() time.Time { return base.Add(-2 * time.Hour) }
	_ = store.Append(ctx, "stale", providers.Message{Role: providers.RoleUser, Content: "old"})
	store.now = func() time.Time { return base.Add(-10 * time.Minute) }
	_ = store.Append(ctx, "recent", providers.Message{Role: providers.RoleUser, Content: "new"})

	recorder := &fakeRecorder{}
	sweeper := NewSweeper(store, time.Hour, "*/15 * * * *", recorder)
	sweeper.now = func() time.Time { return base }

	deleted, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deletion, got %d", deleted)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 remaining session, got %d", store.Len())
	}
	if got, _ := store.Get(ctx, "recent"); len(got) != 1 {
		t.Error("recent session should survive the sweep")
	}

	if len(recorder.sweeps) != 1 || recorder.sweeps[0].deleted != 1 || recorder.sweeps[0].err != nil {
		t.Errorf("unexpected recorded sweeps %+v", recorder.sweeps)
	}
}

func TestSweeper_SweepError(t *testing.T) {
	recorder := &fakeRecorder{}
	sweeper := NewSweeper(failingStore{NewMemoryStore()}, time.Hour, "*/15 * * * *", recorder)

	_, err := sweeper.Sweep(context.Background())

	var serr *StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if len(recorder.sweeps) != 1 || recorder.sweeps[0].err == nil {
		t.Errorf("expected the failure to be recorded, got %+v", recorder.sweeps)
	}
}

func TestSweeper_StartStop(t *testing.T) {
	t.Run("schedules and stops with context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		sweeper := NewSweeper(NewMemoryStore(), time.Hour, "*/15 * * * *", nil)

		if err := sweeper.Start(ctx); err != nil {
			t.Fatalf("start failed: %v", err)
		}
		if !sweeper.IsRunning() {
			t.Fatal("expected sweeper to be running")
		}
		if next := sweeper.NextRun(); next == nil || !next.After(time.Now()) {
			t.Errorf("expected a future next run, got %v", next)
		}

		cancel()
		deadline := time.Now().Add(2 * time.Second)
		for sweeper.IsRunning() && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		if sweeper.IsRunning() {
			t.Error("expected sweeper to stop after context cancellation")
		}
	})

	t.Run("disabled without ttl", func(t *testing.T) {
		sweeper := NewSweeper(NewMemoryStore(), 0, "*/15 * * * *", nil)
		if err := sweeper.Start(context.Background()); err != nil {
			t.Fatalf("start failed: %v", err)
		}
		if sweeper.IsRunning() {
			t.Error("sweeper should not run with a zero TTL")
		}
		if sweeper.NextRun() != nil {
			t.Error("expected no next run")
		}
	})

	t.Run("invalid schedule", func(t *testing.T) {
		sweeper := NewSweeper(NewMemoryStore(), time.Hour, "every tuesday", nil)
		if err := sweeper.Start(context.Background()); err == nil {
			t.Fatal("expected error for invalid schedule")
		}
	})
}
