package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// SweepRecorder receives the outcome of each sweep.
type SweepRecorder interface {
	RecordSweep(deleted int, err error)
}

// Sweeper deletes idle transcripts on a cron schedule.
// A transcript is idle when it has not been modified for longer than the TTL.
type Sweeper struct {
	store    Store
	ttl      time.Duration
	schedule string
	recorder SweepRecorder
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
	now      func() time.Time
}

// NewSweeper creates a sweeper for store. recorder may be nil.
func NewSweeper(store Store, ttl time.Duration, schedule string, recorder SweepRecorder) *Sweeper {
	return &Sweeper{
		store:    store,
		ttl:      ttl,
		schedule: schedule,
		recorder: recorder,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "transcript.sweeper"),
		now:      time.Now,
	}
}

// Start schedules the sweep using a standard five-field cron expression.
//
// Common cron expressions:
//   - "*/15 * * * *" - Every 15 minutes
//   - "0 * * * *"    - Hourly
//   - "0 3 * * *"    - Daily at 3 AM
//
// A zero TTL or empty schedule disables the sweeper.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ttl <= 0 || s.schedule == "" {
		s.logger.Info("transcript expiry disabled")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		_, _ = s.Sweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("transcript sweeper started",
		"schedule", s.schedule,
		"ttl", s.ttl,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Sweep runs one expiry pass and returns the number of deleted transcripts.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.ttl)

	deleted, err := s.store.Cleanup(ctx, cutoff)
	if s.recorder != nil {
		s.recorder.RecordSweep(deleted, err)
	}
	if err != nil {
		s.logger.Error("transcript sweep failed", "error", err)
		return 0, err
	}

	if deleted > 0 {
		s.logger.Info("transcript sweep completed",
			"deleted_count", deleted,
			"cutoff", cutoff,
		)
	} else {
		s.logger.Debug("transcript sweep completed, nothing expired")
	}
	return deleted, nil
}

// Stop stops the scheduler and waits for a running sweep to complete.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("transcript sweeper stopped")
	}
}

// IsRunning returns true if the sweeper is scheduled.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled sweep time, or nil when not running.
func (s *Sweeper) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if !s.running || len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
