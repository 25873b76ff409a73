package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ============================================================================
// Token Bucket Tests
// ============================================================================

func TestTokenBucket_Basic(t *testing.T) {
	bucket := NewTokenBucket(10, 10) // 10 capacity, 10 tokens/sec

	if !bucket.Take(5) {
		t.Error("Expected to take 5 tokens from full bucket")
	}

	if remaining := bucket.Remaining(); remaining < 5 || remaining > 6 {
		t.Errorf("Expected ~5 remaining, got %d", remaining)
	}

	if bucket.Capacity() != 10 {
		t.Errorf("Capacity() = %d, want 10", bucket.Capacity())
	}
}

func TestTokenBucket_Refill(t *testing.T) {
	clock := newFakeClock()
	bucket := newTokenBucket(10, 1, clock.Now) // 1 token/sec

	if !bucket.Take(10) {
		t.Fatal("Expected to drain full bucket")
	}
	if bucket.Take(1) {
		t.Fatal("Expected bucket to be empty")
	}

	// Fractional refills accumulate
	clock.Advance(500 * time.Millisecond)
	if bucket.Take(1) {
		t.Error("Expected half a token to be insufficient")
	}
	clock.Advance(500 * time.Millisecond)
	if !bucket.Take(1) {
		t.Error("Expected one token after one second")
	}

	// Never exceeds capacity
	clock.Advance(time.Hour)
	if got := bucket.Remaining(); got != 10 {
		t.Errorf("Remaining() = %d, want 10", got)
	}
}

func TestTokenBucket_TimeUntilAvailable(t *testing.T) {
	clock := newFakeClock()
	bucket := newTokenBucket(10, 10, clock.Now)

	if got := bucket.TimeUntilAvailable(1); got != 0 {
		t.Errorf("TimeUntilAvailable() on full bucket = %v, want 0", got)
	}

	bucket.Take(10)
	if got := bucket.TimeUntilAvailable(5); got != 500*time.Millisecond {
		t.Errorf("TimeUntilAvailable(5) = %v, want 500ms", got)
	}

	bucket.Reset()
	if got := bucket.Remaining(); got != 10 {
		t.Errorf("Remaining() after Reset = %d, want 10", got)
	}
}

// ============================================================================
// Limiter Tests
// ============================================================================

func twoTierConfig() Config {
	return Config{
		Tiers: []Tier{
			{Name: "minute", Limit: 3, Period: time.Minute},
			{Name: "hour", Limit: 5, Period: time.Hour},
		},
		IdleTTL: time.Hour,
	}
}

func TestLimiter_Tiers(t *testing.T) {
	clock := newFakeClock()
	limiter := newLimiter(twoTierConfig(), clock.Now)

	for i := 0; i < 3; i++ {
		if res := limiter.Allow("10.0.0.1"); !res.Allowed {
			t.Fatalf("request %d rejected: %+v", i, res)
		}
	}

	res := limiter.Allow("10.0.0.1")
	if res.Allowed {
		t.Fatal("fourth request within a minute allowed")
	}
	if res.Tier != "minute" || res.Limit != 3 {
		t.Errorf("result = %+v, want minute tier with limit 3", res)
	}
	if res.RetryAfter <= 0 || res.RetryAfter > 20*time.Second {
		t.Errorf("RetryAfter = %v, want (0, 20s]", res.RetryAfter)
	}

	// Other clients are independent
	if res := limiter.Allow("10.0.0.2"); !res.Allowed {
		t.Error("second client rejected")
	}

	// The minute tier refills; the hour tier then runs out
	clock.Advance(time.Minute)
	for i := 0; i < 2; i++ {
		if res := limiter.Allow("10.0.0.1"); !res.Allowed {
			t.Fatalf("request %d after a minute rejected: %+v", i, res)
		}
	}
	res = limiter.Allow("10.0.0.1")
	if res.Allowed || res.Tier != "hour" {
		t.Errorf("result = %+v, want hour tier rejection", res)
	}
}

func TestLimiter_RejectionDoesNotConsume(t *testing.T) {
	clock := newFakeClock()
	limiter := newLimiter(Config{
		Tiers: []Tier{
			{Name: "minute", Limit: 1, Period: time.Minute},
			{Name: "hour", Limit: 2, Period: time.Hour},
		},
	}, clock.Now)

	limiter.Allow("a")
	for i := 0; i < 5; i++ {
		if limiter.Allow("a").Allowed {
			t.Fatal("request allowed past the minute tier")
		}
	}

	// Rejected requests did not drain the hour tier
	clock.Advance(time.Minute)
	if res := limiter.Allow("a"); !res.Allowed {
		t.Errorf("request rejected after refill: %+v", res)
	}
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(Config{Tiers: []Tier{{Name: "zero", Limit: 0, Period: time.Minute}}})

	for i := 0; i < 100; i++ {
		if !limiter.Allow("a").Allowed {
			t.Fatal("limiter without tiers rejected a request")
		}
	}
	if limiter.Len() != 0 {
		t.Errorf("Len() = %d, want 0", limiter.Len())
	}
}

func TestLimiter_IdleEviction(t *testing.T) {
	clock := newFakeClock()
	limiter := newLimiter(twoTierConfig(), clock.Now)

	limiter.Allow("a")
	limiter.Allow("b")
	if limiter.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", limiter.Len())
	}

	clock.Advance(30 * time.Minute)
	limiter.Allow("b")

	clock.Advance(45 * time.Minute)
	limiter.Allow("c")

	// "a" idled for 75 minutes; "b" for 45
	if limiter.Len() != 2 {
		t.Errorf("Len() = %d, want 2 after eviction", limiter.Len())
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := NewLimiter(Config{
		Tiers: []Tier{{Name: "minute", Limit: 50, Period: time.Minute}},
	})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow("shared").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// A few tokens may refill while the goroutines run
	if allowed < 50 || allowed > 52 {
		t.Errorf("allowed = %d, want ~50", allowed)
	}
}
