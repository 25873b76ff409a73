package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket implements the token bucket rate limiting algorithm.
//
// The token bucket allows bursts up to the capacity while maintaining
// an average rate over time. Tokens are added continuously at the refill
// rate; fractional tokens carry over between refills. Each request
// consumes one or more tokens. If insufficient tokens are available, the
// request is rejected.
//
// # Algorithm
//
//  1. Calculate tokens to add based on elapsed time since last refill
//  2. Add tokens (up to capacity)
//  3. Check if enough tokens available for request
//  4. If yes: consume tokens and allow request
//  5. If no: reject request
//
// # Thread Safety
//
// TokenBucket is thread-safe using sync.Mutex for all operations.
type TokenBucket struct {
	capacity   float64   // Maximum tokens in bucket
	tokens     float64   // Current available tokens
	refillRate float64   // Tokens added per second
	lastRefill time.Time // Last time tokens were refilled
	now        func() time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter.
//
// Parameters:
//   - capacity: Maximum number of tokens in the bucket (burst size)
//   - refillRate: Number of tokens added per second (average rate)
//
// Example:
//
//	// 60 requests/minute, burst up to 60
//	bucket := NewTokenBucket(60, 1)
func NewTokenBucket(capacity int64, refillRate float64) *TokenBucket {
	return newTokenBucket(capacity, refillRate, time.Now)
}

func newTokenBucket(capacity int64, refillRate float64, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity), // Start with full bucket
		refillRate: refillRate,
		lastRefill: now(),
		now:        now,
	}
}

// Take attempts to consume n tokens from the bucket.
// Returns true if tokens were available and consumed, false otherwise.
func (tb *TokenBucket) Take(n int64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()
	return tb.takeLocked(n)
}

// Remaining returns the number of whole tokens currently available.
func (tb *TokenBucket) Remaining() int64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()
	return int64(tb.tokens)
}

// Capacity returns the maximum bucket capacity.
func (tb *TokenBucket) Capacity() int64 {
	return int64(tb.capacity)
}

// Reset resets the bucket to full capacity.
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = tb.now()
}

// TimeUntilAvailable returns how long until n tokens will be available.
// Returns 0 if tokens are immediately available.
func (tb *TokenBucket) TimeUntilAvailable(n int64) time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()
	return tb.waitLocked(n)
}

// takeLocked consumes n tokens if available. Caller must hold lock.
func (tb *TokenBucket) takeLocked(n int64) bool {
	if tb.tokens >= float64(n) {
		tb.tokens -= float64(n)
		return true
	}
	return false
}

// waitLocked returns the time until n tokens are available.
// Caller must hold lock.
func (tb *TokenBucket) waitLocked(n int64) time.Duration {
	needed := float64(n) - tb.tokens
	if needed <= 0 || tb.refillRate <= 0 {
		return 0
	}
	return time.Duration(needed / tb.refillRate * float64(time.Second))
}

// refillLocked adds tokens based on elapsed time since last refill.
// Caller must hold lock.
func (tb *TokenBucket) refillLocked() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill)
	if elapsed <= 0 {
		return
	}

	tb.tokens += elapsed.Seconds() * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}
