package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Limiter enforces request rate tiers per client key.
//
// Each key gets one token bucket per tier, with capacity equal to the tier
// limit and a refill rate of Limit/Period. A request is allowed only if
// every tier has a token; tokens are then taken from all tiers, so a
// request rejected by one tier does not consume from the others.
//
// Buckets of keys idle longer than IdleTTL are dropped lazily.
type Limiter struct {
	config Config
	now    func() time.Time

	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

type client struct {
	mu       sync.Mutex
	buckets  []*TokenBucket
	lastSeen time.Time
}

// NewLimiter creates a new rate limiter with the given configuration.
//
// Example:
//
//	limiter := NewLimiter(Config{
//	    Tiers: []Tier{
//	        {Name: "minute", Limit: 60, Period: time.Minute},
//	        {Name: "hour", Limit: 600, Period: time.Hour},
//	    },
//	    IdleTTL: time.Hour,
//	})
func NewLimiter(config Config) *Limiter {
	return newLimiter(config, time.Now)
}

func newLimiter(config Config, now func() time.Time) *Limiter {
	tiers := make([]Tier, 0, len(config.Tiers))
	for _, tier := range config.Tiers {
		if tier.Limit > 0 && tier.Period > 0 {
			tiers = append(tiers, tier)
		}
	}
	config.Tiers = tiers

	return &Limiter{
		config:    config,
		now:       now,
		clients:   make(map[string]*client),
		lastSweep: now(),
	}
}

// Allow checks and records one request for key.
func (l *Limiter) Allow(key string) *CheckResult {
	if len(l.config.Tiers) == 0 {
		return &CheckResult{Allowed: true, Remaining: math.MaxInt64}
	}

	c := l.client(key)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastSeen = l.now()

	for i, bucket := range c.buckets {
		bucket.mu.Lock()
		bucket.refillLocked()
		wait := bucket.waitLocked(1)
		bucket.mu.Unlock()

		if wait > 0 {
			return &CheckResult{
				Allowed:    false,
				Tier:       l.config.Tiers[i].Name,
				Limit:      bucket.Capacity(),
				Remaining:  0,
				RetryAfter: wait,
			}
		}
	}

	remaining := int64(math.MaxInt64)
	for _, bucket := range c.buckets {
		bucket.mu.Lock()
		bucket.takeLocked(1)
		if left := int64(bucket.tokens); left < remaining {
			remaining = left
		}
		bucket.mu.Unlock()
	}

	return &CheckResult{Allowed: true, Remaining: remaining}
}

// client returns the buckets of key, creating them on first use.
func (l *Limiter) client(key string) *client {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.config.IdleTTL > 0 && now.Sub(l.lastSweep) >= l.config.IdleTTL {
		l.sweepLocked(now)
	}

	c, ok := l.clients[key]
	if !ok {
		c = &client{
			buckets:  make([]*TokenBucket, len(l.config.Tiers)),
			lastSeen: now,
		}
		for i, tier := range l.config.Tiers {
			rate := float64(tier.Limit) / tier.Period.Seconds()
			c.buckets[i] = newTokenBucket(int64(tier.Limit), rate, l.now)
		}
		l.clients[key] = c
	}
	return c
}

// sweepLocked drops clients idle longer than IdleTTL. Caller must hold l.mu.
func (l *Limiter) sweepLocked(now time.Time) {
	for key, c := range l.clients {
		c.mu.Lock()
		idle := now.Sub(c.lastSeen) >= l.config.IdleTTL
		c.mu.Unlock()
		if idle {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
