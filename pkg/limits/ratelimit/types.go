package ratelimit

import "time"

// Tier is one rate limit: at most Limit requests per Period.
type Tier struct {
	// Name labels the tier in results and metrics (e.g., "minute")
	Name string

	// Limit is the number of requests allowed per Period
	Limit int

	// Period is the window the limit refills over
	Period time.Duration
}

// Config contains configuration for a Limiter.
type Config struct {
	// Tiers are all enforced; a request must fit in each.
	// Tiers with a zero Limit or Period are ignored.
	Tiers []Tier

	// IdleTTL is how long an unused client's buckets are kept.
	// Zero keeps them forever.
	IdleTTL time.Duration
}

// CheckResult contains the result of a rate limit check.
type CheckResult struct {
	// Allowed indicates if the request is permitted.
	Allowed bool

	// Tier names the exhausted tier (if Allowed=false).
	Tier string

	// Limit is the configured limit of the reported tier.
	Limit int64

	// Remaining is how many requests remain in the tightest tier.
	Remaining int64

	// RetryAfter suggests how long to wait before retrying.
	RetryAfter time.Duration
}
