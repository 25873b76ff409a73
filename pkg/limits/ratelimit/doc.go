// Package ratelimit provides per-client request rate limiting.
//
// # Token Bucket Algorithm
//
// The token bucket algorithm allows bursts up to the bucket capacity while
// maintaining an average rate over time:
//
//	bucket := ratelimit.NewTokenBucket(60, 1) // 60 capacity, 1 refill/sec
//	if bucket.Take(1) {
//	    // Request allowed
//	} else {
//	    // Rate limit exceeded
//	}
//
// # Tiered Limiter
//
// Limiter keeps one bucket per tier for every client key and admits a
// request only when all tiers have room:
//
//	limiter := ratelimit.NewLimiter(ratelimit.Config{
//	    Tiers: []ratelimit.Tier{
//	        {Name: "minute", Limit: 60, Period: time.Minute},
//	        {Name: "hour", Limit: 600, Period: time.Hour},
//	    },
//	})
//	if res := limiter.Allow(clientIP); !res.Allowed {
//	    // 429, retry after res.RetryAfter
//	}
//
// # Thread Safety
//
// All rate limiters are thread-safe. Different client keys do not contend
// beyond a short map lookup.
package ratelimit
