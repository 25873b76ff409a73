package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"mercator-hq/parley/pkg/limits/ratelimit"
	"mercator-hq/parley/pkg/proxy"
	"mercator-hq/parley/pkg/telemetry/metrics"
)

// RateLimitMiddleware rejects clients that exceed any rate limit tier with
// 429 and {"error": "rate limit exceeded"}. Retry-After carries the wait in
// whole seconds. Clients are keyed by remote address, or by the first
// X-Forwarded-For entry when trustForwardedFor is set.
//
// Example usage:
//
//	limiter := ratelimit.NewLimiter(ratelimit.Config{...})
//	handler = RateLimitMiddleware(limiter, false, collector)(handler)
func RateLimitMiddleware(limiter *ratelimit.Limiter, trustForwardedFor bool, collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r, trustForwardedFor)
			ctx := context.WithValue(r.Context(), ClientIPKey, ip)

			result := limiter.Allow(ip)
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))

			if !result.Allowed {
				collector.RecordRateLimited(result.Tier)
				slog.WarnContext(ctx, "rate limit exceeded",
					"client_ip", ip,
					"tier", result.Tier,
					"retry_after", result.RetryAfter.String(),
				)

				retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
				_ = proxy.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP returns the client address of r without port.
func ClientIP(r *http.Request, trustForwardedFor bool) string {
	if trustForwardedFor {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// GetClientIP extracts the rate limiting key from the context.
func GetClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(ClientIPKey).(string)
	return ip
}
