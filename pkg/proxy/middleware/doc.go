// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// # Middleware Chain
//
// The server wraps the mux in this order (outermost first):
//
//	Recovery -> Logging -> RequestID -> Tracing -> SecurityHeaders -> CORS -> mux
//
// The API routes are additionally wrapped in RateLimit and the session
// middleware, so health and metrics probes are never throttled.
//
// # Middleware Types
//
// Request tracking:
//   - RequestIDMiddleware: Keep or generate X-Request-ID, add it to the logging context
//   - LoggingMiddleware: Log method, path, status, latency and size of every request
//
// Security and resilience:
//   - CORSMiddleware: Add CORS headers for configured origins, answer preflights
//   - SecurityHeadersMiddleware: Static hardening headers
//   - RateLimitMiddleware: Per-client tiered limits, 429 with Retry-After
//   - RecoveryMiddleware: Recover from panics, return 500 and count them
//
// Streaming:
//
// The logging response writer forwards Flush, so chat replies reach the client
// delta by delta through the whole chain.
package middleware
