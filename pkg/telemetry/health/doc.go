// Package health serves the liveness and readiness probes.
//
//   - /health answers as long as the process is serving requests
//   - /ready runs the registered component checks (transcript store
//     reachability, upstream health) and returns 503 when any fails
//   - /version reports build information
//
// Usage:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("transcript_store", store.Ping)
//	mux.Handle("GET /ready", checker.ReadinessHandler())
package health
