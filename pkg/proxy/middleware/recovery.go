package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"mercator-hq/parley/pkg/telemetry/metrics"
)

// RecoveryMiddleware recovers from panics in HTTP handlers and returns a
// 500 response with body {"error": "internal server error"}. The panic is
// logged with its stack trace and counted; details are not exposed to
// clients. A nil collector disables the count.
//
// Example usage:
//
//	handler = RecoveryMiddleware(collector)(handler)
func RecoveryMiddleware(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					collector.RecordPanic("handler")

					slog.ErrorContext(r.Context(), "panic in handler",
						"error", err,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)

					// Encode error response (ignore encoding errors at this point)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error": "internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
