package middleware

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// Context keys for storing values in request context. The request id
// itself lives in the logging context so every log record carries it.
const (
	// StartTimeKey stores the request start time for latency calculation.
	StartTimeKey contextKey = "start_time"

	// ClientIPKey stores the client address used for rate limiting.
	ClientIPKey contextKey = "client_ip"
)
