package providers

import "time"

// Role identifies the author of a conversation message.
type Role string

// Message role constants
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged entry of a conversation.
// Messages are values; a transcript is an ordered slice of them.
type Message struct {
	// Role identifies the message sender
	Role Role `json:"role"`

	// Content is the message text
	Content string `json:"content"`
}

// ProviderHealth tracks the health status of the upstream.
type ProviderHealth struct {
	// IsHealthy is false once ConsecutiveFailures reaches the threshold
	IsHealthy bool

	// LastCheck is the timestamp of the last recorded request outcome
	LastCheck time.Time

	// LastError is the most recent error encountered (nil if healthy)
	LastError error

	// ConsecutiveFailures counts sequential failed requests
	ConsecutiveFailures int

	// LastSuccessfulRequest is the timestamp of the last successful request
	LastSuccessfulRequest time.Time

	// TotalRequests is the total number of requests sent upstream
	TotalRequests int64

	// FailedRequests is the total number of failed requests
	FailedRequests int64
}

// ProviderConfig contains the settings needed to build an upstream client.
type ProviderConfig struct {
	// Name identifies the upstream in logs, errors and metrics
	Name string

	// BaseURL is the API endpoint base URL
	BaseURL string

	// APIKey is the bearer credential; surrounding whitespace is ignored
	APIKey string

	// Model is the model identifier sent with every request
	Model string

	// Timeout bounds a whole request, including reading a streamed body
	Timeout time.Duration

	// UnhealthyThreshold is the consecutive failure count that marks the
	// upstream unhealthy
	UnhealthyThreshold int

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains in the pool
	IdleConnTimeout time.Duration
}
