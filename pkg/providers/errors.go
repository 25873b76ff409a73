package providers

import (
	"fmt"
	"net/http"
)

// ConfigError represents a provider configuration error.
// It is returned before any network call, e.g. when no API key is set.
type ConfigError struct {
	// Provider is the name of the provider with invalid configuration
	Provider string

	// Field is the configuration field that is invalid
	Field string

	// Message describes the configuration error
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return e.Message
}

// HTTPError represents a non-2xx response from the upstream.
// The response body is kept verbatim for diagnosis.
type HTTPError struct {
	// Provider is the name of the provider that returned the status
	Provider string

	// StatusCode is the HTTP status code
	StatusCode int

	// Body is the response body (possibly truncated)
	Body string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s from %s. Response: %s",
		e.StatusCode, http.StatusText(e.StatusCode), e.Provider, e.Body)
}

// TransportError represents a network failure talking to the upstream:
// connection refused, DNS failure, reset or timeout, either while opening
// the request or while reading the streamed body.
type TransportError struct {
	// Provider is the name of the provider that could not be reached
	Provider string

	// Op is the phase that failed ("request" or "read")
	Op string

	// Timeout is true when the failure was a deadline being exceeded
	Timeout bool

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s %s timed out: %v", e.Provider, e.Op, e.Cause)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *TransportError) Unwrap() error {
	return e.Cause
}
