package chat

import (
	"errors"

	"mercator-hq/parley/pkg/providers"
)

// ValidationError reports a rejected client input. It is raised before any
// upstream call or store mutation.
type ValidationError struct {
	// Field is the request field that failed validation
	Field string

	// Message is the client-facing description
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

// Upstream error kinds used in metrics and span attributes.
const (
	kindConfig    = "config"
	kindHTTP      = "http"
	kindTransport = "transport"
	kindInternal  = "internal"
)

// errorKind classifies an upstream failure.
func errorKind(err error) string {
	var configErr *providers.ConfigError
	var httpErr *providers.HTTPError
	var transportErr *providers.TransportError

	switch {
	case errors.As(err, &configErr):
		return kindConfig
	case errors.As(err, &httpErr):
		return kindHTTP
	case errors.As(err, &transportErr):
		return kindTransport
	default:
		return kindInternal
	}
}
