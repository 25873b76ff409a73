package providers

import "context"

// Upstream opens streaming completions against an LLM completion API.
//
// Implementations are immutable once built: credential rotation replaces
// the whole value rather than mutating it, so a turn that captured an
// Upstream keeps using the same credential until it ends.
//
// Example usage:
//
//	if err := up.CheckCredential(); err != nil {
//	    return err // *ConfigError
//	}
//	stream, err := up.OpenStream(ctx, messages)
//	if err != nil {
//	    return err // *HTTPError or *TransportError
//	}
//	defer stream.Close()
//	for {
//	    delta, err := stream.Next(ctx)
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(delta)
//	}
type Upstream interface {
	// CheckCredential reports a *ConfigError when no usable credential is
	// configured. It never touches the network.
	CheckCredential() error

	// OpenStream sends one streaming completion request for messages and
	// returns the stream of text deltas once response headers arrive.
	//
	// Returns *ConfigError if the credential is missing, *HTTPError for a
	// non-2xx status and *TransportError if the request could not be sent.
	// Requests are never retried.
	OpenStream(ctx context.Context, messages []Message) (DeltaStream, error)

	// GetName returns the upstream's configured name.
	GetName() string

	// GetModel returns the model identifier sent with each request.
	GetModel() string

	// IsHealthy returns the current health status of the upstream.
	IsHealthy() bool

	// GetHealth returns detailed health information.
	GetHealth() ProviderHealth

	// Close releases pooled connections. Open streams are not affected.
	Close() error
}

// DeltaStream is a finite, pull-based sequence of non-empty text deltas.
// It is not restartable.
type DeltaStream interface {
	// Next blocks until the next delta is available.
	// Returns the delta and nil on success.
	// Returns "" and io.EOF when the stream ends normally.
	// Returns "" and an error (usually *TransportError) otherwise.
	Next(ctx context.Context) (string, error)

	// Close aborts the upstream read and releases the connection.
	// It is safe to call more than once.
	Close() error
}
