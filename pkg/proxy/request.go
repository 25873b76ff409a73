package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	// DefaultMaxBodyBytes bounds request bodies when no limit is configured.
	DefaultMaxBodyBytes = 1 << 20

	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"
)

// ChatRequest is the body of POST chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// CommitRequest is the body of POST commit.
type CommitRequest struct {
	Content string `json:"content"`
}

// DecodeJSON reads a JSON request body into dst.
//
// Decoding is lenient: a missing body, malformed JSON or fields of the
// wrong type leave dst at its zero value, so the caller's own field checks
// produce the client error. Only a body larger than maxBytes is rejected,
// with a *RequestError carrying 413.
//
// Example usage:
//
//	var req ChatRequest
//	if err := DecodeJSON(r, maxBytes, &req); err != nil {
//	    status, message := HandleError(err)
//	    WriteError(w, status, message)
//	    return
//	}
func DecodeJSON(r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return nil
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if int64(len(body)) > maxBytes {
		return &RequestError{
			StatusCode: http.StatusRequestEntityTooLarge,
			Message:    fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBytes),
		}
	}
	if len(body) == 0 {
		return nil
	}

	// Malformed JSON leaves dst untouched and a mistyped field stays zero
	_ = json.Unmarshal(body, dst)
	return nil
}
