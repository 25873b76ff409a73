package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// OKResponse is the acknowledgement body of commit, reset and a
// successful ping.
type OKResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is the body of every pre-stream error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PingResponse is the body of GET ping.
type PingResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}

// WriteError writes {"error": message} with the given status code.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// SetStreamHeaders sets the headers of a streamed chat envelope. Proxies
// are asked not to buffer so each delta reaches the client on flush.
func SetStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Accel-Buffering", "no")
}
