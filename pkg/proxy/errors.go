package proxy

import (
	"errors"
	"net/http"

	"mercator-hq/parley/pkg/chat"
	"mercator-hq/parley/pkg/providers"
	"mercator-hq/parley/pkg/transcript"
)

// internalErrorMessage is returned for failures whose details stay in the
// server logs.
const internalErrorMessage = "internal server error"

// HandleError maps an error raised before a response is started to an HTTP
// status and a client-facing message.
//
// Mapping:
//   - *chat.ValidationError: 400 with the validation message
//   - *providers.ConfigError: 500 with the configuration message
//   - *transcript.StorageError: 500, details logged only
//   - *RequestError: its own status
//   - anything else: 500
//
// Example usage:
//
//	if err != nil {
//	    status, message := HandleError(err)
//	    WriteError(w, status, message)
//	    return
//	}
func HandleError(err error) (int, string) {
	var valErr *chat.ValidationError
	if errors.As(err, &valErr) {
		return http.StatusBadRequest, valErr.Message
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode, reqErr.Message
	}

	var cfgErr *providers.ConfigError
	if errors.As(err, &cfgErr) {
		return http.StatusInternalServerError, cfgErr.Message
	}

	var storageErr *transcript.StorageError
	if errors.As(err, &storageErr) {
		return http.StatusInternalServerError, "transcript storage unavailable"
	}

	return http.StatusInternalServerError, internalErrorMessage
}

// RequestError represents a request that could not be read.
type RequestError struct {
	// StatusCode is the HTTP status to answer with
	StatusCode int

	// Message is the client-facing description
	Message string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}
