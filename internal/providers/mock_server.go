package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockServer is a fake OpenAI-compatible completion API for tests.
// It serves scripted SSE streams or error responses on
// /v1/chat/completions and records every request it receives.
type MockServer struct {
	server   *httptest.Server
	response MockResponse
	requests []RecordedRequest
	mu       sync.Mutex
}

// MockResponse defines what the next requests are answered with.
type MockResponse struct {
	// StatusCode is sent for non-streaming responses (default 200)
	StatusCode int

	// Body is written verbatim for non-streaming responses
	Body string

	// Lines are raw SSE lines written in order, each followed by a blank line.
	// When set, the response is a stream and Body is ignored.
	Lines []string

	// OmitDone suppresses the trailing "data: [DONE]" line
	OmitDone bool

	// CutAfter drops the connection after this many lines (0 = never)
	CutAfter int

	// Delay is slept between lines
	Delay time.Duration

	// Hold blocks the handler before responding until the request is cancelled
	Hold bool
}

// RecordedRequest is a request captured by the mock server.
type RecordedRequest struct {
	Path   string
	Header http.Header
	Body   CompletionBody
}

// CompletionBody is the decoded request body.
type CompletionBody struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// NewMockServer creates a new mock server answering with an empty stream.
func NewMockServer() *MockServer {
	ms := &MockServer{response: MockResponse{StatusCode: http.StatusOK}}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))
	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close closes the mock server.
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse sets the response for subsequent requests.
func (ms *MockServer) SetResponse(response MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.response = response
}

// StreamDeltas answers subsequent requests with one chunk per delta.
func (ms *MockServer) StreamDeltas(deltas ...string) {
	lines := make([]string, len(deltas))
	for i, d := range deltas {
		lines[i] = "data: " + MockStreamChunk(d)
	}
	ms.SetResponse(MockResponse{Lines: lines})
}

// RequestCount returns the number of requests received.
func (ms *MockServer) RequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.requests)
}

// Requests returns a copy of the recorded requests.
func (ms *MockServer) Requests() []RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]RecordedRequest(nil), ms.requests...)
}

func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	rec := RecordedRequest{Path: r.URL.Path, Header: r.Header.Clone()}
	raw, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(raw, &rec.Body)

	ms.mu.Lock()
	ms.requests = append(ms.requests, rec)
	response := ms.response
	ms.mu.Unlock()

	if r.URL.Path != "/v1/chat/completions" {
		http.NotFound(w, r)
		return
	}

	if response.Hold {
		<-r.Context().Done()
		return
	}

	if len(response.Lines) == 0 && response.Body != "" {
		status := response.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response.Body))
		return
	}

	ms.handleStream(w, r, response)
}

// handleStream writes Server-Sent Events.
func (ms *MockServer) handleStream(w http.ResponseWriter, r *http.Request, response MockResponse) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	for i, line := range response.Lines {
		if response.CutAfter > 0 && i == response.CutAfter {
			ms.cut(w)
			return
		}
		fmt.Fprintf(w, "%s\n\n", line)
		flusher.Flush()
		if response.Delay > 0 {
			select {
			case <-time.After(response.Delay):
			case <-r.Context().Done():
				return
			}
		}
	}

	if response.CutAfter > 0 && response.CutAfter >= len(response.Lines) {
		ms.cut(w)
		return
	}

	if !response.OmitDone {
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}
}

// cut closes the underlying connection without finishing the chunked body.
func (ms *MockServer) cut(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	_ = conn.Close()
}

// MockStreamChunk creates an OpenAI-compatible streaming chunk payload.
func MockStreamChunk(delta string) string {
	chunk := map[string]interface{}{
		"id":      "chatcmpl-123",
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   "deepseek-chat",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"delta":         map[string]interface{}{"content": delta},
				"finish_reason": nil,
			},
		},
	}

	bytes, _ := json.Marshal(chunk)
	return string(bytes)
}

// MockErrorResponse creates an error response in the upstream's format.
func MockErrorResponse(statusCode int, message string) MockResponse {
	body, _ := json.Marshal(map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    "invalid_request_error",
		},
	})
	return MockResponse{StatusCode: statusCode, Body: string(body)}
}

// MockAuthError creates a 401 authentication error response.
func MockAuthError() MockResponse {
	return MockErrorResponse(http.StatusUnauthorized, "Authentication Fails (no such user)")
}
