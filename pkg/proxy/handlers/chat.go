package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/parley/pkg/chat"
	"mercator-hq/parley/pkg/proxy"
	"mercator-hq/parley/pkg/session"
)

// ChatHandler serves the chat API: chat, ping, commit and reset.
type ChatHandler struct {
	service      *chat.Service
	maxBodyBytes int64
}

// NewChatHandler creates a chat API handler. Request bodies larger than
// maxBodyBytes are rejected with 413.
func NewChatHandler(service *chat.Service, maxBodyBytes int64) *ChatHandler {
	return &ChatHandler{
		service:      service,
		maxBodyBytes: maxBodyBytes,
	}
}

// Register mounts the chat API under prefix (e.g., "/api").
//
// Routes:
//   - POST {prefix}/chat
//   - GET  {prefix}/ping
//   - POST {prefix}/commit
//   - POST {prefix}/reset
func (h *ChatHandler) Register(mux *http.ServeMux, prefix string) {
	prefix = strings.TrimRight(prefix, "/")
	mux.HandleFunc("POST "+prefix+"/chat", h.HandleChat)
	mux.HandleFunc("GET "+prefix+"/ping", h.HandlePing)
	mux.HandleFunc("POST "+prefix+"/commit", h.HandleCommit)
	mux.HandleFunc("POST "+prefix+"/reset", h.HandleReset)
}

// HandleChat starts a turn and streams the reply envelope.
//
// Validation and storage failures are answered with a JSON error status
// before anything is streamed. Once the envelope has started, the status
// is 200 and failures are reported inside it.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req proxy.ChatRequest
	if err := proxy.DecodeJSON(r, h.maxBodyBytes, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	turn, err := h.service.BeginTurn(ctx, session.FromContext(ctx), req.Message)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	proxy.SetStreamHeaders(w)
	w.WriteHeader(http.StatusOK)

	// The turn logs and records its own outcome
	_ = turn.Stream(ctx, w)
}

// HandlePing probes the upstream. It always answers 200; a failed probe
// is reported as {"ok": false, "error": "..."}.
func (h *ChatHandler) HandlePing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := proxy.PingResponse{OK: true}
	if err := h.service.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "upstream ping failed", "error", err)
		resp = proxy.PingResponse{OK: false, Error: err.Error()}
	}

	if err := proxy.WriteJSON(w, http.StatusOK, resp); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

// HandleCommit appends the client's completed assistant reply to the
// transcript.
func (h *ChatHandler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req proxy.CommitRequest
	if err := proxy.DecodeJSON(r, h.maxBodyBytes, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.Commit(ctx, session.FromContext(ctx), req.Content); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeOK(w, r)
}

// HandleReset empties the session's transcript.
func (h *ChatHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.Reset(ctx, session.FromContext(ctx)); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeOK(w, r)
}

func (h *ChatHandler) writeOK(w http.ResponseWriter, r *http.Request) {
	if err := proxy.WriteJSON(w, http.StatusOK, proxy.OKResponse{OK: true}); err != nil {
		slog.ErrorContext(r.Context(), "failed to write response", "error", err)
	}
}

func (h *ChatHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status, message := proxy.HandleError(err)

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "request failed",
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	} else {
		slog.InfoContext(ctx, "request rejected",
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}

	if err := proxy.WriteError(w, status, message); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}
