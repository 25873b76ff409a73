package openai

import (
	"mercator-hq/parley/pkg/providers"
)

// ChatRequest represents an OpenAI-compatible streaming chat completion request.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// ChatMessage represents a message in OpenAI format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamResponse represents one `data:` payload of an OpenAI stream.
type StreamResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
}

// StreamChoice represents a streaming choice in OpenAI format.
type StreamChoice struct {
	Index        int         `json:"index"`
	Delta        StreamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

// StreamDelta represents the incremental content of a streaming choice.
// Content is a pointer because providers send null as often as they omit it.
type StreamDelta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content"`
}

// buildRequest converts a conversation to the wire request.
func buildRequest(model string, messages []providers.Message) *ChatRequest {
	out := make([]ChatMessage, len(messages))
	for i, msg := range messages {
		out[i] = ChatMessage{Role: string(msg.Role), Content: msg.Content}
	}
	return &ChatRequest{
		Model:    model,
		Messages: out,
		Stream:   true,
	}
}

// deltaText extracts the first choice's content from a stream payload.
// It returns "" when there is nothing to emit.
func deltaText(resp *StreamResponse) string {
	if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == nil {
		return ""
	}
	return *resp.Choices[0].Delta.Content
}
