// Package openai implements the upstream adapter for OpenAI-compatible
// streaming chat completion APIs such as DeepSeek.
//
// # Basic Usage
//
//	provider, err := openai.NewProvider(providers.ProviderConfig{
//	    Name:    "deepseek",
//	    BaseURL: "https://api.deepseek.com",
//	    APIKey:  os.Getenv("DEEPSEEK_REAL_KEY"),
//	    Model:   "deepseek-chat",
//	    Timeout: 60 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	stream, err := provider.OpenStream(ctx, messages)
//
// # Wire Format
//
// The request is POST {base_url}/v1/chat/completions with
// {"model", "messages", "stream": true} and a bearer token. The response is
// read line by line:
//
//   - lines not starting with "data: " are ignored (blank separators,
//     comments, event fields, heartbeats)
//   - "data: [DONE]" ends the stream
//   - other payloads are parsed as JSON; malformed ones are skipped
//   - choices[0].delta.content is emitted when non-empty
package openai
