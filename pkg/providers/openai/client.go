package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"mercator-hq/parley/pkg/providers"
)

// completionsPath is appended to the configured base URL.
const completionsPath = "/v1/chat/completions"

// Provider is the OpenAI-compatible upstream adapter (DeepSeek, OpenAI and
// compatible gateways). It implements providers.Upstream.
type Provider struct {
	*providers.HTTPProvider

	url string
}

var _ providers.Upstream = (*Provider)(nil)

// NewProvider creates a new OpenAI-compatible provider instance.
// An empty API key is accepted; OpenStream then fails with a
// *providers.ConfigError so the server can start without a credential.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		config.Name = "openai"
	}
	if config.BaseURL == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "base_url",
			Message:  "base URL is required",
		}
	}
	if config.Model == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "model",
			Message:  "model is required",
		}
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 100
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 10
	}

	p := &Provider{
		HTTPProvider: providers.NewHTTPProvider(config),
		url:          strings.TrimRight(config.BaseURL, "/") + completionsPath,
	}

	slog.Info("upstream provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
		"model", config.Model,
		"credential_set", p.CheckCredential() == nil,
	)

	return p, nil
}

// OpenStream sends a streaming chat completion request and returns the
// delta stream once the upstream has answered with a 2xx status.
func (p *Provider) OpenStream(ctx context.Context, messages []providers.Message) (providers.DeltaStream, error) {
	if err := p.CheckCredential(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(buildRequest(p.GetModel(), messages))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + p.GetConfig().APIKey,
		"Content-Type":  "application/json",
		"Accept":        "text/event-stream",
	}

	resp, err := p.DoRequest(ctx, "POST", p.url, body, headers)
	if err != nil {
		return nil, err
	}

	return newStreamReader(p.HTTPProvider, resp.Body), nil
}
