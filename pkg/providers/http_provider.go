package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"mercator-hq/parley/pkg/telemetry/tracing"
)

// maxErrorBody caps how much of a non-2xx response body is kept.
const maxErrorBody = 64 << 10

// HTTPProvider is the base implementation for HTTP-based upstream adapters.
// It provides connection pooling, timeout handling, error classification
// and passive health tracking. It never retries.
//
// Concrete adapters embed this struct and implement OpenStream.
type HTTPProvider struct {
	// config contains the provider configuration
	config ProviderConfig

	// client is the HTTP client with connection pooling
	client *http.Client

	// health tracks the provider's health status
	health ProviderHealth

	// healthMu protects concurrent access to health status
	healthMu sync.RWMutex
}

// NewHTTPProvider creates a new base HTTP provider with connection pooling.
// The client timeout covers the full exchange, including the streamed body.
func NewHTTPProvider(config ProviderConfig) *HTTPProvider {
	config.APIKey = strings.TrimSpace(config.APIKey)
	if config.UnhealthyThreshold <= 0 {
		config.UnhealthyThreshold = 3
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPProvider{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		health: ProviderHealth{
			IsHealthy:             true, // Start optimistic
			LastCheck:             time.Now(),
			LastSuccessfulRequest: time.Now(),
		},
	}
}

// GetName returns the provider's configured name.
func (p *HTTPProvider) GetName() string {
	return p.config.Name
}

// GetModel returns the configured model identifier.
func (p *HTTPProvider) GetModel() string {
	return p.config.Model
}

// GetConfig returns the provider's configuration.
func (p *HTTPProvider) GetConfig() ProviderConfig {
	return p.config
}

// CheckCredential reports a *ConfigError when the API key is empty.
func (p *HTTPProvider) CheckCredential() error {
	if p.config.APIKey == "" {
		return &ConfigError{
			Provider: p.config.Name,
			Field:    "api_key",
			Message:  "Server missing DEEPSEEK_API_KEY. Set it in .env and restart.",
		}
	}
	return nil
}

// DoRequest performs a single HTTP request and classifies failures.
// On success the caller owns resp.Body. A non-2xx status is returned as
// *HTTPError with the body attached; a network failure as *TransportError.
func (p *HTTPProvider) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	tracing.Inject(ctx, req.Header)

	slog.DebugContext(ctx, "sending request to provider",
		"provider", p.config.Name,
		"method", method,
		"url", url,
	)

	resp, err := p.client.Do(req)
	if err != nil {
		terr := p.transportError(ctx, "request", err)
		p.RecordOutcome(ctx, terr)
		return nil, terr
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()

	herr := &HTTPError{
		Provider:   p.config.Name,
		StatusCode: resp.StatusCode,
		Body:       string(errorBody),
	}
	p.RecordOutcome(ctx, herr)
	return nil, herr
}

// transportError wraps a network failure. Deadline expiry is flagged so
// callers can tell a slow upstream from an unreachable one.
func (p *HTTPProvider) transportError(ctx context.Context, op string, err error) *TransportError {
	timeout := errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}
	return &TransportError{
		Provider: p.config.Name,
		Op:       op,
		Timeout:  timeout,
		Cause:    err,
	}
}

// ReadError wraps a failure that happened while reading a streamed body.
func (p *HTTPProvider) ReadError(ctx context.Context, err error) *TransportError {
	terr := p.transportError(ctx, "read", err)
	p.RecordOutcome(ctx, terr)
	return terr
}

// Close releases idle pooled connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	slog.Debug("provider closed", "provider", p.config.Name)
	return nil
}
