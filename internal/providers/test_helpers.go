package providers

import (
	"time"

	"mercator-hq/parley/pkg/providers"
)

// TestConfig returns an upstream configuration pointing at baseURL.
func TestConfig(baseURL string) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:                "deepseek",
		BaseURL:             baseURL,
		APIKey:              "sk-test-key",
		Model:               "deepseek-chat",
		Timeout:             5 * time.Second,
		UnhealthyThreshold:  3,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
	}
}

// TestMessage creates a test message.
func TestMessage(role providers.Role, content string) providers.Message {
	return providers.Message{Role: role, Content: content}
}
