package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvProvider loads secrets from environment variables.
//
// Secret names are converted to uppercase environment variable names
// with hyphens replaced by underscores, then prefixed.
//
// Example:
//   - Secret name: "deepseek_api_key"
//   - Env var name: "PARLEY_SECRET_DEEPSEEK_API_KEY" (with prefix "PARLEY_SECRET_")
type EnvProvider struct {
	Prefix string // Optional prefix for environment variables
}

// NewEnvProvider creates a new environment variable secret provider.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{
		Prefix: prefix,
	}
}

// GetSecret retrieves a secret from an environment variable.
// Surrounding whitespace is trimmed; a blank value counts as missing.
func (p *EnvProvider) GetSecret(ctx context.Context, name string) (string, error) {
	envVar := p.envVar(name)

	value := strings.TrimSpace(os.Getenv(envVar))
	if value == "" {
		return "", fmt.Errorf("%w in environment: %s (env var: %s)", ErrNotFound, name, envVar)
	}

	return value, nil
}

// Provider returns the provider name.
func (p *EnvProvider) Provider() string {
	return "env"
}

// envVar converts a secret name to an environment variable name.
//
// Example: "deepseek-api-key" -> "PARLEY_SECRET_DEEPSEEK_API_KEY"
func (p *EnvProvider) envVar(name string) string {
	return p.Prefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
