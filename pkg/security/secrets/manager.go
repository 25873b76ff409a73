package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"mercator-hq/parley/pkg/config"
)

// Manager resolves secrets from an ordered list of providers.
//
// The first provider that returns a value wins. A provider reporting
// ErrNotFound passes to the next; any other error is remembered and
// returned if no later provider has the secret.
type Manager struct {
	providers []SecretProvider
}

// NewManager creates a secret manager trying providers in order.
func NewManager(providers ...SecretProvider) *Manager {
	return &Manager{providers: providers}
}

// NewManagerFromConfig builds the manager for the configured sources: the
// secrets directory first when set, then the prefixed environment.
//
// The returned close function stops the directory watcher.
func NewManagerFromConfig(cfg config.SecretsConfig) (*Manager, func() error, error) {
	var providers []SecretProvider
	closeFn := func() error { return nil }

	if cfg.Dir != "" {
		fp, err := NewFileProvider(cfg.Dir, cfg.Watch)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open secrets directory: %w", err)
		}
		providers = append(providers, fp)
		closeFn = fp.Close
	}
	providers = append(providers, NewEnvProvider(cfg.EnvPrefix))

	return NewManager(providers...), closeFn, nil
}

// GetSecret retrieves a secret from the first provider that has it.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	var lastErr error
	for _, provider := range m.providers {
		value, err := provider.GetSecret(ctx, name)
		if err == nil {
			slog.Debug("secret retrieved",
				"provider", provider.Provider(),
				"name", redactSecretName(name),
			)
			return value, nil
		}

		if !errors.Is(err, ErrNotFound) {
			lastErr = err
			slog.Warn("secret provider failed",
				"provider", provider.Provider(),
				"name", redactSecretName(name),
				"error", err,
			)
		}
	}

	if lastErr != nil {
		return "", fmt.Errorf("failed to get secret %q: %w", name, lastErr)
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Refresh reloads all refreshable providers.
func (m *Manager) Refresh(ctx context.Context) error {
	var errs []string
	for _, provider := range m.providers {
		refreshable, ok := provider.(RefreshableProvider)
		if !ok {
			continue
		}
		if err := refreshable.Refresh(ctx); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", provider.Provider(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to refresh some providers: %s", strings.Join(errs, "; "))
	}
	return nil
}

// OnChange registers fn with every provider that reports changes.
// It returns false when no provider can.
func (m *Manager) OnChange(fn func()) bool {
	registered := false
	for _, provider := range m.providers {
		if notifier, ok := provider.(ChangeNotifier); ok {
			notifier.OnChange(fn)
			registered = true
		}
	}
	return registered
}

// redactSecretName shortens a secret name for logging.
func redactSecretName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
