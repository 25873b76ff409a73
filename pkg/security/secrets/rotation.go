package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"mercator-hq/parley/pkg/providers"
)

// BuildFunc creates an upstream client for the given API key.
type BuildFunc func(apiKey string) (providers.Upstream, error)

// Rotator keeps the upstream client in a Holder in step with its
// credential secret.
//
// A static key from configuration always wins; the secret is only
// consulted when the static key is empty. Turns that already hold the
// previous client finish on it.
type Rotator struct {
	manager   *Manager
	secret    string
	staticKey string
	build     BuildFunc
	holder    *providers.Holder

	mu      sync.Mutex
	current string
}

// NewRotator creates a rotator. Call Load once before serving.
func NewRotator(manager *Manager, secret, staticKey string, build BuildFunc, holder *providers.Holder) *Rotator {
	return &Rotator{
		manager:   manager,
		secret:    secret,
		staticKey: staticKey,
		build:     build,
		holder:    holder,
	}
}

// ResolveKey returns the configured static key or, when empty, the secret.
// A missing secret yields "" so chat turns report the missing credential.
func (r *Rotator) ResolveKey(ctx context.Context) (string, error) {
	if r.staticKey != "" {
		return r.staticKey, nil
	}
	if r.manager == nil || r.secret == "" {
		return "", nil
	}

	value, err := r.manager.GetSecret(ctx, r.secret)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Load builds the upstream from the current key and publishes it.
func (r *Rotator) Load(ctx context.Context) error {
	_, err := r.rotate(ctx, true)
	return err
}

// Rotate rebuilds the upstream if the key changed. It reports whether a
// new client was published.
func (r *Rotator) Rotate(ctx context.Context) (bool, error) {
	return r.rotate(ctx, false)
}

// Watch rebuilds the upstream whenever the secret sources report a change.
func (r *Rotator) Watch(ctx context.Context) bool {
	if r.staticKey != "" || r.manager == nil {
		return false
	}
	return r.manager.OnChange(func() {
		rotated, err := r.Rotate(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "upstream credential rotation failed", "error", err)
			return
		}
		if rotated {
			slog.InfoContext(ctx, "upstream credential rotated", "secret", redactSecretName(r.secret))
		}
	})
}

func (r *Rotator) rotate(ctx context.Context, force bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, err := r.ResolveKey(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to resolve upstream credential: %w", err)
	}
	if !force && key == r.current {
		return false, nil
	}

	upstream, err := r.build(key)
	if err != nil {
		return false, fmt.Errorf("failed to build upstream client: %w", err)
	}

	if prev := r.holder.Swap(upstream); prev != nil {
		if err := prev.Close(); err != nil {
			slog.WarnContext(ctx, "failed to close previous upstream client", "error", err)
		}
	}
	r.current = key
	return true, nil
}
