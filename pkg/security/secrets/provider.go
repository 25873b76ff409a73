package secrets

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no source holds the requested secret.
var ErrNotFound = errors.New("secret not found")

// SecretProvider retrieves secrets from a backend.
type SecretProvider interface {
	// GetSecret retrieves a secret by name. A missing secret returns an
	// error wrapping ErrNotFound.
	GetSecret(ctx context.Context, name string) (string, error)

	// Provider returns the provider name ("env", "file").
	Provider() string
}

// RefreshableProvider can reload secrets without restart.
type RefreshableProvider interface {
	SecretProvider

	// Refresh drops cached values so the next read hits the backend.
	Refresh(ctx context.Context) error
}

// ChangeNotifier reports secrets that changed in the backend.
type ChangeNotifier interface {
	// OnChange registers fn to run after the backend changed.
	OnChange(fn func())
}
