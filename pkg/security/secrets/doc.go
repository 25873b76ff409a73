/*
Package secrets loads the upstream credential and keeps the upstream client
in step with it.

# Sources

Two providers implement SecretProvider:

  - EnvProvider: reads <prefix><NAME> from the environment
  - FileProvider: reads one file per secret from a directory, as mounted
    secret volumes lay them out; files must be 0600 or 0400

Manager tries providers in order. The configured order is the secrets
directory first, then the environment:

	manager, closeSecrets, err := secrets.NewManagerFromConfig(cfg.Security.Secrets)
	if err != nil {
		return err
	}
	defer closeSecrets()

	key, err := manager.GetSecret(ctx, "deepseek_api_key")

# Rotation

With watching enabled, FileProvider drops its cache when the directory
changes and notifies listeners. Rotator connects this to a
providers.Holder: it rebuilds the upstream client with the new key, swaps
it in, and closes the previous client's idle connections. Turns already
streaming keep the client they started with.

	rotator := secrets.NewRotator(manager, "deepseek_api_key", cfg.Upstream.APIKey, build, holder)
	if err := rotator.Load(ctx); err != nil {
		return err
	}
	rotator.Watch(ctx)

A key set directly in configuration always wins and is never rotated.

# Security

Secret values are never logged; names are shortened in log records.
*/
package secrets
