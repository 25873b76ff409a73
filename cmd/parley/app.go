package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"mercator-hq/parley/pkg/cli"
	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/providers"
	"mercator-hq/parley/pkg/providers/openai"
	"mercator-hq/parley/pkg/security/secrets"
	"mercator-hq/parley/pkg/telemetry/logging"
	"mercator-hq/parley/pkg/telemetry/metrics"
)

// loadConfig loads the file named by --config, or defaults when it is
// empty, and applies environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("config", err.Error())
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// setupLogger builds the process logger, installs it as the slog default
// and counts rejected log writes on collector.
func setupLogger(cfg *config.Config, collector *metrics.Collector, w io.Writer) (*slog.Logger, error) {
	logCfg := logging.FromConfig(cfg.Telemetry.Logging)
	logCfg.Writer = w
	logCfg.OnWriteError = func(error) {
		collector.RecordLogWriteFailure()
	}

	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)
	return logger, nil
}

// upstreamBuilder returns the constructor used for the initial upstream
// client and for every credential rotation.
func upstreamBuilder(cfg config.UpstreamConfig) secrets.BuildFunc {
	return func(apiKey string) (providers.Upstream, error) {
		p, err := openai.NewProvider(providers.ProviderConfig{
			Name:                cfg.Name,
			BaseURL:             cfg.BaseURL,
			APIKey:              apiKey,
			Model:               cfg.Model,
			Timeout:             cfg.Timeout,
			UnhealthyThreshold:  cfg.UnhealthyThreshold,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// upstreamSet is the published upstream client and what keeps it current.
type upstreamSet struct {
	holder       *providers.Holder
	rotator      *secrets.Rotator
	closeSecrets func() error
}

// loadUpstream resolves the credential from configuration or the secret
// sources and publishes the first upstream client. A missing credential is
// not an error here; chat turns report it.
func loadUpstream(ctx context.Context, cfg *config.Config) (*upstreamSet, error) {
	manager, closeSecrets, err := secrets.NewManagerFromConfig(cfg.Security.Secrets)
	if err != nil {
		return nil, cli.NewConfigError("security.secrets", err.Error())
	}

	holder := providers.NewHolder(nil)
	rotator := secrets.NewRotator(manager, cfg.Upstream.APIKeySecret, cfg.Upstream.APIKey,
		upstreamBuilder(cfg.Upstream), holder)
	if err := rotator.Load(ctx); err != nil {
		_ = closeSecrets()
		var cfgErr *providers.ConfigError
		if errors.As(err, &cfgErr) {
			return nil, cli.NewConfigError("upstream."+cfgErr.Field, cfgErr.Message)
		}
		return nil, fmt.Errorf("failed to initialize upstream: %w", err)
	}

	return &upstreamSet{holder: holder, rotator: rotator, closeSecrets: closeSecrets}, nil
}

// Close releases the secret watcher and the current client's idle
// connections.
func (u *upstreamSet) Close() error {
	var errs []error
	if err := u.closeSecrets(); err != nil {
		errs = append(errs, err)
	}
	if up := u.holder.Current(); up != nil {
		if err := up.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
