package tls

import (
	"context"
	"crypto/tls"
	"fmt"

	"mercator-hq/parley/pkg/config"
)

// ServerConfig builds the server tls.Config for cfg.
//
// The certificate is served through a CertificateReloader, so renewed
// files are picked up without restart when cfg.ReloadInterval is set.
// The reloader stops when ctx is cancelled. It returns nil when TLS is
// disabled.
func ServerConfig(ctx context.Context, cfg config.TLSConfig) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	if cfg.CertFile == "" {
		return nil, fmt.Errorf("cert_file is required when TLS is enabled")
	}
	if cfg.KeyFile == "" {
		return nil, fmt.Errorf("key_file is required when TLS is enabled")
	}

	minVersion, err := ParseTLSVersion(cfg.MinVersion)
	if err != nil {
		return nil, err
	}

	reloader := NewCertificateReloader(cfg.CertFile, cfg.KeyFile, cfg.ReloadInterval)
	if err := reloader.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	// #nosec G402 - MinVersion is validated, TLS 1.0/1.1 rejected
	return &tls.Config{
		MinVersion:     minVersion,
		GetCertificate: reloader.GetCertificateFunc(),
	}, nil
}

// ParseTLSVersion converts "1.2" or "1.3" to a tls version constant. An
// empty string means 1.2.
func ParseTLSVersion(version string) (uint16, error) {
	switch version {
	case "1.2", "":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported TLS version %q: must be '1.2' or '1.3'", version)
	}
}
