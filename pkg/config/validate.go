package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// An empty upstream API key is valid: chat turns report it at request time.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateUpstream(&cfg.Upstream)...)
	errs = append(errs, validateTranscript(&cfg.Transcript)...)
	errs = append(errs, validateLimits(&cfg.Limits)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateSecurity(&cfg.Security)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid address %q: %v", cfg.ListenAddress, err),
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "must not be negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "must not be negative"})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "must not be negative"})
	}
	if !strings.HasPrefix(cfg.APIPrefix, "/") || strings.HasSuffix(cfg.APIPrefix, "/") {
		errs = append(errs, FieldError{
			Field:   "server.api_prefix",
			Message: fmt.Sprintf("invalid prefix %q: must start with '/' and not end with '/'", cfg.APIPrefix),
		})
	}
	if cfg.CORS.Enabled && cfg.CORS.AllowCredentials {
		for _, origin := range cfg.CORS.AllowedOrigins {
			if origin == "*" {
				errs = append(errs, FieldError{
					Field:   "server.cors.allow_credentials",
					Message: "credentials cannot be allowed with a wildcard origin",
				})
				break
			}
		}
	}

	return errs
}

func validateUpstream(cfg *UpstreamConfig) []FieldError {
	var errs []FieldError

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "upstream.base_url",
			Message: fmt.Sprintf("invalid URL %q: must be an absolute http or https URL", cfg.BaseURL),
		})
	}
	if strings.TrimSpace(cfg.Model) == "" {
		errs = append(errs, FieldError{Field: "upstream.model", Message: "model is required"})
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{Field: "upstream.timeout", Message: "must be positive"})
	}
	if cfg.UnhealthyThreshold < 1 {
		errs = append(errs, FieldError{Field: "upstream.unhealthy_threshold", Message: "must be at least 1"})
	}

	return errs
}

func validateTranscript(cfg *TranscriptConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxLength < 1 {
		errs = append(errs, FieldError{
			Field:   "transcript.max_length",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.MaxLength),
		})
	}

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "transcript.sqlite.path", Message: "path is required for the sqlite backend"})
		}
		if cfg.SQLite.Driver != "sqlite" && cfg.SQLite.Driver != "sqlite3" {
			errs = append(errs, FieldError{
				Field:   "transcript.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite' or 'sqlite3'", cfg.SQLite.Driver),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "transcript.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}

	if cfg.SessionTTL < 0 {
		errs = append(errs, FieldError{Field: "transcript.session_ttl", Message: "must not be negative"})
	}

	return errs
}

func validateLimits(cfg *LimitsConfig) []FieldError {
	var errs []FieldError

	if !cfg.RateLimit.Enabled {
		return errs
	}
	if cfg.RateLimit.PerMinute < 1 {
		errs = append(errs, FieldError{Field: "limits.rate_limit.per_minute", Message: "must be at least 1"})
	}
	if cfg.RateLimit.PerHour < 1 {
		errs = append(errs, FieldError{Field: "limits.rate_limit.per_hour", Message: "must be at least 1"})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with '/' when metrics are enabled",
		})
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "tracing endpoint is required when tracing is enabled",
			})
		}
		validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
		if !validSamplers[cfg.Tracing.Sampler] {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sample_ratio",
				Message: fmt.Sprintf("sample ratio must be between 0.0 and 1.0, got %f", cfg.Tracing.SampleRatio),
			})
		}
	}

	return errs
}

func validateSecurity(cfg *SecurityConfig) []FieldError {
	var errs []FieldError

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{Field: "security.tls.cert_file", Message: "certificate file is required when TLS is enabled"})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{Field: "security.tls.key_file", Message: "key file is required when TLS is enabled"})
		}
		if cfg.TLS.MinVersion != "1.2" && cfg.TLS.MinVersion != "1.3" {
			errs = append(errs, FieldError{
				Field:   "security.tls.min_version",
				Message: fmt.Sprintf("invalid TLS version %q: must be '1.2' or '1.3'", cfg.TLS.MinVersion),
			})
		}
	}

	if cfg.Secrets.Watch && cfg.Secrets.Dir == "" {
		errs = append(errs, FieldError{Field: "security.secrets.watch", Message: "watch requires security.secrets.dir"})
	}

	return errs
}
