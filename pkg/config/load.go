package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration and applies environment
// variable overrides. An empty path skips the file and starts from defaults,
// so a bare environment is enough to run.
//
// The loading sequence is:
// 1. Start from Default()
// 2. Decode YAML from file (if path is set)
// 3. Apply legacy variables (DEEPSEEK_REAL_KEY, MAX_HISTORY, ...)
// 4. Apply PARLEY_SECTION_FIELD variables
// 5. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = decodeFile(path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

func decodeFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// PARLEY_* variables take precedence over the legacy names.
func applyEnvOverrides(cfg *Config) {
	applyLegacyEnv(cfg)

	// Server overrides
	setString(&cfg.Server.ListenAddress, "PARLEY_SERVER_LISTEN_ADDRESS")
	setDuration(&cfg.Server.ReadTimeout, "PARLEY_SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "PARLEY_SERVER_WRITE_TIMEOUT")
	setDuration(&cfg.Server.IdleTimeout, "PARLEY_SERVER_IDLE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "PARLEY_SERVER_SHUTDOWN_TIMEOUT")
	setString(&cfg.Server.APIPrefix, "PARLEY_SERVER_API_PREFIX")
	setBool(&cfg.Server.SecurityHeaders, "PARLEY_SERVER_SECURITY_HEADERS")
	setList(&cfg.Server.CORS.AllowedOrigins, "PARLEY_SERVER_CORS_ALLOWED_ORIGINS")

	// Upstream overrides
	setString(&cfg.Upstream.BaseURL, "PARLEY_UPSTREAM_BASE_URL")
	setString(&cfg.Upstream.APIKey, "PARLEY_UPSTREAM_API_KEY")
	setString(&cfg.Upstream.Model, "PARLEY_UPSTREAM_MODEL")
	setDuration(&cfg.Upstream.Timeout, "PARLEY_UPSTREAM_TIMEOUT")

	// Transcript overrides
	setInt(&cfg.Transcript.MaxLength, "PARLEY_TRANSCRIPT_MAX_LENGTH")
	setString(&cfg.Transcript.Backend, "PARLEY_TRANSCRIPT_BACKEND")
	setString(&cfg.Transcript.SQLite.Path, "PARLEY_TRANSCRIPT_SQLITE_PATH")
	setString(&cfg.Transcript.SQLite.Driver, "PARLEY_TRANSCRIPT_SQLITE_DRIVER")
	setDuration(&cfg.Transcript.SessionTTL, "PARLEY_TRANSCRIPT_SESSION_TTL")
	setString(&cfg.Transcript.SweepSchedule, "PARLEY_TRANSCRIPT_SWEEP_SCHEDULE")

	// Session overrides
	setString(&cfg.Session.SecretKey, "PARLEY_SESSION_SECRET_KEY")
	setBool(&cfg.Session.Secure, "PARLEY_SESSION_SECURE")

	// Limits overrides
	setBool(&cfg.Limits.RateLimit.Enabled, "PARLEY_LIMITS_RATE_LIMIT_ENABLED")
	setInt(&cfg.Limits.RateLimit.PerMinute, "PARLEY_LIMITS_RATE_LIMIT_PER_MINUTE")
	setInt(&cfg.Limits.RateLimit.PerHour, "PARLEY_LIMITS_RATE_LIMIT_PER_HOUR")

	// Telemetry overrides
	setString(&cfg.Telemetry.Logging.Level, "PARLEY_TELEMETRY_LOGGING_LEVEL")
	setString(&cfg.Telemetry.Logging.Format, "PARLEY_TELEMETRY_LOGGING_FORMAT")
	setBool(&cfg.Telemetry.Metrics.Enabled, "PARLEY_TELEMETRY_METRICS_ENABLED")
	setString(&cfg.Telemetry.Metrics.Path, "PARLEY_TELEMETRY_METRICS_PATH")
	setBool(&cfg.Telemetry.Tracing.Enabled, "PARLEY_TELEMETRY_TRACING_ENABLED")
	setString(&cfg.Telemetry.Tracing.Endpoint, "PARLEY_TELEMETRY_TRACING_ENDPOINT")
	if val := os.Getenv("PARLEY_TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}

	// Security overrides
	setBool(&cfg.Security.TLS.Enabled, "PARLEY_SECURITY_TLS_ENABLED")
	setString(&cfg.Security.TLS.CertFile, "PARLEY_SECURITY_TLS_CERT_FILE")
	setString(&cfg.Security.TLS.KeyFile, "PARLEY_SECURITY_TLS_KEY_FILE")
	setString(&cfg.Security.Secrets.Dir, "PARLEY_SECURITY_SECRETS_DIR")
	setBool(&cfg.Security.Secrets.Watch, "PARLEY_SECURITY_SECRETS_WATCH")
}

// applyLegacyEnv maps the variable names used by existing deployments.
func applyLegacyEnv(cfg *Config) {
	if val := os.Getenv("DEEPSEEK_REAL_KEY"); val != "" {
		cfg.Upstream.APIKey = strings.TrimSpace(val)
	}
	setString(&cfg.Upstream.BaseURL, "DEEPSEEK_BASE_URL")
	setString(&cfg.Upstream.Model, "DEEPSEEK_MODEL")
	setInt(&cfg.Transcript.MaxLength, "MAX_HISTORY")
	if val := os.Getenv("REQUEST_TIMEOUT_SEC"); val != "" {
		if secs, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil && secs > 0 {
			cfg.Upstream.Timeout = time.Duration(secs * float64(time.Second))
		}
	}
	setString(&cfg.Session.SecretKey, "SECRET_KEY")
	setList(&cfg.Server.CORS.AllowedOrigins, "CORS_ORIGINS")
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(dst *int, key string) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func setBool(dst *bool, key string) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// setList splits a comma-separated value, dropping blank entries.
func setList(dst *[]string, key string) {
	val := os.Getenv(key)
	if val == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}
