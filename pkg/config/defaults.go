package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxBodyBytes    = int64(1048576)
	DefaultAPIPrefix       = "/api"

	// CORS defaults
	DefaultCORSMaxAge = 3600 // 1 hour

	// Upstream defaults
	DefaultUpstreamName               = "deepseek"
	DefaultUpstreamBaseURL            = "https://api.deepseek.com"
	DefaultUpstreamModel              = "deepseek-chat"
	DefaultUpstreamAPIKeySecret       = "deepseek_api_key"
	DefaultUpstreamTimeout            = 60 * time.Second
	DefaultUpstreamMaxIdleConns       = 100
	DefaultUpstreamMaxIdleConnsPerHst = 10
	DefaultUpstreamIdleConnTimeout    = 90 * time.Second
	DefaultUpstreamUnhealthyThreshold = 3

	// Transcript defaults
	DefaultTranscriptMaxLength     = 20
	DefaultTranscriptBackend       = "memory"
	DefaultTranscriptSQLitePath    = "data/transcripts.db"
	DefaultTranscriptSQLiteDriver  = "sqlite"
	DefaultTranscriptSQLiteMaxOpen = 10
	DefaultTranscriptBusyTimeout   = 5 * time.Second
	DefaultTranscriptSessionTTL    = 24 * time.Hour
	DefaultTranscriptSweepSchedule = "*/15 * * * *"

	// Session defaults
	DefaultSessionCookieName = "parley_session"
	DefaultSessionMaxAge     = 24 * time.Hour

	// Rate limit defaults
	DefaultRateLimitPerMinute = 60
	DefaultRateLimitPerHour   = 600
	DefaultRateLimitIdleTTL   = time.Hour

	// Telemetry defaults
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "parley"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingServiceName = "parley"
	DefaultTracingTimeout     = 10 * time.Second

	// Security defaults
	DefaultTLSMinVersion     = "1.2"
	DefaultTLSReloadInterval = 5 * time.Minute
	DefaultSecretsEnvPrefix  = "PARLEY_SECRET_"
)

// Default slice values for configuration fields.
var (
	DefaultCORSAllowedOrigins = []string{"*"}
	DefaultCORSAllowedMethods = []string{"GET", "POST", "OPTIONS"}
	DefaultCORSAllowedHeaders = []string{"Content-Type", "X-Request-ID"}
	DefaultLatencyBuckets     = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}
)

// Default returns a configuration with every field set to its default,
// including boolean switches that default to true. File values are
// decoded on top of it.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.SecurityHeaders = true
	cfg.Server.CORS.Enabled = true
	cfg.Transcript.SQLite.WALMode = true
	cfg.Limits.RateLimit.Enabled = true
	cfg.Telemetry.Logging.RedactSecrets = true
	cfg.Telemetry.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
// Fields already set are left untouched.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Server.APIPrefix == "" {
		cfg.Server.APIPrefix = DefaultAPIPrefix
	}

	// CORS defaults
	if len(cfg.Server.CORS.AllowedOrigins) == 0 {
		cfg.Server.CORS.AllowedOrigins = append([]string(nil), DefaultCORSAllowedOrigins...)
	}
	if len(cfg.Server.CORS.AllowedMethods) == 0 {
		cfg.Server.CORS.AllowedMethods = append([]string(nil), DefaultCORSAllowedMethods...)
	}
	if len(cfg.Server.CORS.AllowedHeaders) == 0 {
		cfg.Server.CORS.AllowedHeaders = append([]string(nil), DefaultCORSAllowedHeaders...)
	}
	if cfg.Server.CORS.MaxAge == 0 {
		cfg.Server.CORS.MaxAge = DefaultCORSMaxAge
	}

	// Upstream defaults
	if cfg.Upstream.Name == "" {
		cfg.Upstream.Name = DefaultUpstreamName
	}
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = DefaultUpstreamBaseURL
	}
	if cfg.Upstream.APIKeySecret == "" {
		cfg.Upstream.APIKeySecret = DefaultUpstreamAPIKeySecret
	}
	if cfg.Upstream.Model == "" {
		cfg.Upstream.Model = DefaultUpstreamModel
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = DefaultUpstreamTimeout
	}
	if cfg.Upstream.MaxIdleConns == 0 {
		cfg.Upstream.MaxIdleConns = DefaultUpstreamMaxIdleConns
	}
	if cfg.Upstream.MaxIdleConnsPerHost == 0 {
		cfg.Upstream.MaxIdleConnsPerHost = DefaultUpstreamMaxIdleConnsPerHst
	}
	if cfg.Upstream.IdleConnTimeout == 0 {
		cfg.Upstream.IdleConnTimeout = DefaultUpstreamIdleConnTimeout
	}
	if cfg.Upstream.UnhealthyThreshold == 0 {
		cfg.Upstream.UnhealthyThreshold = DefaultUpstreamUnhealthyThreshold
	}

	// Transcript defaults
	if cfg.Transcript.MaxLength == 0 {
		cfg.Transcript.MaxLength = DefaultTranscriptMaxLength
	}
	if cfg.Transcript.Backend == "" {
		cfg.Transcript.Backend = DefaultTranscriptBackend
	}
	if cfg.Transcript.SQLite.Path == "" {
		cfg.Transcript.SQLite.Path = DefaultTranscriptSQLitePath
	}
	if cfg.Transcript.SQLite.Driver == "" {
		cfg.Transcript.SQLite.Driver = DefaultTranscriptSQLiteDriver
	}
	if cfg.Transcript.SQLite.MaxOpenConns == 0 {
		cfg.Transcript.SQLite.MaxOpenConns = DefaultTranscriptSQLiteMaxOpen
	}
	if cfg.Transcript.SQLite.BusyTimeout == 0 {
		cfg.Transcript.SQLite.BusyTimeout = DefaultTranscriptBusyTimeout
	}
	if cfg.Transcript.SessionTTL == 0 {
		cfg.Transcript.SessionTTL = DefaultTranscriptSessionTTL
	}
	if cfg.Transcript.SweepSchedule == "" {
		cfg.Transcript.SweepSchedule = DefaultTranscriptSweepSchedule
	}

	// Session defaults
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = DefaultSessionCookieName
	}
	if cfg.Session.MaxAge == 0 {
		cfg.Session.MaxAge = DefaultSessionMaxAge
	}

	// Rate limit defaults
	if cfg.Limits.RateLimit.PerMinute == 0 {
		cfg.Limits.RateLimit.PerMinute = DefaultRateLimitPerMinute
	}
	if cfg.Limits.RateLimit.PerHour == 0 {
		cfg.Limits.RateLimit.PerHour = DefaultRateLimitPerHour
	}
	if cfg.Limits.RateLimit.IdleTTL == 0 {
		cfg.Limits.RateLimit.IdleTTL = DefaultRateLimitIdleTTL
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.LatencyBuckets) == 0 {
		cfg.Telemetry.Metrics.LatencyBuckets = append([]float64(nil), DefaultLatencyBuckets...)
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}

	// Security defaults
	if cfg.Security.TLS.MinVersion == "" {
		cfg.Security.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.Security.TLS.ReloadInterval == 0 {
		cfg.Security.TLS.ReloadInterval = DefaultTLSReloadInterval
	}
	if cfg.Security.Secrets.EnvPrefix == "" {
		cfg.Security.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}
}
