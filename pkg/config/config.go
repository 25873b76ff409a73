package config

import "time"

// Config is the root configuration structure for Parley.
// It contains the HTTP server, upstream completion API, transcript storage,
// session, rate limiting, telemetry, and security settings.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, CORS, and the API route prefix.
	Server ServerConfig `yaml:"server"`

	// Upstream contains configuration for the streaming completion API.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Transcript contains conversation history storage configuration.
	Transcript TranscriptConfig `yaml:"transcript"`

	// Session contains session cookie configuration.
	Session SessionConfig `yaml:"session"`

	// Limits contains per-client request rate limiting configuration.
	Limits LimitsConfig `yaml:"limits"`

	// Telemetry contains configuration for logging, metrics, and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Security contains TLS and secret source configuration.
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Streamed chat replies are bounded by upstream.timeout, so
	// this stays zero unless set explicitly.
	// Default: 0 (no limit)
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight requests
	// during graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits the size of JSON request bodies.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// APIPrefix is the path prefix for the chat API routes.
	// Default: "/api"
	APIPrefix string `yaml:"api_prefix"`

	// SecurityHeaders adds nosniff, frame-deny, no-referrer and no-store
	// headers to every response.
	// Default: true
	SecurityHeaders bool `yaml:"security_headers"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins. ["*"] allows all.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed request headers.
	// Default: ["Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the preflight cache lifetime in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`

	// AllowCredentials allows the session cookie on cross-origin requests.
	// Cannot be combined with a wildcard origin.
	// Default: false
	AllowCredentials bool `yaml:"allow_credentials"`
}

// UpstreamConfig contains configuration for the OpenAI-compatible
// streaming completion API.
type UpstreamConfig struct {
	// Name identifies the upstream in logs and metrics.
	// Default: "deepseek"
	Name string `yaml:"name"`

	// BaseURL is the API base URL; "/v1/chat/completions" is appended.
	// Default: "https://api.deepseek.com"
	BaseURL string `yaml:"base_url"`

	// APIKey is the bearer credential. It may be empty at startup; chat
	// turns then fail with a configuration error until a key is provided.
	// Can also be set via DEEPSEEK_REAL_KEY or the secrets directory.
	APIKey string `yaml:"api_key"`

	// APIKeySecret is the secret name looked up when APIKey is empty.
	// Default: "deepseek_api_key"
	APIKeySecret string `yaml:"api_key_secret"`

	// Model is the model identifier sent with every request.
	// Default: "deepseek-chat"
	Model string `yaml:"model"`

	// Timeout bounds the whole upstream exchange of one chat turn,
	// including reading the streamed body.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// MaxIdleConns is the maximum number of idle connections in the pool.
	// Default: 100
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MaxIdleConnsPerHost is the maximum idle connections per host.
	// Default: 10
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout is how long an idle connection remains pooled.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`

	// UnhealthyThreshold is the number of consecutive failed requests
	// after which the upstream is reported not ready.
	// Default: 3
	UnhealthyThreshold int `yaml:"unhealthy_threshold"`
}

// TranscriptConfig contains conversation history storage configuration.
type TranscriptConfig struct {
	// MaxLength is the maximum number of messages retained per session
	// after each commit. Oldest messages are evicted first.
	// Default: 20
	MaxLength int `yaml:"max_length"`

	// Backend selects the storage backend.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// SessionTTL is how long an idle transcript is kept before the sweeper
	// deletes it. Zero disables expiry.
	// Default: 24h
	SessionTTL time.Duration `yaml:"session_ttl"`

	// SweepSchedule is the cron expression for the expiry sweep.
	// Default: "*/15 * * * *"
	SweepSchedule string `yaml:"sweep_schedule"`
}

// SQLiteConfig contains SQLite transcript backend configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/transcripts.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`
}

// SessionConfig contains session cookie configuration.
type SessionConfig struct {
	// CookieName is the name of the session cookie.
	// Default: "parley_session"
	CookieName string `yaml:"cookie_name"`

	// SecretKey signs session cookies. When empty a random key is
	// generated at startup, so sessions do not survive restarts.
	// Can also be set via SECRET_KEY.
	SecretKey string `yaml:"secret_key"`

	// Secure marks the cookie HTTPS-only.
	// Default: false
	Secure bool `yaml:"secure"`

	// MaxAge is the cookie lifetime.
	// Default: 24h
	MaxAge time.Duration `yaml:"max_age"`
}

// LimitsConfig contains request limiting configuration.
type LimitsConfig struct {
	// RateLimit contains per-client rate limiting configuration.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig contains per-client rate limiting configuration.
// Both tiers apply; a request must fit in each.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is applied.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// PerMinute is the number of requests allowed per client per minute.
	// Default: 60
	PerMinute int `yaml:"per_minute"`

	// PerHour is the number of requests allowed per client per hour.
	// Default: 600
	PerHour int `yaml:"per_hour"`

	// TrustForwardedFor keys clients by the first X-Forwarded-For address.
	// Default: false
	TrustForwardedFor bool `yaml:"trust_forwarded_for"`

	// IdleTTL is how long an unused client bucket is kept.
	// Default: 1h
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks API keys and bearer tokens in log attributes.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "parley"
	Namespace string `yaml:"namespace"`

	// LatencyBuckets defines histogram buckets for upstream latency (seconds).
	// Default: [0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60]
	LatencyBuckets []float64 `yaml:"latency_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// ServiceName is the service name in traces.
	// Default: "parley"
	ServiceName string `yaml:"service_name"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	// TLS contains server TLS configuration.
	TLS TLSConfig `yaml:"tls"`

	// Secrets contains the secret source used for the upstream credential.
	Secrets SecretsConfig `yaml:"secrets"`
}

// TLSConfig contains server TLS configuration.
type TLSConfig struct {
	// Enabled serves HTTPS instead of HTTP.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the PEM certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM private key.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the minimum TLS version ("1.2" or "1.3").
	// Default: "1.2"
	MinVersion string `yaml:"min_version"`

	// ReloadInterval is how often the certificate files are checked for
	// renewal. Zero disables reloading.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// SecretsConfig contains secret source configuration.
type SecretsConfig struct {
	// EnvPrefix is the prefix for environment secrets.
	// A secret "deepseek_api_key" is read from <prefix>DEEPSEEK_API_KEY.
	// Default: "PARLEY_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`

	// Dir is a directory holding one file per secret. Empty disables the
	// file source.
	Dir string `yaml:"dir"`

	// Watch reloads the upstream client when a secret file changes.
	// Default: false
	Watch bool `yaml:"watch"`
}
