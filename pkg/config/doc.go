// Package config provides configuration management for Parley.
//
// Configuration is loaded from an optional YAML file, completed with
// defaults, overridden from the environment, and validated.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("parley.yaml")
//
//  2. From an optional YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("") // defaults + env
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention PARLEY_SECTION_FIELD:
//
//   - PARLEY_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - PARLEY_UPSTREAM_API_KEY overrides upstream.api_key
//   - PARLEY_TRANSCRIPT_MAX_LENGTH overrides transcript.max_length
//
// The variable names of earlier deployments are honoured as well, with
// lower precedence than PARLEY_* names:
//
//   - DEEPSEEK_REAL_KEY, DEEPSEEK_BASE_URL, DEEPSEEK_MODEL
//   - MAX_HISTORY, REQUEST_TIMEOUT_SEC
//   - SECRET_KEY, CORS_ORIGINS (comma-separated)
//
// # Validation
//
// Validate collects every problem into a ValidationError rather than
// stopping at the first one. A missing upstream API key is not a
// validation error; the server starts and chat turns report it.
package config
