// Package logging builds the structured logger used by every component.
//
// # Overview
//
// The package wraps Go's standard log/slog package to provide:
//   - JSON or text output at a configurable level
//   - Credential masking (bearer tokens, sk- keys) in log attributes
//   - request_id and session fields taken from the context
//   - A hook that counts log lines the output writer rejected
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:         "info",
//	    Format:        "json",
//	    RedactSecrets: true,
//	})
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	slog.InfoContext(ctx, "turn completed")  // includes request_id
package logging
