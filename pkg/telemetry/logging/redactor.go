package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redactor masks credentials in log attributes.
type Redactor struct {
	patterns []*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternAPIKey      = "api_key"
	PatternBearerToken = "bearer_token"
)

// NewRedactor creates a Redactor with the built-in patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*redactPattern{
			{
				name:        PatternBearerToken,
				regex:       regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`),
				replacement: "Bearer ***",
			},
			{
				name:        PatternAPIKey,
				regex:       regexp.MustCompile(`sk-[a-zA-Z0-9_\-]+`),
				replacement: "sk-***",
			},
		},
	}
}

// RedactString masks every credential found in value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}

	redacted := value
	for _, pattern := range r.patterns {
		redacted = pattern.regex.ReplaceAllString(redacted, pattern.replacement)
	}
	return redacted
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook.
// Values under sensitive keys are masked entirely; other string values are
// scanned for credentials.
func (r *Redactor) ReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if isSensitiveKey(a.Key) {
		if a.Value.Kind() == slog.KindString {
			return slog.String(a.Key, RedactAPIKey(a.Value.String()))
		}
		return a
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
	}
	return a
}

// isSensitiveKey checks if a key name indicates credential material.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)

	sensitiveKeys := []string{
		"api_key", "apikey",
		"authorization",
		"secret_key",
		"password",
		"cookie",
	}

	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// RedactAPIKey redacts an API key, keeping only a prefix.
func RedactAPIKey(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	if len(apiKey) <= 4 {
		return "***"
	}
	return apiKey[:4] + "***"
}
