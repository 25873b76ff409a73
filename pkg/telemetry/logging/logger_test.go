package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid JSON config",
			config: Config{Level: "info", Format: "json", RedactSecrets: true},
		},
		{
			name:   "valid text config",
			config: Config{Level: "debug", Format: "text"},
		},
		{
			name:   "defaults",
			config: Config{},
		},
		{
			name:    "invalid log level",
			config:  Config{Level: "invalid", Format: "json"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			config:  Config{Level: "info", Format: "console"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("expected logger")
			}
		})
	}
}

func TestLogger_Levels(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "warn", Format: "json", Writer: buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("warn line should be written")
	}
}

func TestLogger_ContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, _ := New(Config{Level: "info", Format: "json", Writer: buf})

	ctx := WithSession(WithRequestID(context.Background(), "req-123"), "sess-1")
	logger.With("component", "test").InfoContext(ctx, "turn completed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["request_id"] != "req-123" {
		t.Errorf("expected request_id req-123, got %v", entry["request_id"])
	}
	if entry["session"] != "sess-1" {
		t.Errorf("expected session sess-1, got %v", entry["session"])
	}
	if entry["component"] != "test" {
		t.Errorf("expected component attribute, got %v", entry["component"])
	}
}

func TestLogger_RedactsSecrets(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, _ := New(Config{Level: "info", Format: "json", RedactSecrets: true, Writer: buf})

	logger.Info("upstream call",
		"header", "Bearer sk-abcdef123456",
		"api_key", "sk-abcdef123456",
		"error", errors.New("bad key sk-abcdef123456"),
	)

	if strings.Contains(buf.String(), "abcdef123456") {
		t.Errorf("secret leaked into log output: %s", buf.String())
	}
}

type brokenWriter struct{}

func (brokenWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestLogger_WriteFailuresReported(t *testing.T) {
	failures := 0
	logger, _ := New(Config{
		Writer:       brokenWriter{},
		OnWriteError: func(err error) { failures++ },
	})

	logger.Info("one")
	logger.Info("two")

	if failures != 2 {
		t.Errorf("expected 2 reported failures, got %d", failures)
	}
}

func TestParseLevel(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "", "warning", "error"} {
		if _, err := ParseLevel(level); err != nil {
			t.Errorf("ParseLevel(%q) failed: %v", level, err)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}
