package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// executeCommand runs the root command with args and returns its stdout.
// Global flag values are reset first because cobra keeps them between runs.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile, verbose = "", false
	versionFlags.output = "text"
	pingFlags.output, pingFlags.timeout = "text", 0
	pruneFlags.output, pruneFlags.olderThan = "text", 0
	runFlags.listenAddress, runFlags.logLevel, runFlags.dryRun = "", "", false

	prevLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prevLogger) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// clearCredentialEnv removes every credential source a developer machine
// might provide.
func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DEEPSEEK_REAL_KEY",
		"PARLEY_UPSTREAM_API_KEY",
		"PARLEY_SECRET_DEEPSEEK_API_KEY",
		"DEEPSEEK_BASE_URL",
		"PARLEY_UPSTREAM_BASE_URL",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}
