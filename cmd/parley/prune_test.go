package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/parley/pkg/cli"
	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/providers"
	"mercator-hq/parley/pkg/transcript"
)

func TestPruneCommand(t *testing.T) {
	clearCredentialEnv(t)

	dbPath := filepath.Join(t.TempDir(), "transcripts.db")
	cfgPath := writeConfig(t, fmt.Sprintf(`
transcript:
  backend: sqlite
  sqlite:
    path: %q
telemetry:
  logging:
    level: error
`, dbPath))

	seed, err := config.LoadConfigWithEnvOverrides(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	store, err := transcript.Open(seed.Transcript)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	err = store.Append(context.Background(), "s1", providers.Message{Role: providers.RoleUser, Content: "hi"})
	store.Close()
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	out, err := executeCommand(t, "prune", "--config", cfgPath, "--older-than", "5ms", "--output", "json")
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	var result pruneResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if result.Deleted != 1 || result.Backend != "sqlite" {
		t.Errorf("result = %+v, want 1 sqlite transcript deleted", result)
	}

	out, err = executeCommand(t, "prune", "--config", cfgPath, "--older-than", "5ms")
	if err != nil {
		t.Fatalf("second prune failed: %v", err)
	}
	if !strings.Contains(out, "Deleted 0 sqlite transcript(s)") {
		t.Errorf("output = %q", out)
	}
}

func TestPruneCommand_NoTTL(t *testing.T) {
	t.Setenv("PARLEY_TRANSCRIPT_SESSION_TTL", "0s")

	_, err := executeCommand(t, "prune")
	if err == nil {
		t.Fatal("expected error without a TTL")
	}
	if code := cli.ExitCode(err); code != cli.ExitConfig {
		t.Errorf("exit code = %d, want %d", code, cli.ExitConfig)
	}
}
