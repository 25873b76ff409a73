package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/parley/pkg/cli"
	"mercator-hq/parley/pkg/telemetry/metrics"
	"mercator-hq/parley/pkg/transcript"
)

var pruneFlags struct {
	olderThan time.Duration
	output    string
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete idle transcripts once",
	Long: `Delete transcripts that have not been modified within the session TTL.

The running server does this on its sweep schedule. Use prune to clean a
SQLite transcript database out of band, for example from a cron job while
the server is stopped.

Examples:
  # Use the configured transcript.session_ttl
  parley prune --config config.yaml

  # Delete transcripts idle for more than two days
  parley prune --config config.yaml --older-than 48h`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().DurationVar(&pruneFlags.olderThan, "older-than", 0, "override transcript.session_ttl")
	pruneCmd.Flags().StringVarP(&pruneFlags.output, "output", "o", "text", "output format (text, json)")
}

// pruneResult is the output of the prune command.
type pruneResult struct {
	Backend   string `json:"backend"`
	OlderThan string `json:"older_than"`
	Deleted   int    `json:"deleted"`
}

// Text renders the result on one line.
func (r pruneResult) Text() string {
	return fmt.Sprintf("✓ Deleted %d %s transcript(s) idle for more than %s", r.Deleted, r.Backend, r.OlderThan)
}

func runPrune(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(pruneFlags.output)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ttl := cfg.Transcript.SessionTTL
	if pruneFlags.olderThan > 0 {
		ttl = pruneFlags.olderThan
	}
	if ttl <= 0 {
		return cli.NewConfigError("older-than", "no session TTL configured; pass --older-than")
	}

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	if _, err := setupLogger(cfg, collector, cmd.ErrOrStderr()); err != nil {
		return err
	}

	store, err := transcript.Open(cfg.Transcript)
	if err != nil {
		return cli.NewCommandError("prune", fmt.Errorf("failed to open transcript store: %w", err))
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	deleted, err := transcript.NewSweeper(store, ttl, "", collector).Sweep(ctx)
	if err != nil {
		return cli.NewCommandError("prune", err)
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), pruneResult{
		Backend:   cfg.Transcript.Backend,
		OlderThan: ttl.String(),
		Deleted:   deleted,
	})
}
