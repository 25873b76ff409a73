package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/parley/pkg/chat"
	"mercator-hq/parley/pkg/cli"
	"mercator-hq/parley/pkg/telemetry/metrics"
	"mercator-hq/parley/pkg/transcript"
)

var pingFlags struct {
	output  string
	timeout time.Duration
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the upstream completion API answers",
	Long: `Send a one-message prompt to the configured upstream and wait for the
first streamed delta. This is the same probe the relay serves at GET /api/ping.

No transcript is read or written. The command exits non-zero when the
upstream cannot be reached, rejects the credential or no credential is set.

Examples:
  # Check with environment configuration
  DEEPSEEK_REAL_KEY=sk-... parley ping

  # JSON output
  parley ping --config config.yaml --output json`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)

	pingCmd.Flags().StringVarP(&pingFlags.output, "output", "o", "text", "output format (text, json)")
	pingCmd.Flags().DurationVar(&pingFlags.timeout, "timeout", 0, "override the upstream timeout")
}

// pingResult is the output of the ping command.
type pingResult struct {
	Status    string  `json:"status"`
	Upstream  string  `json:"upstream"`
	Model     string  `json:"model"`
	LatencyMS float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

// Text renders the result on one line.
func (r pingResult) Text() string {
	if r.Error != "" {
		return fmt.Sprintf("✗ %s (%s): %s", r.Upstream, r.Model, r.Error)
	}
	return fmt.Sprintf("✓ %s (%s) answered in %.0fms", r.Upstream, r.Model, r.LatencyMS)
}

func runPing(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(pingFlags.output)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if pingFlags.timeout > 0 {
		cfg.Upstream.Timeout = pingFlags.timeout
	}

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	if _, err := setupLogger(cfg, collector, cmd.ErrOrStderr()); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	upstreams, err := loadUpstream(ctx, cfg)
	if err != nil {
		return err
	}
	defer upstreams.Close()

	svc, err := chat.NewService(chat.Options{
		Upstreams: upstreams.holder,
		Store:     transcript.NewMemoryStore(),
		MaxLength: cfg.Transcript.MaxLength,
		Metrics:   collector,
	})
	if err != nil {
		return cli.NewCommandError("ping", err)
	}

	result := pingResult{
		Status:   "ok",
		Upstream: cfg.Upstream.Name,
		Model:    cfg.Upstream.Model,
	}

	start := time.Now()
	pingErr := svc.Ping(ctx)
	result.LatencyMS = float64(time.Since(start).Microseconds()) / 1000
	if pingErr != nil {
		result.Status = "error"
		result.Error = pingErr.Error()
	}

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if pingErr != nil {
		return cli.NewCommandError("ping", pingErr)
	}
	return nil
}
