package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/parley/pkg/chat"
	"mercator-hq/parley/pkg/cli"
	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/limits/ratelimit"
	"mercator-hq/parley/pkg/providers"
	"mercator-hq/parley/pkg/proxy/handlers"
	"mercator-hq/parley/pkg/server"
	"mercator-hq/parley/pkg/session"
	"mercator-hq/parley/pkg/telemetry/health"
	"mercator-hq/parley/pkg/telemetry/metrics"
	"mercator-hq/parley/pkg/telemetry/tracing"
	"mercator-hq/parley/pkg/transcript"
)

// tracerShutdownTimeout bounds the final span export.
const tracerShutdownTimeout = 5 * time.Second

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the chat relay server",
	Long: `Start the chat relay server with the specified configuration.

The server listens on the configured address, streams chat replies from the
upstream completion API and keeps one transcript per browser session.

Examples:
  # Start with defaults and environment variables
  DEEPSEEK_REAL_KEY=sk-... parley run

  # Start with a config file
  parley run --config /etc/parley/config.yaml

  # Override listen address
  parley run --listen 0.0.0.0:8080

  # Validate config without starting server
  parley run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	logger, err := setupLogger(cfg, collector, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	logger.Info("starting parley",
		"version", Version,
		"config", cfgFile,
		"upstream", cfg.Upstream.Name,
		"model", cfg.Upstream.Model,
		"transcript_backend", cfg.Transcript.Backend,
		"max_history", cfg.Transcript.MaxLength,
	)

	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), tracerShutdownTimeout)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	store, err := transcript.Open(cfg.Transcript)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to open transcript store: %w", err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("failed to close transcript store", "error", err)
		}
	}()

	if cfg.Transcript.SessionTTL > 0 && cfg.Transcript.SweepSchedule != "" {
		sweeper := transcript.NewSweeper(store, cfg.Transcript.SessionTTL, cfg.Transcript.SweepSchedule, collector)
		if err := sweeper.Start(ctx); err != nil {
			slog.Warn("failed to start transcript sweeper", "error", err)
		} else {
			defer sweeper.Stop()
			if next := sweeper.NextRun(); next != nil {
				slog.Debug("transcript sweeper started", "next_run", next)
			}
		}
	}

	upstreams, err := loadUpstream(ctx, cfg)
	if err != nil {
		return err
	}
	defer upstreams.Close()

	if cfg.Security.Secrets.Watch && upstreams.rotator.Watch(ctx) {
		slog.Info("watching upstream credential for rotation", "dir", cfg.Security.Secrets.Dir)
	}

	svc, err := chat.NewService(chat.Options{
		Upstreams: upstreams.holder,
		Store:     store,
		MaxLength: cfg.Transcript.MaxLength,
		Metrics:   collector,
		Tracer:    tracer,
		Logger:    logger,
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	sessions, err := session.NewManager(cfg.Session)
	if err != nil {
		return cli.NewConfigError("session", err.Error())
	}
	if cfg.Session.SecretKey == "" {
		slog.Warn("no session secret configured; sessions will not survive a restart")
	}

	srv, err := server.NewServer(cfg, server.Dependencies{
		Chat:     handlers.NewChatHandler(svc, cfg.Server.MaxBodyBytes),
		Sessions: sessions,
		Limiter:  newLimiter(cfg.Limits.RateLimit),
		Health:   newHealthChecker(store, upstreams.holder, collector),
		Metrics:  collector,
		Tracer:   tracer,
		Build: server.BuildInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
		},
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	slog.Info("server stopped")
	return nil
}

// newLimiter builds the per-client limiter, or nil when rate limiting is
// disabled.
func newLimiter(cfg config.RateLimitConfig) *ratelimit.Limiter {
	if !cfg.Enabled {
		return nil
	}
	return ratelimit.NewLimiter(ratelimit.Config{
		Tiers: []ratelimit.Tier{
			{Name: "minute", Limit: cfg.PerMinute, Period: time.Minute},
			{Name: "hour", Limit: cfg.PerHour, Period: time.Hour},
		},
		IdleTTL: cfg.IdleTTL,
	})
}

// newHealthChecker registers the readiness checks: the transcript backend
// answers and the upstream has not crossed its failure threshold.
func newHealthChecker(store transcript.Store, holder *providers.Holder, collector *metrics.Collector) *health.Checker {
	checker := health.New(0)
	checker.RegisterCheck("transcript_store", store.Ping)
	checker.RegisterCheck("upstream", func(ctx context.Context) error {
		up := holder.Current()
		if up == nil {
			return errors.New("no upstream configured")
		}
		h := up.GetHealth()
		collector.UpdateUpstreamHealth(up.GetName(), h.IsHealthy)
		if !h.IsHealthy {
			if h.LastError != nil {
				return fmt.Errorf("upstream %s unhealthy after %d consecutive failures: %v",
					up.GetName(), h.ConsecutiveFailures, h.LastError)
			}
			return fmt.Errorf("upstream %s unhealthy", up.GetName())
		}
		return nil
	})
	return checker
}
