package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/webhookd/internal/api"
	"github.com/shaharia-lab/webhookd/internal/build"
	"github.com/shaharia-lab/webhookd/internal/config"
	"github.com/shaharia-lab/webhookd/internal/scheduler"
	"github.com/shaharia-lab/webhookd/internal/server"
)

// NewServeCmd returns the "serve" subcommand that starts the HTTP server.
func NewServeCmd(load configLoader) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook management API and receiver",
		Long: `Start the webhookd HTTP server. The management API is served under /api,
inbound deliveries are accepted at /api/hooks/{id} and Prometheus metrics at /metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			// CLI flags override env config.
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			logFile := filepath.Join(cfg.LogDir(), "system.log")
			printBanner(cmd.OutOrStdout(), fmt.Sprintf("http://localhost:%d", cfg.Port), logFile)

			if err := runServe(cmd.Context(), cfg); err != nil {
				return fmt.Errorf("%w (see logs at %s)", err, logFile)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (overrides PORT env var)")
	return cmd
}

func runServe(parent context.Context, cfg *config.AppConfig) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			fmt.Fprintln(os.Stderr, cerr)
		}
	}()

	reporter, err := scheduler.New(scheduler.Config{
		Source:   a.stats,
		Sink:     a.metrics,
		Interval: cfg.StatsInterval,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}
	if err := reporter.Start(); err != nil {
		return err
	}
	defer func() {
		if err := reporter.Stop(); err != nil {
			a.logger.Warn("stopping stats reporter", "error", err)
		}
	}()

	apiSrv := api.New(a.subscriptions, a.deliveries, a.stats, a.notifications, a.logger)
	srv := server.New(apiSrv, server.Config{
		Port:           cfg.Port,
		AllowedOrigins: cfg.Origins(),
		Gatherer:       a.registry,
	}, a.logger)

	a.logger.Info("server ready",
		slog.Int("port", cfg.Port),
		slog.String("version", build.Version),
		slog.String("commit", build.CommitSHA),
	)
	return srv.Run(ctx)
}
