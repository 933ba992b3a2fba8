// Package scheduler runs the periodic stats refresh that keeps the registry
// and delivery log gauges current. It never re-sends deliveries.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/shaharia-lab/webhookd/internal/webhook"
)

// DefaultInterval is used when Config.Interval is not positive.
const DefaultInterval = time.Minute

// StatsSource computes a fresh stats snapshot.
type StatsSource interface {
	Compute(ctx context.Context) (*webhook.Stats, error)
}

// StatsSink receives each snapshot.
type StatsSink interface {
	SetStats(s *webhook.Stats, at time.Time)
}

// Config holds the reporter configuration.
type Config struct {
	Source   StatsSource
	Sink     StatsSink
	Interval time.Duration
	// Timeout bounds one refresh. Defaults to half the interval.
	Timeout time.Duration
	Logger  *slog.Logger
}

// StatsReporter refreshes stats on a fixed interval using gocron.
type StatsReporter struct {
	cron   gocron.Scheduler
	cfg    Config
	logger *slog.Logger
}

// New creates a StatsReporter. Call Start to begin reporting.
func New(cfg Config) (*StatsReporter, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("stats source is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.Interval / 2
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}
	return &StatsReporter{cron: cron, cfg: cfg, logger: cfg.Logger}, nil
}

// Start schedules the refresh job, runs it once immediately and starts the scheduler.
func (r *StatsReporter) Start() error {
	_, err := r.cron.NewJob(
		gocron.DurationJob(r.cfg.Interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
			defer cancel()
			_ = r.Report(ctx)
		}),
		gocron.WithName("stats-refresh"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("scheduling stats refresh: %w", err)
	}
	r.cron.Start()
	r.logger.Info("stats reporter started", "interval", r.cfg.Interval)
	return nil
}

// Stop shuts down the gocron scheduler and waits for a running refresh.
func (r *StatsReporter) Stop() error {
	return r.cron.Shutdown()
}

// Report computes stats once and hands them to the sink. A failed
// computation leaves the previous gauges untouched.
func (r *StatsReporter) Report(ctx context.Context) error {
	stats, err := r.cfg.Source.Compute(ctx)
	if err != nil {
		r.logger.Warn("stats refresh failed", "error", err)
		return err
	}
	if r.cfg.Sink != nil {
		r.cfg.Sink.SetStats(stats, time.Now())
	}
	r.logger.Debug("stats refreshed",
		"total_webhooks", stats.TotalSubscriptions,
		"active_webhooks", stats.ActiveSubscriptions,
		"total_deliveries", stats.TotalDeliveries,
		"success_rate", stats.SuccessRate)
	return nil
}
