package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/shaharia-lab/webhookd/internal/build"
	"github.com/shaharia-lab/webhookd/internal/config"
	"github.com/shaharia-lab/webhookd/internal/eventbus"
	"github.com/shaharia-lab/webhookd/internal/logger"
	"github.com/shaharia-lab/webhookd/internal/metrics"
	"github.com/shaharia-lab/webhookd/internal/notification"
	"github.com/shaharia-lab/webhookd/internal/service"
	"github.com/shaharia-lab/webhookd/internal/storage"
	"github.com/shaharia-lab/webhookd/internal/telemetry"
	"github.com/shaharia-lab/webhookd/internal/transport"
	"github.com/shaharia-lab/webhookd/internal/woocommerce"
)

// eventWorkers is the number of event bus workers delivering alerts.
const eventWorkers = 2

const telemetryShutdownTimeout = 5 * time.Second

// app holds the wired services shared by the serve and management commands.
type app struct {
	logger    *slog.Logger
	db        *sql.DB
	bus       eventbus.EventBus
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	telemetry *telemetry.Providers

	subscriptions service.SubscriptionService
	deliveries    service.DeliveryService
	stats         service.StatsService
	notifications service.NotificationService

	logCloser io.Closer
}

// newApp opens storage and builds every service from cfg. The caller must
// call Close.
func newApp(cfg *config.AppConfig) (a *app, err error) {
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", cfg.DataDir, err)
	}

	var mirror io.Writer
	if cfg.LogToStderr {
		mirror = os.Stderr
	}
	sysLogger, logCloser, err := logger.NewSystemLogger(cfg.LogDir(), cfg.SlogLevel(), mirror)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	a = &app{logger: sysLogger, logCloser: logCloser}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	db, fresh, err := storage.NewSQLiteDB(cfg.DBPath())
	if err != nil {
		return a, fmt.Errorf("opening database: %w", err)
	}
	a.db = db
	if fresh {
		sysLogger.Info("created database", "path", cfg.DBPath())
	}

	subStore, err := newSubscriptionStore(cfg, db)
	if err != nil {
		return a, err
	}
	logStore, err := newDeliveryLogStore(cfg, db)
	if err != nil {
		return a, err
	}
	notificationStore := storage.NewSQLiteNotificationStore(db)

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics, err = metrics.New(a.registry)
	if err != nil {
		return a, fmt.Errorf("registering metrics: %w", err)
	}

	a.telemetry, err = telemetry.Setup(context.Background(), telemetry.Config{
		ServiceName:    "webhookd",
		ServiceVersion: build.Version,
		Registerer:     a.registry,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		UserAgent:      build.UserAgent(),
	})
	if err != nil {
		return a, fmt.Errorf("setting up telemetry: %w", err)
	}
	sysLogger = logger.Tee(sysLogger, a.telemetry.LogHandler)
	a.logger = sysLogger

	a.bus = eventbus.New(eventWorkers, sysLogger)
	alerts := notification.NewAlertHandler(
		func() (*notification.NotificationSettings, error) {
			return notification.LoadSettings(cfg.NotificationsFile())
		},
		notificationStore, nil, sysLogger,
	)
	for _, eventType := range []string{service.EventDeliveryFailed, service.EventDeliverySucceeded} {
		a.bus.SubscribeType(eventType, func(e eventbus.Event) {
			alerts.Handle(e.Type, e.Payload)
		})
	}
	a.bus.Subscribe(func(e eventbus.Event) {
		sysLogger.Debug("event dispatched", "event", e)
	})
	if err := metrics.RegisterEventBusDropped(a.registry, a.bus.Dropped); err != nil {
		return a, fmt.Errorf("registering event bus metrics: %w", err)
	}

	a.subscriptions = service.NewSubscriptionService(subStore, sysLogger, cfg.StoreTimeout)
	a.deliveries = service.NewDeliveryService(service.DeliveryConfig{
		Subscriptions: a.subscriptions,
		Log:           logStore,
		Poster:        transport.NewHTTPPoster(transport.NewHTTPClient(cfg.DeliveryTimeout)),
		Timeout:       cfg.DeliveryTimeout,
		Logger:        sysLogger,
		Events:        a.bus,
		Metrics:       a.metrics,
	})
	a.stats = service.NewStatsService(a.subscriptions, logStore)
	a.notifications = service.NewNotificationService(cfg.NotificationsFile(), notificationStore, nil)

	sysLogger.Info("webhookd initialized",
		slog.String("version", build.Version),
		slog.String("data_dir", cfg.DataDir),
		slog.String("store", cfg.Store),
		slog.String("log_backend", cfg.LogBackend),
	)
	return a, nil
}

func newSubscriptionStore(cfg *config.AppConfig, db *sql.DB) (storage.SubscriptionStore, error) {
	if cfg.Store != config.StoreWooCommerce {
		return storage.NewSQLiteSubscriptionStore(db), nil
	}
	client, err := woocommerce.NewClient(woocommerce.Config{
		StoreURL:       cfg.WooCommerceURL,
		ConsumerKey:    cfg.WooCommerceConsumerKey,
		ConsumerSecret: cfg.WooCommerceConsumerSecret,
		Version:        cfg.WooCommerceAPIVersion,
	}, transport.NewHTTPClient(cfg.StoreTimeout))
	if err != nil {
		return nil, fmt.Errorf("creating woocommerce client: %w", err)
	}
	return client, nil
}

func newDeliveryLogStore(cfg *config.AppConfig, db *sql.DB) (storage.DeliveryLogStore, error) {
	if cfg.LogBackend != config.LogBackendFile {
		return storage.NewSQLiteDeliveryLogStore(db, cfg.LogRetention), nil
	}
	store, err := storage.NewFSDeliveryLogStore(cfg.DeliveryLogFile(), cfg.LogRetention)
	if err != nil {
		return nil, fmt.Errorf("opening delivery log: %w", err)
	}
	return store, nil
}

// Close drains pending alerts and releases storage and the log file.
func (a *app) Close() error {
	var errs []error
	if a.bus != nil {
		a.bus.Close()
	}
	if a.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		if err := a.telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down telemetry: %w", err))
		}
		cancel()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing database: %w", err))
		}
	}
	if a.logCloser != nil {
		if err := a.logCloser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing log file: %w", err))
		}
	}
	return errors.Join(errs...)
}
