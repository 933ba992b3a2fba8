package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Subscription store backends.
const (
	StoreSQLite      = "sqlite"
	StoreWooCommerce = "woocommerce"
)

// Delivery log backends.
const (
	LogBackendSQLite = "sqlite"
	LogBackendFile   = "file"
)

// AppConfig holds all application-level configuration loaded from environment variables.
type AppConfig struct {
	// Port is the HTTP server port. Defaults to 8991.
	Port int `envconfig:"PORT" default:"8991"`

	// DataDir is the root data directory. Defaults to ~/.webhookd.
	DataDir string `envconfig:"WEBHOOKD_DATA_DIR"`

	// LogLevel sets the minimum log level (debug, info, warn, error). Defaults to info.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// LogToStderr mirrors the system log to stderr.
	LogToStderr bool `envconfig:"WEBHOOKD_LOG_STDERR"`

	// OTLPEndpoint is a host:port OTLP gRPC collector. Empty disables export.
	OTLPEndpoint string `envconfig:"WEBHOOKD_OTLP_ENDPOINT"`
	OTLPInsecure bool   `envconfig:"WEBHOOKD_OTLP_INSECURE" default:"true"`

	// Store selects where subscriptions live: "sqlite" or "woocommerce".
	Store string `envconfig:"WEBHOOKD_STORE" default:"sqlite"`

	// LogBackend selects the delivery log backend: "sqlite" or "file".
	LogBackend string `envconfig:"WEBHOOKD_LOG_BACKEND" default:"sqlite"`

	// LogRetention is the number of delivery log entries kept.
	LogRetention int `envconfig:"WEBHOOKD_LOG_RETENTION" default:"1000"`

	DeliveryTimeout time.Duration `envconfig:"WEBHOOKD_DELIVERY_TIMEOUT" default:"10s"`
	StoreTimeout    time.Duration `envconfig:"WEBHOOKD_STORE_TIMEOUT" default:"5s"`

	// StatsInterval is how often the metrics gauges are refreshed.
	StatsInterval time.Duration `envconfig:"WEBHOOKD_STATS_INTERVAL" default:"1m"`

	WooCommerceURL            string `envconfig:"WOOCOMMERCE_URL"`
	WooCommerceConsumerKey    string `envconfig:"WOOCOMMERCE_CONSUMER_KEY"`
	WooCommerceConsumerSecret string `envconfig:"WOOCOMMERCE_CONSUMER_SECRET"`
	WooCommerceAPIVersion     string `envconfig:"WOOCOMMERCE_API_VERSION" default:"v3"`

	// AllowedOrigins is a comma-separated CORS allow list. Empty allows
	// localhost origins only.
	AllowedOrigins string `envconfig:"WEBHOOKD_ALLOWED_ORIGINS"`
}

// Load reads AppConfig from environment variables using envconfig.
// DataDir defaults to ~/.webhookd if not set.
func Load() (*AppConfig, error) {
	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, ".webhookd")
	}
	return &c, nil
}

// Validate checks backend names and that WooCommerce credentials are present
// when the WooCommerce store is selected.
func (c *AppConfig) Validate() error {
	switch c.Store {
	case StoreSQLite:
	case StoreWooCommerce:
		if c.WooCommerceURL == "" || c.WooCommerceConsumerKey == "" || c.WooCommerceConsumerSecret == "" {
			return fmt.Errorf("WEBHOOKD_STORE=woocommerce requires WOOCOMMERCE_URL, " +
				"WOOCOMMERCE_CONSUMER_KEY and WOOCOMMERCE_CONSUMER_SECRET")
		}
	default:
		return fmt.Errorf("unknown WEBHOOKD_STORE %q", c.Store)
	}
	switch c.LogBackend {
	case LogBackendSQLite, LogBackendFile:
	default:
		return fmt.Errorf("unknown WEBHOOKD_LOG_BACKEND %q", c.LogBackend)
	}
	if c.LogRetention < 0 {
		return fmt.Errorf("WEBHOOKD_LOG_RETENTION must not be negative")
	}
	return nil
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Origins splits AllowedOrigins into a list.
func (c *AppConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// LogDir returns the path to the log directory (~/.webhookd/logs).
func (c *AppConfig) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// DBPath returns the path to the SQLite database.
func (c *AppConfig) DBPath() string {
	return filepath.Join(c.DataDir, "webhookd.db")
}

// DeliveryLogFile returns the snapshot path used by the file log backend.
func (c *AppConfig) DeliveryLogFile() string {
	return filepath.Join(c.DataDir, "delivery_log.json")
}

// NotificationsFile returns the path to the alert settings YAML file.
func (c *AppConfig) NotificationsFile() string {
	return filepath.Join(c.DataDir, "notifications.yaml")
}
