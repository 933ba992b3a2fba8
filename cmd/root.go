package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/webhookd/internal/config"
)

// NewRootCmd returns the webhookd command tree.
func NewRootCmd() *cobra.Command {
	var (
		dataDir string
		verbose bool
	)

	root := &cobra.Command{
		Use:           "webhookd",
		Short:         "Webhook subscription registry and delivery tester",
		Long:          "Manage storefront webhook subscriptions, send signed test deliveries and verify inbound ones.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides WEBHOOKD_DATA_DIR)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Mirror the system log to stderr")

	// loadConfig resolves the configuration after flags are parsed.
	loadConfig := func() (*config.AppConfig, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if verbose {
			cfg.LogToStderr = true
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	root.AddCommand(
		NewServeCmd(loadConfig),
		NewTopicsCmd(),
		NewWebhooksCmd(loadConfig),
		NewTestCmd(loadConfig),
		NewLogsCmd(loadConfig),
		NewStatsCmd(loadConfig),
		NewVersionCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

type configLoader func() (*config.AppConfig, error)
