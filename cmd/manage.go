package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/webhookd/internal/build"
	"github.com/shaharia-lab/webhookd/internal/webhook"
)

// withApp runs fn against a freshly wired app and closes it afterwards.
func withApp(load configLoader, fn func(a *app) error) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}

// NewTopicsCmd returns the "topics" subcommand that prints the topic catalog.
func NewTopicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List the supported webhook topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows := make([][]string, 0)
			for _, t := range webhook.Topics() {
				rows = append(rows, []string{string(t.ID), t.Label, t.Description})
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"TOPIC", "LABEL", "DESCRIPTION"}, rows))
			return err
		},
	}
}

// NewWebhooksCmd returns the "webhooks" subcommand that lists subscriptions.
func NewWebhooksCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:     "webhooks",
		Aliases: []string{"ls"},
		Short:   "List webhook subscriptions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(load, func(a *app) error {
				subs, err := a.subscriptions.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(subs) == 0 {
					_, err = fmt.Fprintln(out, mutedStyle.Render("No webhooks configured."))
					return err
				}
				rows := make([][]string, 0, len(subs))
				for _, s := range subs {
					signed := "no"
					if s.Secret != "" {
						signed = "yes"
					}
					rows = append(rows, []string{
						s.ID, s.Name, renderSubscriptionStatus(s.Status), string(s.Topic), s.DeliveryURL, signed,
					})
				}
				_, err = fmt.Fprintln(out, renderTable([]string{"ID", "NAME", "STATUS", "TOPIC", "DELIVERY URL", "SIGNED"}, rows))
				return err
			})
		},
	}
}

// NewTestCmd returns the "test" subcommand that sends one test delivery.
func NewTestCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "test <id>",
		Short: "Send a signed test delivery to a webhook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(load, func(a *app) error {
				entry, err := a.deliveries.TestByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "%s %s\n", renderDeliveryStatus(entry.Status), entry.DeliveryURL)
				_, _ = fmt.Fprintf(out, "  response code:    %s\n", formatCode(entry.ResponseCode))
				_, _ = fmt.Fprintf(out, "  response message: %s\n", entry.ResponseMessage)
				_, err = fmt.Fprintf(out, "  delivery id:      %s\n", mutedStyle.Render(entry.DeliveryID))
				return err
			})
		},
	}
}

// NewLogsCmd returns the "logs" subcommand that lists or clears the delivery log.
func NewLogsCmd(load configLoader) *cobra.Command {
	var (
		webhookID string
		clearLog  bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show or clear the delivery log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(load, func(a *app) error {
				out := cmd.OutOrStdout()
				if clearLog {
					if err := a.deliveries.ClearLog(cmd.Context()); err != nil {
						return err
					}
					_, err := fmt.Fprintln(out, successStyle.Render("Delivery log cleared."))
					return err
				}

				entries, err := a.deliveries.ListLog(cmd.Context(), webhookID)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					_, err = fmt.Fprintln(out, mutedStyle.Render("No deliveries recorded."))
					return err
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						e.CreatedAt.Local().Format(time.DateTime),
						e.SubscriptionID,
						string(e.Topic),
						renderDeliveryStatus(e.Status),
						formatCode(e.ResponseCode),
						e.ResponseMessage,
					})
				}
				_, err = fmt.Fprintln(out, renderTable([]string{"TIME", "WEBHOOK", "TOPIC", "STATUS", "CODE", "MESSAGE"}, rows))
				return err
			})
		},
	}

	cmd.Flags().StringVar(&webhookID, "webhook-id", "", "Only show deliveries for this webhook")
	cmd.Flags().BoolVar(&clearLog, "clear", false, "Delete every delivery log entry")
	return cmd
}

// NewStatsCmd returns the "stats" subcommand.
func NewStatsCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show webhook and delivery statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(load, func(a *app) error {
				s, err := a.stats.Compute(cmd.Context())
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Webhooks", fmt.Sprintf("%d (%d active)", s.TotalSubscriptions, s.ActiveSubscriptions)},
					{"Deliveries", fmt.Sprint(s.TotalDeliveries)},
					{"Successful", successStyle.Render(fmt.Sprint(s.SuccessfulDeliveries))},
					{"Failed", errorStyle.Render(fmt.Sprint(s.FailedDeliveries))},
					{"Success rate", fmt.Sprintf("%.2f%%", s.SuccessRate)},
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"METRIC", "VALUE"}, rows))
				return err
			})
		},
	}
}

// NewVersionCmd returns the "version" subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "webhookd "+build.String())
			return err
		},
	}
}
