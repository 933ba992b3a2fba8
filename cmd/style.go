package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/shaharia-lab/webhookd/internal/build"
	"github.com/shaharia-lab/webhookd/internal/webhook"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

// renderTable draws rows under headers with a rounded border.
func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

func renderDeliveryStatus(s webhook.DeliveryStatus) string {
	switch s {
	case webhook.DeliverySuccess:
		return successStyle.Render(string(s))
	case webhook.DeliveryFailed:
		return errorStyle.Render(string(s))
	default:
		return pendingStyle.Render(string(s))
	}
}

func renderSubscriptionStatus(s webhook.Status) string {
	if s == webhook.StatusActive {
		return successStyle.Render(string(s))
	}
	return mutedStyle.Render(string(s))
}

func formatCode(code *int) string {
	if code == nil {
		return "-"
	}
	return strconv.Itoa(*code)
}

// printBanner writes the startup banner. All structured logs go to the log
// file instead.
func printBanner(w io.Writer, serverURL, logFile string) {
	_, _ = fmt.Fprintln(w, titleStyle.Render("webhookd "+build.Version))
	_, _ = fmt.Fprintf(w, "API:     %s/api\n", serverURL)
	_, _ = fmt.Fprintf(w, "Metrics: %s/metrics\n", serverURL)
	_, _ = fmt.Fprintln(w, mutedStyle.Render("Logs:    "+logFile))
	_, _ = fmt.Fprintln(w)
}
