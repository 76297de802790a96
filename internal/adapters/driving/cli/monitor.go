package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Keep watchlist filings up to date",
	Long: `Re-ingests every monitor.tickers x monitor.document_types filing at
monitor.interval until interrupted. Unchanged filings are skipped, so
amendments replace what is indexed as soon as they are published.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}
	if svc.Monitor == nil {
		return errors.New("monitor not configured: set monitor.tickers and monitor.document_types")
	}

	m := svc.Config.Monitor
	cmd.Printf("Monitoring %s (%s) every %s (Ctrl+C to stop)\n",
		strings.Join(m.Tickers, ", "), strings.Join(m.DocumentTypes, ", "), m.Interval.Std())

	err = svc.Monitor.Start(commandContext(cmd))
	if stopErr := svc.Monitor.Stop(); stopErr != nil && err == nil {
		err = stopErr
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("monitor failed: %w", err)
	}

	for _, task := range svc.Monitor.Tasks() {
		if task.LastRun.IsZero() {
			continue
		}
		cmd.Printf("Last refresh: %s", task.LastRun.Format("2006-01-02 15:04:05"))
		if task.LastError != "" {
			cmd.Printf(" (error: %s)", task.LastError)
		}
		cmd.Println()
	}
	return nil
}
