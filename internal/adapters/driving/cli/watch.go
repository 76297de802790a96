package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hedgeintel/filingqa/internal/connectors/filesystem"
	"github.com/hedgeintel/filingqa/internal/logger"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest filings dropped into a directory",
	Long: `Watches a directory and ingests every settled file named
TICKER_anything.htm, .html, .txt or .pdf. The document type is detected
from the file name and its first page.

Without an argument the ingest.inbox_dir setting is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", filesystem.DefaultDebounce, "quiet period before a file is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}
	if svc.Ingest == nil {
		return missing("ingest")
	}

	dir := svc.Config.Ingest.InboxDir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		return errors.New("no inbox directory: pass one or set ingest.inbox_dir")
	}

	handle := func(ctx context.Context, ticker, path string) error {
		result, err := svc.Ingest.IngestFile(ctx, ticker, path)
		if err != nil {
			return err
		}
		printIngestResult(cmd, result)
		return nil
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", dir)
	w := filesystem.NewWatcher(dir, handle, filesystem.WithDebounce(watchDebounce))
	if err := w.Run(commandContext(cmd)); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch failed: %w", err)
	}
	logger.Debug("watcher on %s stopped", dir)
	return nil
}
