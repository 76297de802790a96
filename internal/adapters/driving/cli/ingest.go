package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

const refTypeUsage = "document type for bare tickers (registration_statement, prospectus, lockup_agreement, underwriting_agreement, listing_form)"

var (
	fetchType   string
	ingestType  string
	ingestAll   bool
	reindexType string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [ticker]",
	Short: "Download the latest filing without indexing it",
	Long: `Resolves the ticker in EDGAR, downloads the most recent filing of the
requested type and stores the raw bytes locally.

The ticker may carry its type: ABCD/prospectus.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [ticker...]",
	Short: "Fetch, chunk, embed and index filings",
	Long: `Runs the full ingest pipeline for each ticker. Tickers are processed
concurrently and a failure for one does not stop the others.

Unchanged filings are detected by content hash and skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex [ticker]",
	Short: "Rebuild the index for a stored filing",
	Long:  `Re-chunks and re-embeds the stored raw filing without contacting EDGAR.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runReindex,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchType, "type", "t", "", refTypeUsage)
	ingestCmd.Flags().StringVarP(&ingestType, "type", "t", "", refTypeUsage)
	ingestCmd.Flags().BoolVar(&ingestAll, "all-types", false, "ingest every document type for each ticker")
	reindexCmd.Flags().StringVarP(&reindexType, "type", "t", "", refTypeUsage)

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(reindexCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ref, err := parseRef(args[0], fetchType)
	if err != nil {
		return err
	}
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}
	if svc.Fetch == nil {
		return missing("fetch")
	}

	raw, err := svc.Fetch.Fetch(commandContext(cmd), ref)
	if err != nil {
		return fmt.Errorf("fetch %s failed: %w", ref, err)
	}

	doc := raw.Document
	cmd.Printf("Fetched %s\n\n", ref)
	cmd.Printf("  Form:       %s\n", doc.Form)
	cmd.Printf("  Accession:  %s\n", doc.AccessionNumber)
	cmd.Printf("  Filed:      %s\n", doc.FilingDate)
	cmd.Printf("  Source:     %s\n", doc.SourceURL)
	cmd.Printf("  Size:       %d bytes\n", len(raw.Content))
	cmd.Printf("  Hash:       %s\n", doc.ContentHash)
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	refs, err := ingestRefs(args)
	if err != nil {
		return err
	}
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}
	if svc.Ingest == nil {
		return missing("ingest")
	}

	results := svc.Ingest.IngestMany(commandContext(cmd), refs)

	failed := 0
	for i := range results {
		printIngestResult(cmd, &results[i])
		if results[i].Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d ingests failed", failed, len(results))
	}
	return nil
}

func ingestRefs(args []string) ([]domain.DocumentRef, error) {
	var refs []domain.DocumentRef
	for _, arg := range args {
		if !ingestAll {
			ref, err := parseRef(arg, ingestType)
			if err != nil {
				return nil, err
			}
			refs = append(refs, ref)
			continue
		}
		for _, t := range domain.DocumentTypes() {
			ref, err := domain.NewDocumentRef(arg, t)
			if err != nil {
				return nil, err
			}
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func runReindex(cmd *cobra.Command, args []string) error {
	ref, err := parseRef(args[0], reindexType)
	if err != nil {
		return err
	}
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}
	if svc.Ingest == nil {
		return missing("ingest")
	}

	result, err := svc.Ingest.Reindex(commandContext(cmd), ref)
	if err != nil {
		return fmt.Errorf("reindex %s failed: %w", ref, err)
	}
	printIngestResult(cmd, result)
	return nil
}

func printIngestResult(cmd *cobra.Command, r *domain.IngestResult) {
	switch {
	case r.Err != nil:
		cmd.Printf("  ✗ %s: %v\n", r.Ref, r.Err)
	case r.Skipped:
		cmd.Printf("  = %s: unchanged\n", r.Ref)
	default:
		form := ""
		if r.Document != nil {
			form = " " + r.Document.Form
		}
		cmd.Printf("  ✓ %s%s: %d chunks (%d embeddings reused)\n", r.Ref, form, r.Chunks, r.Reused)
	}
}
