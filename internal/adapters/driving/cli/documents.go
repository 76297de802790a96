package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hedgeintel/filingqa/internal/connectors/filesystem"
	"github.com/hedgeintel/filingqa/internal/core/domain"
)

var (
	documentsTicker string
	documentsType   string
	documentsJSON   bool
	documentRefType string
	chunksFull      bool
	deleteConfirmed bool
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage indexed filings",
	Long:    `List, inspect and delete indexed filings.`,
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed filings",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsShowCmd = &cobra.Command{
	Use:   "show [ticker]",
	Short: "Show filing metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsShow,
}

var documentsChunksCmd = &cobra.Command{
	Use:   "chunks [ticker]",
	Short: "List the chunks of a filing",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsChunks,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [ticker]",
	Short: "Remove a filing from the index",
	Long: `Removes the filing and its chunks from the index. The raw filing stays
in the local store so it can be reindexed.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentsDelete,
}

func init() {
	documentsListCmd.Flags().StringVar(&documentsTicker, "ticker", "", "restrict to one company")
	documentsListCmd.Flags().StringVarP(&documentsType, "type", "t", "", "restrict to one document type")
	documentsListCmd.Flags().BoolVar(&documentsJSON, "json", false, "output as JSON")

	for _, c := range []*cobra.Command{documentsShowCmd, documentsChunksCmd, documentsDeleteCmd} {
		c.Flags().StringVarP(&documentRefType, "type", "t", "", refTypeUsage)
	}
	documentsChunksCmd.Flags().BoolVar(&chunksFull, "full", false, "print full chunk text")
	documentsDeleteCmd.Flags().BoolVarP(&deleteConfirmed, "yes", "y", false, "do not ask for confirmation")

	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsShowCmd)
	documentsCmd.AddCommand(documentsChunksCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd)
}

func documentService(cmd *cobra.Command) (*Services, error) {
	svc, err := requireServices(cmd)
	if err != nil {
		return nil, err
	}
	if svc.Documents == nil {
		return nil, missing("document")
	}
	return svc, nil
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	filter, err := parseFilter(documentsTicker, documentsType)
	if err != nil {
		return err
	}
	svc, err := documentService(cmd)
	if err != nil {
		return err
	}

	docs, err := svc.Documents.List(commandContext(cmd), filter)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if documentsJSON {
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}
	for i := range docs {
		d := &docs[i]
		cmd.Printf("  %-8s %-24s %-8s %s\n", d.Ref.Ticker, d.Ref.Type, d.Form, d.FilingDate)
	}
	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

func runDocumentsShow(cmd *cobra.Command, args []string) error {
	ref, err := parseRef(args[0], documentRefType)
	if err != nil {
		return err
	}
	svc, err := documentService(cmd)
	if err != nil {
		return err
	}

	doc, err := svc.Documents.Get(commandContext(cmd), ref)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Ticker:     %s\n", doc.Ref.Ticker)
	cmd.Printf("  Type:       %s\n", doc.Ref.Type)
	cmd.Printf("  Title:      %s\n", doc.Title)
	if doc.CIK != "" {
		cmd.Printf("  CIK:        %s\n", doc.CIK)
	}
	if doc.Form != "" {
		cmd.Printf("  Form:       %s\n", doc.Form)
	}
	if doc.AccessionNumber != "" {
		cmd.Printf("  Accession:  %s\n", doc.AccessionNumber)
	}
	if doc.FilingDate != "" {
		cmd.Printf("  Filed:      %s\n", doc.FilingDate)
	}
	if path, ok := filesystem.LocalPath(doc.SourceURL); ok {
		cmd.Printf("  File:       %s\n", path)
	} else {
		cmd.Printf("  Source:     %s\n", doc.SourceURL)
	}
	cmd.Printf("  MIME:       %s\n", doc.MIMEType)
	cmd.Printf("  Hash:       %s\n", doc.ContentHash)
	cmd.Printf("  Fetched:    %s\n", doc.FetchedAt.Format("2006-01-02 15:04:05"))
	if doc.EmbeddingModel != "" {
		cmd.Printf("  Embeddings: %s\n", doc.EmbeddingModel)
	}
	return nil
}

func runDocumentsChunks(cmd *cobra.Command, args []string) error {
	ref, err := parseRef(args[0], documentRefType)
	if err != nil {
		return err
	}
	svc, err := documentService(cmd)
	if err != nil {
		return err
	}

	chunks, err := svc.Documents.Chunks(commandContext(cmd), ref)
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}
	if len(chunks) == 0 {
		cmd.Printf("No chunks for %s\n", ref)
		return nil
	}

	for i := range chunks {
		c := &chunks[i]
		cmd.Printf("#%d  %s  tokens=%d  bytes=[%d,%d)", c.Sequence, c.ID, c.TokenCount, c.Start, c.End)
		if c.Section != "" {
			cmd.Printf("  section=%q", c.Section)
		}
		if c.Page > 0 {
			cmd.Printf("  page=%d", c.Page)
		}
		cmd.Println()
		if chunksFull {
			cmd.Println(c.Content)
		} else {
			cmd.Printf("    %s\n", snippet(c.Content))
		}
	}
	cmd.Printf("\nTotal: %d chunks\n", len(chunks))
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	ref, err := parseRef(args[0], documentRefType)
	if err != nil {
		return err
	}
	if !deleteConfirmed {
		return fmt.Errorf("%w: refusing to delete %s without --yes", domain.ErrConfig, ref)
	}
	svc, err := documentService(cmd)
	if err != nil {
		return err
	}

	if err := svc.Documents.Delete(commandContext(cmd), ref); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	cmd.Printf("Deleted %s from the index\n", ref)
	return nil
}
