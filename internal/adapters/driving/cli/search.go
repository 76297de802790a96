package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

var (
	searchLimit  int
	searchTicker string
	searchType   string
	searchJSON   bool
)

// snippetLength caps the passage preview in table output.
const snippetLength = 200

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed filings",
	Long: `Finds the filing passages most similar to the query by embedding
cosine similarity. No language model is involved.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 4, "maximum number of results")
	searchCmd.Flags().StringVar(&searchTicker, "ticker", "", "restrict to one company")
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "", "restrict to one document type")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchLimit < domain.MinTopK || searchLimit > domain.MaxTopK {
		return fmt.Errorf("%w: limit must be between %d and %d", domain.ErrConfig, domain.MinTopK, domain.MaxTopK)
	}
	filter, err := parseFilter(searchTicker, searchType)
	if err != nil {
		return err
	}
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}
	if svc.Retriever == nil {
		return missing("search")
	}

	results, err := svc.Retriever.Retrieve(commandContext(cmd), query, filter, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputSearchTable(cmd *cobra.Command, results []domain.ScoredChunk) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	p := newPalette(cmd.OutOrStdout())
	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		c := &results[i].Chunk
		label := domain.Citation{
			Ticker:       c.Ticker,
			DocumentType: c.DocumentType,
			Section:      c.Section,
			Page:         c.Page,
		}.Label()

		cmd.Printf("  [%d] %s %s\n", i+1, p.source.Sprint(label), p.muted.Sprintf("(%.2f)", results[i].Score))
		if results[i].SourceURL != "" {
			cmd.Printf("      %s\n", p.muted.Sprint(results[i].SourceURL))
		}
		cmd.Printf("      %s\n", snippet(c.Content))
		cmd.Println()
	}
	return nil
}

// snippet flattens whitespace and truncates on a rune boundary.
func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength]) + "..."
}
