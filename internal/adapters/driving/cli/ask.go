package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

var (
	askTicker string
	askType   string
	askJSON   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from indexed filings",
	Long: `Retrieves the most relevant passages and asks the language model to
answer using only those passages. Every answer lists its sources.

When the language model is unavailable the retrieved passages are shown
instead and the answer is marked degraded.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askTicker, "ticker", "", "restrict to one company")
	askCmd.Flags().StringVarP(&askType, "type", "t", "", "restrict to one document type")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

// answerJSON is the JSON shape of an answer.
type answerJSON struct {
	Answer     string         `json:"answer"`
	Confidence float64        `json:"confidence"`
	Degraded   bool           `json:"degraded"`
	Cached     bool           `json:"cached"`
	Citations  []citationJSON `json:"citations"`
}

type citationJSON struct {
	Label     string  `json:"label"`
	ChunkID   string  `json:"chunk_id"`
	Span      string  `json:"span"`
	Score     float64 `json:"score"`
	SourceURL string  `json:"source_url,omitempty"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	filter, err := parseFilter(askTicker, askType)
	if err != nil {
		return err
	}
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}
	if svc.Answerer == nil {
		return missing("answer")
	}

	answer, err := svc.Answerer.Answer(commandContext(cmd), args[0], filter)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		out := answerJSON{
			Answer:     answer.Text,
			Confidence: answer.Confidence,
			Degraded:   answer.Degraded,
			Cached:     answer.Cached,
			Citations:  make([]citationJSON, len(answer.Citations)),
		}
		for i, c := range answer.Citations {
			out.Citations[i] = citationJSON{
				Label:     c.Label(),
				ChunkID:   c.ChunkID,
				Span:      c.Span,
				Score:     c.Score,
				SourceURL: c.SourceURL,
			}
		}
		return printJSON(cmd, out)
	}

	printAnswer(cmd, answer)
	return nil
}

func printAnswer(cmd *cobra.Command, answer *domain.Answer) {
	p := newPalette(cmd.OutOrStdout())

	if answer.Degraded {
		cmd.Println(p.warn.Sprint("Language model unavailable. Showing retrieved passages."))
		cmd.Println()
	}
	cmd.Println(answer.Text)

	if len(answer.Citations) > 0 {
		cmd.Println()
		cmd.Println(p.heading.Sprint("Sources:"))
		for i, c := range answer.Citations {
			cmd.Printf("  [%d] %s %s\n", i+1, p.source.Sprint(c.Label()), p.muted.Sprintf("(%.2f)", c.Score))
			if c.SourceURL != "" {
				cmd.Printf("      %s\n", p.muted.Sprint(c.SourceURL))
			}
		}
	}

	cmd.Println()
	confidence := fmt.Sprintf("Confidence: %.2f", answer.Confidence)
	switch {
	case answer.Confidence >= 0.5:
		cmd.Println(p.good.Sprint(confidence))
	case answer.Confidence > 0:
		cmd.Println(p.warn.Sprint(confidence))
	default:
		cmd.Println(p.muted.Sprint(confidence))
	}
	if answer.Cached {
		cmd.Println(p.muted.Sprint("(cached)"))
	}
}
