package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

var (
	factsType string
	factsJSON bool
)

var factsCmd = &cobra.Command{
	Use:   "facts [ticker]",
	Short: "Show key offering facts extracted from a filing",
	Long: `Shows the headline facts extracted when a registration statement or
prospectus was ingested: proposed symbol, exchange, shares offered, price
range, lock-up period and number of risk factors.`,
	Args: cobra.ExactArgs(1),
	RunE: runFacts,
}

func init() {
	factsCmd.Flags().StringVarP(&factsType, "type", "t", "", "registration_statement (default) or prospectus")
	factsCmd.Flags().BoolVar(&factsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(factsCmd)
}

func runFacts(cmd *cobra.Command, args []string) error {
	ref, err := parseRef(args[0], factsType)
	if err != nil {
		return err
	}
	svc, err := documentService(cmd)
	if err != nil {
		return err
	}

	facts, err := svc.Documents.Facts(commandContext(cmd), ref)
	if err != nil {
		return fmt.Errorf("failed to get facts for %s: %w", ref, err)
	}
	if factsJSON {
		return printJSON(cmd, facts)
	}

	cmd.Printf("Key facts: %s\n\n", ref)
	cmd.Printf("  Symbol:        %s\n", orUnknown(facts.Symbol))
	cmd.Printf("  Exchange:      %s\n", orUnknown(facts.Exchange))
	if facts.SharesOffered > 0 {
		cmd.Printf("  Shares:        %d\n", facts.SharesOffered)
	} else {
		cmd.Printf("  Shares:        %s\n", orUnknown(""))
	}
	cmd.Printf("  Price range:   %s\n", priceRange(facts.PriceRange))
	cmd.Printf("  Lock-up:       %d days\n", facts.LockUpDays)
	cmd.Printf("  Risk factors:  %d\n", facts.RiskFactorCount)
	return nil
}

func priceRange(r domain.PriceRange) string {
	switch {
	case r.Min == 0 && r.Max == 0:
		return orUnknown("")
	case r.Min == r.Max:
		return fmt.Sprintf("$%.2f", r.Min)
	default:
		return fmt.Sprintf("$%.2f - $%.2f", r.Min, r.Max)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "not found"
	}
	return s
}
