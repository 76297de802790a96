// Package facts extracts headline offering facts from normalised filing text.
package facts

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/core/ports/driven"
	"github.com/hedgeintel/filingqa/internal/normalisers"
)

// Ensure Extractor implements the interface.
var _ driven.FactExtractor = (*Extractor)(nil)

var (
	sharesOffered = regexp.MustCompile(`(?i)offering\s+(?:of\s+)?([\d,]{3,})\s+shares`)
	priceRange    = regexp.MustCompile(`(?i)\$\s?(\d+(?:\.\d+)?)\s+(?:to|and)\s+\$\s?(\d+(?:\.\d+)?)\s+per\s+share`)
	exchange      = regexp.MustCompile(`listed\s+on\s+(?:[Tt]he\s+)?((?:[A-Z][\w.&]*\s+){0,4}(?:Exchange|Market))`)
	symbol        = regexp.MustCompile(`symbol\s+["“]([A-Z]{1,5})["”]`)
	lockUpDays    = regexp.MustCompile(`(?i)(\d{2,3})\s+days\s+after`)
	listMarker    = regexp.MustCompile(`^(?:[•●▪◦*\-]|\(?\d{1,3}[.)])\s+\S`)
)

// Sections whose text states the lock-up period.
var lockUpSections = []string{"LOCK-UP AGREEMENTS", "SHARES ELIGIBLE FOR FUTURE SALE"}

// Extractor implements driven.FactExtractor.
type Extractor struct{}

// New creates a fact extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract reads facts from a normalised document.
func (e *Extractor) Extract(result *driven.NormaliseResult) domain.KeyFacts {
	if result == nil {
		return domain.KeyFacts{LockUpDays: domain.DefaultLockUpDays}
	}
	return Extract(result.PlainText, normalisers.CollectSections(result.Sections()))
}

// Extract reads facts from text; sections scope the lock-up and risk
// factor lookups. Facts not found keep zero values, except LockUpDays
// which falls back to domain.DefaultLockUpDays.
func Extract(text string, sections []domain.Section) domain.KeyFacts {
	facts := domain.KeyFacts{LockUpDays: domain.DefaultLockUpDays}

	if m := sharesOffered.FindStringSubmatch(text); m != nil {
		if n, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64); err == nil {
			facts.SharesOffered = n
		}
	}

	if m := priceRange.FindStringSubmatch(text); m != nil {
		lo, errLo := strconv.ParseFloat(m[1], 64)
		hi, errHi := strconv.ParseFloat(m[2], 64)
		if errLo == nil && errHi == nil {
			if lo > hi {
				lo, hi = hi, lo
			}
			facts.PriceRange = domain.PriceRange{Min: lo, Max: hi}
		}
	}

	if m := exchange.FindStringSubmatch(text); m != nil {
		facts.Exchange = strings.Join(strings.Fields(m[1]), " ")
	}

	if m := symbol.FindStringSubmatch(text); m != nil {
		facts.Symbol = m[1]
	}

	for _, label := range lockUpSections {
		body := sectionText(text, sections, label)
		if m := lockUpDays.FindStringSubmatch(body); m != nil {
			if days, err := strconv.Atoi(m[1]); err == nil && days > 0 {
				facts.LockUpDays = days
				break
			}
		}
	}

	facts.RiskFactorCount = countListItems(sectionText(text, sections, "RISK FACTORS"))

	return facts
}

// sectionText returns the longest body of a section labelled label, so
// table of contents entries lose to the section itself.
func sectionText(text string, sections []domain.Section, label string) string {
	body := ""
	for i, s := range sections {
		if s.Label != label {
			continue
		}
		end := len(text)
		if i+1 < len(sections) {
			end = sections[i+1].Start
		}
		if end-s.Start > len(body) {
			body = text[s.Start:end]
		}
	}
	return body
}

func countListItems(body string) int {
	n := 0
	for line := range strings.Lines(body) {
		if listMarker.MatchString(strings.TrimSpace(line)) {
			n++
		}
	}
	return n
}
