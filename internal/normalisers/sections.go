package normalisers

import (
	"iter"
	"regexp"
	"slices"
	"strings"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

// maxHeadingLength bounds the lines considered as headings.
const maxHeadingLength = 80

var (
	itemHeading   = regexp.MustCompile(`(?i)^ITEM\s+\d+[A-Z]?\s*[.:\-]?\s+(.+)$`)
	trailingPage  = regexp.MustCompile(`\s+\d+$`)
	knownHeadings = map[string]bool{
		"PROSPECTUS SUMMARY":                 true,
		"THE OFFERING":                       true,
		"RISK FACTORS":                       true,
		"USE OF PROCEEDS":                    true,
		"DIVIDEND POLICY":                    true,
		"CAPITALIZATION":                     true,
		"DILUTION":                           true,
		"BUSINESS":                           true,
		"OUR BUSINESS":                       true,
		"MANAGEMENT":                         true,
		"EXECUTIVE COMPENSATION":             true,
		"PRINCIPAL STOCKHOLDERS":             true,
		"PRINCIPAL AND SELLING STOCKHOLDERS": true,
		"DESCRIPTION OF CAPITAL STOCK":       true,
		"SHARES ELIGIBLE FOR FUTURE SALE":    true,
		"UNDERWRITING":                       true,
		"LOCK-UP AGREEMENTS":                 true,
		"LEGAL MATTERS":                      true,
		"EXPERTS":                            true,
	}
)

// Sections lazily yields the structural headings of text in order.
// Text without headings yields nothing.
func Sections(text string) iter.Seq[domain.Section] {
	return func(yield func(domain.Section) bool) {
		for offset := 0; offset <= len(text); {
			line := text[offset:]
			next := len(text) + 1
			if i := strings.IndexByte(line, '\n'); i >= 0 {
				line = line[:i]
				next = offset + i + 1
			}

			if label, ok := headingLabel(line); ok {
				indent := len(line) - len(strings.TrimLeft(line, " \t"))
				if !yield(domain.Section{Label: label, Start: offset + indent}) {
					return
				}
			}
			offset = next
		}
	}
}

// CollectSections materialises a section sequence.
func CollectSections(seq iter.Seq[domain.Section]) []domain.Section {
	return slices.Collect(seq)
}

// headingLabel reports whether line is a heading and returns its label.
func headingLabel(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || len(line) > maxHeadingLength {
		return "", false
	}

	if m := itemHeading.FindStringSubmatch(line); m != nil {
		label := trailingPage.ReplaceAllString(m[1], "")
		label = strings.ToUpper(strings.TrimRight(label, ". "))
		if label != "" {
			return label, true
		}
		return "", false
	}

	upper := strings.ToUpper(line)
	if knownHeadings[upper] {
		return upper, true
	}
	return "", false
}
