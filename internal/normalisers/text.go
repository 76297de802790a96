package normalisers

import "strings"

// PageBreak separates pages in text handed to Collapse.
const PageBreak = '\f'

// Collapse makes text deterministic: line endings become "\n", runs of
// whitespace inside a line become one space, lines are trimmed and empty
// lines dropped. Form feeds are removed and reported as the byte offsets
// at which each following page starts in the returned text. Empty pages
// repeat the offset so page numbers stay aligned with the source.
func Collapse(text string) (string, []int) {
	text = strings.ToValidUTF8(text, "�")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	b.Grow(len(text))
	var pages []int
	pending := 0

	for _, line := range strings.Split(text, "\n") {
		for i, part := range strings.Split(line, string(PageBreak)) {
			if i > 0 {
				pending++
			}
			collapsed := strings.Join(strings.Fields(part), " ")
			if collapsed == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			for ; pending > 0; pending-- {
				pages = append(pages, b.Len())
			}
			b.WriteString(collapsed)
		}
	}

	return b.String(), pages
}

// PageAt returns the 1-based page containing offset.
func PageAt(pages []int, offset int) int {
	page := 1
	for _, start := range pages {
		if start > offset {
			break
		}
		page++
	}
	return page
}
