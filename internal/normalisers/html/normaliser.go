package html

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/core/ports/driven"
	"github.com/hedgeintel/filingqa/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// removed lists elements whose text never belongs in the plain text.
const removed = "script, style, noscript, head, title, template, [hidden], " +
	"[style*='display:none'], [style*='display: none'], ix\\:header"

// blockElements start and end on their own line.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"body": true, "center": true, "dd": true, "div": true, "dl": true,
	"dt": true, "fieldset": true, "figcaption": true, "figure": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"html": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "pre": true, "section": true, "table": true, "tbody": true,
	"thead": true, "tfoot": true, "tr": true, "ul": true, "caption": true,
}

var (
	pageBreakBefore = regexp.MustCompile(`(?i)(page-)?break-before\s*:\s*(always|page)`)
	pageBreakAfter  = regexp.MustCompile(`(?i)(page-)?break-after\s*:\s*(always|page)`)
)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts an HTML filing to plain text with page offsets.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	doc.Find(removed).Remove()

	var b strings.Builder
	writeText(&b, doc.Selection)
	plain, pages := normalisers.Collapse(b.String())

	return &driven.NormaliseResult{
		PlainText: plain,
		Pages:     pages,
		Title:     title,
	}, nil
}

// writeText appends the text of sel's children, one line per block.
func writeText(b *strings.Builder, sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		switch name {
		case "#text":
			// Source line breaks are plain whitespace in HTML.
			b.WriteString(strings.Map(flattenSpace, s.Text()))
			return
		case "#comment", "#doctype":
			return
		case "br":
			b.WriteByte('\n')
			return
		}

		style, _ := s.Attr("style")
		if pageBreakBefore.MatchString(style) {
			b.WriteString("\n\f\n")
		}

		switch {
		case blockElements[name]:
			b.WriteByte('\n')
			writeText(b, s)
			b.WriteByte('\n')
		case name == "td" || name == "th":
			writeText(b, s)
			b.WriteByte(' ')
		default:
			writeText(b, s)
		}

		if pageBreakAfter.MatchString(style) {
			b.WriteString("\n\f\n")
		}
	})
}

func flattenSpace(r rune) rune {
	switch r {
	case '\n', '\r', normalisers.PageBreak:
		return ' '
	}
	return r
}
