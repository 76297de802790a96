package driven

import (
	"context"
	"iter"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

// Normaliser transforms raw filing bytes into plain text.
// Each normaliser handles specific MIME types (e.g. HTML, PDF).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers return 50-89, fallbacks 1-9.
	Priority() int

	// Normalise converts raw bytes to deterministic plain text.
	// The same input always yields byte-identical PlainText.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliserRegistry selects the appropriate normaliser for a document.
type NormaliserRegistry interface {
	// Normalise transforms a raw document using the best matching normaliser.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}

// SectionDetector finds structural headings in plain text.
type SectionDetector func(text string) iter.Seq[domain.Section]

// NormaliseResult contains the output of normalisation.
type NormaliseResult struct {
	// PlainText is the normalised text.
	PlainText string

	// Pages holds the byte offset at which each page after the first starts.
	Pages []int

	// Title is a best-effort title, empty if none was found.
	Title string

	// Detector produces sections on demand; nil means no sections.
	Detector SectionDetector
}

// Sections lazily yields (label, start offset) pairs in text order.
// A document without headings yields nothing.
func (r *NormaliseResult) Sections() iter.Seq[domain.Section] {
	if r.Detector == nil {
		return func(func(domain.Section) bool) {}
	}
	return r.Detector(r.PlainText)
}
