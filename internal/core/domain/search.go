package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Filter restricts retrieval to a ticker and/or document type.
// The zero value matches every document.
type Filter struct {
	// Ticker restricts to one company; empty means any.
	Ticker string

	// Type restricts to one document type; empty means any.
	Type DocumentType
}

// Normalised returns the filter with the ticker upper-cased.
func (f Filter) Normalised() Filter {
	f.Ticker = strings.ToUpper(strings.TrimSpace(f.Ticker))
	return f
}

// Matches reports whether a chunk's attributes satisfy the filter.
func (f Filter) Matches(ticker string, docType DocumentType) bool {
	if f.Ticker != "" && !strings.EqualFold(f.Ticker, ticker) {
		return false
	}
	if f.Type != "" && f.Type != docType {
		return false
	}
	return true
}

// String returns a stable representation used in cache keys.
func (f Filter) String() string {
	f = f.Normalised()
	return fmt.Sprintf("ticker=%s;type=%s", f.Ticker, f.Type)
}

// Query is a question scoped by a filter. It is never persisted.
type Query struct {
	// Text is the free-text question.
	Text string

	// Filter scopes the question.
	Filter Filter
}

// ScoredChunk is a retrieved chunk with its cosine similarity in [-1, 1].
type ScoredChunk struct {
	// Chunk is the retrieved chunk (without its embedding).
	Chunk Chunk

	// Score is the cosine similarity to the query.
	Score float64

	// SourceURL is the parent document's source URL.
	SourceURL string
}

// Citation points from an Answer back to a Chunk.
type Citation struct {
	// ChunkID identifies the cited chunk.
	ChunkID string

	// DocumentID identifies the chunk's document.
	DocumentID string

	// Ticker is the company ticker.
	Ticker string

	// DocumentType is the filing type.
	DocumentType DocumentType

	// Section is the chunk's section label, empty if none.
	Section string

	// Span is the chunk text that best matches the question.
	Span string

	// Page is the 1-based page number, 0 when unknown.
	Page int

	// Score is the retrieval similarity.
	Score float64

	// SourceURL links to the filing in the registry.
	SourceURL string
}

// Label renders the citation as "TICKER DOCTYPE - Page N".
func (c Citation) Label() string {
	label := c.Ticker + " " + c.DocumentType.Code()
	if c.Section != "" {
		label += " - " + c.Section
	}
	if c.Page > 0 {
		label += fmt.Sprintf(" - Page %d", c.Page)
	}
	return label
}

// Answer is a grounded response to a Query.
type Answer struct {
	// Text is the generated answer.
	Text string

	// Confidence is a deterministic score in [0, 1].
	Confidence float64

	// Citations are ordered by retrieval rank.
	Citations []Citation

	// Degraded is true when the language model could not be reached.
	Degraded bool

	// Cached is true when the answer was served from the answer cache.
	Cached bool
}

// CosineSimilarity returns the cosine of the angle between a and b in [-1, 1].
// Mismatched lengths and zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(-1, math.Min(1, sim))
}

// SortScored orders hits by score descending, then sequence ascending,
// then chunk ID ascending, giving a total reproducible order.
func SortScored(hits []ScoredChunk) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Chunk.Sequence != b.Chunk.Sequence {
			return a.Chunk.Sequence < b.Chunk.Sequence
		}
		return a.Chunk.ID < b.Chunk.ID
	})
}
