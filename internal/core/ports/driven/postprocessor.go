package driven

import "github.com/hedgeintel/filingqa/internal/core/domain"

// Chunker splits a normalised document into overlapping token windows.
type Chunker interface {
	// Chunk returns doc's chunks in sequence order. Each chunk carries
	// the document's ID, ticker and type, its offsets, section and page.
	Chunk(doc *domain.Document, result *NormaliseResult) ([]domain.Chunk, error)
}

// FactExtractor pulls headline offering facts out of normalised text.
type FactExtractor interface {
	// Extract returns the facts found; missing facts keep zero values.
	Extract(result *NormaliseResult) domain.KeyFacts
}
