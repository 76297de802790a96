package driven

import (
	"context"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

// VectorIndex stores chunk embeddings with ticker and document type
// as filterable attributes.
//
// Writes are staged: Stage may be called many times for one document,
// and staged chunks are invisible to Search until Commit. Commit
// replaces every previously committed chunk of the same ref in a single
// transaction, so readers never observe a mix of generations. Abort
// discards staged chunks.
type VectorIndex interface {
	// Stage writes chunks (with embeddings) for doc without exposing them.
	Stage(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error

	// Commit atomically exposes doc's staged chunks and removes the
	// committed chunks of any other document with the same ref.
	Commit(ctx context.Context, doc *domain.Document) error

	// Abort removes doc's staged chunks.
	Abort(ctx context.Context, doc *domain.Document) error

	// Delete removes every chunk and document row for ref.
	// Returns domain.ErrNotFound if nothing is stored for ref.
	Delete(ctx context.Context, ref domain.DocumentRef) error

	// Search returns up to k committed chunks matching filter, ordered by
	// cosine similarity descending, then sequence and chunk ID ascending.
	Search(ctx context.Context, query []float32, filter domain.Filter, k int) ([]domain.ScoredChunk, error)

	// Embeddings returns stored vectors for the given chunk content hashes
	// that were produced by model. Missing hashes are absent from the map.
	Embeddings(ctx context.Context, model string, hashes []string) (map[string][]float32, error)

	// Version returns a counter that changes whenever the committed set changes.
	Version(ctx context.Context) (int64, error)

	// Close releases resources.
	Close() error
}

// DocumentStore is the read side of indexed documents for presentation.
type DocumentStore interface {
	// GetDocument returns the committed document for ref.
	GetDocument(ctx context.Context, ref domain.DocumentRef) (*domain.Document, error)

	// GetDocumentByID returns a committed document by ID.
	GetDocumentByID(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns committed documents matching filter.
	ListDocuments(ctx context.Context, filter domain.Filter) ([]domain.Document, error)

	// GetChunks returns a committed document's chunks in sequence order.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)
}
