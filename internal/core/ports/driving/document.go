package driving

import (
	"context"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

// DocumentService exposes indexed documents to presentation layers.
type DocumentService interface {
	// List returns committed documents matching filter.
	List(ctx context.Context, filter domain.Filter) ([]domain.Document, error)

	// Get returns the committed document for ref.
	Get(ctx context.Context, ref domain.DocumentRef) (*domain.Document, error)

	// Chunks returns the committed chunks of ref in sequence order.
	Chunks(ctx context.Context, ref domain.DocumentRef) ([]domain.Chunk, error)

	// Facts returns the key facts extracted for ref.
	Facts(ctx context.Context, ref domain.DocumentRef) (*domain.KeyFacts, error)

	// Delete removes ref from the index.
	Delete(ctx context.Context, ref domain.DocumentRef) error
}
