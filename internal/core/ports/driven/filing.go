package driven

import (
	"context"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

// FilingRegistry retrieves filings from an external filings registry.
// Implementations identify themselves on every request and throttle
// per host. Errors wrap domain.ErrNotFound, domain.ErrUnavailable or
// domain.ErrRateLimited; retrying is the caller's decision.
type FilingRegistry interface {
	// ResolveCIK maps a ticker to the registry's company identifier.
	ResolveCIK(ctx context.Context, ticker string) (string, error)

	// Fetch locates the most recent filing for ref and downloads it.
	// The returned document has no ID or content hash yet.
	Fetch(ctx context.Context, ref domain.DocumentRef) (*domain.RawDocument, error)
}

// RawStore persists fetched filings so that re-processing never
// requires re-fetching. Entries are keyed by ticker, type and content hash.
type RawStore interface {
	// Save stores the raw document and marks it as the latest for its ref.
	Save(ctx context.Context, raw *domain.RawDocument) error

	// Get returns the raw document with the given content hash.
	Get(ctx context.Context, ref domain.DocumentRef, hash string) (*domain.RawDocument, error)

	// Latest returns the most recently saved raw document for ref.
	Latest(ctx context.Context, ref domain.DocumentRef) (*domain.RawDocument, error)

	// Hashes lists every stored content hash for ref.
	Hashes(ctx context.Context, ref domain.DocumentRef) ([]string, error)

	// Close releases resources.
	Close() error
}
