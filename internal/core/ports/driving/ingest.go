package driving

import (
	"context"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

// FetchService retrieves filings and persists their raw content.
type FetchService interface {
	// Fetch downloads the latest filing for ref, retrying transient
	// failures, and stores it before returning.
	Fetch(ctx context.Context, ref domain.DocumentRef) (*domain.RawDocument, error)

	// Stored returns a previously fetched filing without network access.
	// An empty hash selects the latest one.
	Stored(ctx context.Context, ref domain.DocumentRef, hash string) (*domain.RawDocument, error)
}

// IngestService drives the write path: fetch, normalise, chunk, index.
type IngestService interface {
	// Ingest fetches and indexes one filing.
	Ingest(ctx context.Context, ref domain.DocumentRef) (*domain.IngestResult, error)

	// IngestMany ingests refs concurrently. Each result carries its own error.
	IngestMany(ctx context.Context, refs []domain.DocumentRef) []domain.IngestResult

	// Reindex re-processes the latest stored raw filing for ref.
	Reindex(ctx context.Context, ref domain.DocumentRef) (*domain.IngestResult, error)

	// IngestFile stores and indexes a local filing for ticker,
	// detecting its document type from name and content.
	IngestFile(ctx context.Context, ticker, path string) (*domain.IngestResult, error)
}
