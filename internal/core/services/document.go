package services

import (
	"context"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/core/ports/driven"
	"github.com/hedgeintel/filingqa/internal/core/ports/driving"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService exposes indexed filings to the CLI and MCP server.
type DocumentService struct {
	docStore driven.DocumentStore
	indexer  *Indexer
}

// NewDocumentService creates a new document service.
func NewDocumentService(docStore driven.DocumentStore, indexer *Indexer) *DocumentService {
	return &DocumentService{
		docStore: docStore,
		indexer:  indexer,
	}
}

// List returns committed documents matching filter.
func (s *DocumentService) List(ctx context.Context, filter domain.Filter) ([]domain.Document, error) {
	filter = filter.Normalised()
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, domain.ErrUnsupportedType
	}
	return s.docStore.ListDocuments(ctx, filter)
}

// Get returns the committed document for ref.
func (s *DocumentService) Get(ctx context.Context, ref domain.DocumentRef) (*domain.Document, error) {
	return s.docStore.GetDocument(ctx, ref)
}

// Chunks returns the committed chunks of ref in sequence order.
func (s *DocumentService) Chunks(ctx context.Context, ref domain.DocumentRef) ([]domain.Chunk, error) {
	doc, err := s.docStore.GetDocument(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.docStore.GetChunks(ctx, doc.ID)
}

// Facts returns the key facts recorded for ref. Only registration
// statements and prospectuses carry facts.
func (s *DocumentService) Facts(ctx context.Context, ref domain.DocumentRef) (*domain.KeyFacts, error) {
	if !ref.Type.HasFacts() {
		return nil, domain.ErrUnsupportedType
	}
	doc, err := s.docStore.GetDocument(ctx, ref)
	if err != nil {
		return nil, err
	}
	if doc.Facts == nil {
		return nil, domain.ErrNotFound
	}
	return doc.Facts, nil
}

// Delete removes ref from the index.
func (s *DocumentService) Delete(ctx context.Context, ref domain.DocumentRef) error {
	return s.indexer.DeleteDocument(ctx, ref)
}
