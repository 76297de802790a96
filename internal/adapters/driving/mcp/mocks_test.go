package mcp

import (
	"context"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

// mockAnswerer is a mock implementation of driving.Answerer.
type mockAnswerer struct {
	answer     *domain.Answer
	err        error
	lastQuery  string
	lastFilter domain.Filter
}

func (m *mockAnswerer) Answer(_ context.Context, query string, filter domain.Filter) (*domain.Answer, error) {
	m.lastQuery = query
	m.lastFilter = filter
	return m.answer, m.err
}

// mockRetriever is a mock implementation of driving.Retriever.
type mockRetriever struct {
	hits       []domain.ScoredChunk
	err        error
	lastK      int
	lastFilter domain.Filter
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, filter domain.Filter, k int) ([]domain.ScoredChunk, error) {
	m.lastK = k
	m.lastFilter = filter
	return m.hits, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents  []domain.Document
	document   *domain.Document
	chunks     []domain.Chunk
	facts      *domain.KeyFacts
	err        error
	lastRef    domain.DocumentRef
	lastFilter domain.Filter
}

func (m *mockDocumentService) List(_ context.Context, filter domain.Filter) ([]domain.Document, error) {
	m.lastFilter = filter
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, ref domain.DocumentRef) (*domain.Document, error) {
	m.lastRef = ref
	if m.document == nil && m.err == nil {
		return nil, domain.ErrNotFound
	}
	return m.document, m.err
}

func (m *mockDocumentService) Chunks(_ context.Context, ref domain.DocumentRef) ([]domain.Chunk, error) {
	m.lastRef = ref
	return m.chunks, m.err
}

func (m *mockDocumentService) Facts(_ context.Context, ref domain.DocumentRef) (*domain.KeyFacts, error) {
	m.lastRef = ref
	if m.facts == nil && m.err == nil {
		return nil, domain.ErrNotFound
	}
	return m.facts, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, ref domain.DocumentRef) error {
	m.lastRef = ref
	return m.err
}
