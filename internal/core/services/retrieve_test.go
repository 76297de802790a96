package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgeintel/filingqa/internal/adapters/driven/storage/memory"
	"github.com/hedgeintel/filingqa/internal/core/domain"
)

// seedIndex commits doc with n chunks whose embeddings drift away from [1, 0].
func seedIndex(t *testing.T, idx *memory.Index, doc *domain.Document, n int) {
	t.Helper()
	ctx := context.Background()
	doc.EmbeddingModel = "mock-embed"
	chunks := testChunks(doc, n)
	for i := range chunks {
		chunks[i].Embedding = []float32{1, float32(i) / 4}
	}
	require.NoError(t, idx.Stage(ctx, doc, chunks))
	require.NoError(t, idx.Commit(ctx, doc))
}

func newTestRetriever(embedder *mockEmbedder, idx *memory.Index) *RetrievalService {
	svc := NewRetrievalService(embedder, idx, domain.EmbeddingSettings{MaxAttempts: 3})
	svc.policy = fastPolicy(3)
	return svc
}

func TestRetrievalService_TopKOrdered(t *testing.T) {
	idx := memory.NewIndex()
	doc := testDocument(testRef("ACME", domain.DocTypeRegistration), "v1")
	seedIndex(t, idx, doc, 10)

	embedder := newMockEmbedder()
	embedder.vectors["what is the business"] = []float32{1, 0}

	hits, err := newTestRetriever(embedder, idx).Retrieve(context.Background(), "what is the business", domain.Filter{}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	for i, h := range hits {
		assert.Equal(t, i, h.Chunk.Sequence)
		if i > 0 {
			assert.GreaterOrEqual(t, hits[i-1].Score, h.Score)
		}
		assert.Equal(t, doc.SourceURL, h.SourceURL)
	}
}

func TestRetrievalService_FilterExcludesEverything(t *testing.T) {
	idx := memory.NewIndex()
	seedIndex(t, idx, testDocument(testRef("ACME", domain.DocTypeRegistration), "v1"), 4)

	hits, err := newTestRetriever(newMockEmbedder(), idx).Retrieve(
		context.Background(), "lock-up period", domain.Filter{Ticker: "ACME", Type: domain.DocTypeLockUp}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRetrievalService_FilterByTicker(t *testing.T) {
	idx := memory.NewIndex()
	seedIndex(t, idx, testDocument(testRef("ACME", domain.DocTypeRegistration), "a"), 3)
	seedIndex(t, idx, testDocument(testRef("BETA", domain.DocTypeRegistration), "b"), 3)

	hits, err := newTestRetriever(newMockEmbedder(), idx).Retrieve(
		context.Background(), "risk factors", domain.Filter{Ticker: "beta"}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	for _, h := range hits {
		assert.Equal(t, "BETA", h.Chunk.Ticker)
	}
}

func TestRetrievalService_InvalidInput(t *testing.T) {
	embedder := newMockEmbedder()
	svc := newTestRetriever(embedder, memory.NewIndex())

	tests := []struct {
		name   string
		query  string
		filter domain.Filter
		k      int
	}{
		{"empty query", "   ", domain.Filter{}, 3},
		{"zero k", "revenue", domain.Filter{}, 0},
		{"unknown type", "revenue", domain.Filter{Type: "10-K"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Retrieve(context.Background(), tt.query, tt.filter, tt.k)
			assert.ErrorIs(t, err, domain.ErrConfig)
		})
	}
	assert.Equal(t, 0, embedder.queries)
}

func TestRetrievalService_EmbeddingUnavailable(t *testing.T) {
	embedder := newMockEmbedder()
	embedder.embedErrs = []error{
		fmt.Errorf("%w: 503", domain.ErrUnavailable),
		fmt.Errorf("%w: 503", domain.ErrUnavailable),
		fmt.Errorf("%w: 503", domain.ErrUnavailable),
	}

	_, err := newTestRetriever(embedder, memory.NewIndex()).Retrieve(context.Background(), "revenue", domain.Filter{}, 3)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, 3, embedder.queries)
}
