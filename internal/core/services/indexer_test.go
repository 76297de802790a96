package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgeintel/filingqa/internal/adapters/driven/storage/memory"
	"github.com/hedgeintel/filingqa/internal/adapters/driven/storage/sqlite"
	"github.com/hedgeintel/filingqa/internal/core/domain"
)

func newTestIndexer(embedder *mockEmbedder, idx *memory.Index, batchSize int) *Indexer {
	ix := NewIndexer(embedder, idx, idx, domain.EmbeddingSettings{BatchSize: batchSize, MaxAttempts: 2})
	ix.policy = fastPolicy(2)
	return ix
}

func TestIndexer_EmbedAndStore(t *testing.T) {
	ctx := context.Background()
	idx := memory.NewIndex()
	embedder := newMockEmbedder()
	doc := testDocument(testRef("ACME", domain.DocTypeRegistration), "v1")

	stats, err := newTestIndexer(embedder, idx, 4).EmbedAndStore(ctx, doc, testChunks(doc, 10))
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Stored)
	assert.Equal(t, 0, stats.Reused)
	assert.Equal(t, 3, embedder.batchCalls)

	chunks, err := idx.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, chunks, 10)

	stored, err := idx.GetDocument(ctx, doc.Ref)
	require.NoError(t, err)
	assert.Equal(t, "mock-embed", stored.EmbeddingModel)
}

func TestIndexer_SkipsUnchangedDocument(t *testing.T) {
	ctx := context.Background()
	idx := memory.NewIndex()
	embedder := newMockEmbedder()
	ix := newTestIndexer(embedder, idx, 4)
	doc := testDocument(testRef("ACME", domain.DocTypeRegistration), "v1")

	_, err := ix.EmbedAndStore(ctx, doc, testChunks(doc, 3))
	require.NoError(t, err)
	version, _ := idx.Version(ctx)

	stats, err := ix.EmbedAndStore(ctx, doc, testChunks(doc, 3))
	require.NoError(t, err)
	assert.True(t, stats.Skipped)
	assert.Equal(t, 1, embedder.batchCalls)

	after, _ := idx.Version(ctx)
	assert.Equal(t, version, after)
}

func TestIndexer_ReusesEmbeddingsForUnchangedChunks(t *testing.T) {
	ctx := context.Background()
	idx := memory.NewIndex()
	embedder := newMockEmbedder()
	ix := newTestIndexer(embedder, idx, 8)
	ref := testRef("ACME", domain.DocTypeProspectus)

	v1 := testDocument(ref, "v1")
	_, err := ix.EmbedAndStore(ctx, v1, []domain.Chunk{
		testChunk(v1, 0, 0, "shares offered"),
		testChunk(v1, 1, 20, "price range"),
	})
	require.NoError(t, err)
	require.Equal(t, 2, embedder.texts)

	v2 := testDocument(ref, "v2")
	stats, err := ix.EmbedAndStore(ctx, v2, []domain.Chunk{
		testChunk(v2, 0, 0, "shares offered"),
		testChunk(v2, 1, 20, "price range"),
		testChunk(v2, 2, 40, "amended risk factors"),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Stored)
	assert.Equal(t, 2, stats.Reused)
	assert.Equal(t, 3, embedder.texts)

	current, err := idx.GetDocument(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, current.ID)
}

func TestIndexer_FailureMidwayKeepsPreviousGeneration(t *testing.T) {
	ctx := context.Background()
	idx := memory.NewIndex()
	embedder := newMockEmbedder()
	ix := newTestIndexer(embedder, idx, 2)
	ref := testRef("ACME", domain.DocTypeRegistration)

	old := testDocument(ref, "old")
	_, err := ix.EmbedAndStore(ctx, old, testChunks(old, 2))
	require.NoError(t, err)
	version, _ := idx.Version(ctx)

	// Five batches of two; the second batch fails permanently.
	embedder.failBatch = embedder.batchCalls + 2
	embedder.batchErr = errBadRequest

	next := testDocument(ref, "new")
	_, err = ix.EmbedAndStore(ctx, next, testChunks(next, 10))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexingFailed)
	assert.ErrorIs(t, err, errBadRequest)

	current, err := idx.GetDocument(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, old.ID, current.ID)

	_, err = idx.GetDocumentByID(ctx, next.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	hits, err := idx.Search(ctx, []float32{1, 1, 0.5}, domain.Filter{}, 50)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, old.ID, h.Chunk.DocumentID)
	}

	after, _ := idx.Version(ctx)
	assert.Equal(t, version, after)
}

func TestIndexer_RetriesTransientEmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	idx := memory.NewIndex()
	embedder := newMockEmbedder()
	embedder.failBatch = 1
	embedder.batchErr = domain.ErrRateLimited
	doc := testDocument(testRef("ACME", domain.DocTypeLockUp), "v1")

	stats, err := newTestIndexer(embedder, idx, 10).EmbedAndStore(ctx, doc, testChunks(doc, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Stored)
	assert.Equal(t, 2, embedder.batchCalls)
}

func TestIndexer_NoChunksFails(t *testing.T) {
	doc := testDocument(testRef("ACME", domain.DocTypeLockUp), "empty")
	_, err := newTestIndexer(newMockEmbedder(), memory.NewIndex(), 4).EmbedAndStore(context.Background(), doc, nil)
	assert.ErrorIs(t, err, domain.ErrIndexingFailed)
}

func TestIndexer_DimensionMismatchFails(t *testing.T) {
	embedder := newMockEmbedder()
	embedder.dims = 8
	idx := memory.NewIndex()
	doc := testDocument(testRef("ACME", domain.DocTypeLockUp), "v1")

	_, err := newTestIndexer(embedder, idx, 4).EmbedAndStore(context.Background(), doc, testChunks(doc, 2))
	assert.ErrorIs(t, err, domain.ErrIndexingFailed)

	_, err = idx.GetDocument(context.Background(), doc.Ref)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexer_CancelledContextRollsBack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	idx := memory.NewIndex()
	doc := testDocument(testRef("ACME", domain.DocTypeRegistration), "v1")

	_, err := newTestIndexer(newMockEmbedder(), idx, 4).EmbedAndStore(ctx, doc, testChunks(doc, 4))
	assert.ErrorIs(t, err, domain.ErrIndexingFailed)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = idx.GetDocumentByID(context.Background(), doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexer_ConcurrentSameRefLeavesOneGeneration(t *testing.T) {
	ctx := context.Background()
	idx := memory.NewIndex()
	ix := newTestIndexer(newMockEmbedder(), idx, 3)
	ref := testRef("ACME", domain.DocTypeRegistration)

	var wg sync.WaitGroup
	for _, content := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc := testDocument(ref, content)
			_, err := ix.EmbedAndStore(ctx, doc, testChunks(doc, 7))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	current, err := idx.GetDocument(ctx, ref)
	require.NoError(t, err)

	hits, err := idx.Search(ctx, []float32{1, 1, 0.5}, domain.Filter{}, 100)
	require.NoError(t, err)
	assert.Len(t, hits, 7)
	for _, h := range hits {
		assert.Equal(t, current.ID, h.Chunk.DocumentID)
	}
	assert.Equal(t, 0, ix.locks.size())
}

func TestIndexer_DeleteDocument(t *testing.T) {
	ctx := context.Background()
	idx := memory.NewIndex()
	ix := newTestIndexer(newMockEmbedder(), idx, 4)
	doc := testDocument(testRef("ACME", domain.DocTypeListing), "v1")

	assert.ErrorIs(t, ix.DeleteDocument(ctx, doc.Ref), domain.ErrNotFound)

	_, err := ix.EmbedAndStore(ctx, doc, testChunks(doc, 2))
	require.NoError(t, err)
	require.NoError(t, ix.DeleteDocument(ctx, doc.Ref))

	_, err = idx.GetDocument(ctx, doc.Ref)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexer_SQLiteStoreRetrieveAndDelete(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	embedder := newMockEmbedder()
	ix := NewIndexer(embedder, store, store, domain.EmbeddingSettings{BatchSize: 2, MaxAttempts: 2})
	ix.policy = fastPolicy(2)
	retriever := NewRetrievalService(embedder, store, domain.EmbeddingSettings{MaxAttempts: 2})
	retriever.policy = fastPolicy(2)

	filter := domain.Filter{Ticker: "ACME"}
	ref := testRef("ACME", domain.DocTypeRegistration)
	doc := testDocument(ref, "v1")

	_, err = ix.EmbedAndStore(ctx, doc, testChunks(doc, 10))
	require.NoError(t, err)

	hits, err := retriever.Retrieve(ctx, "passage", filter, domain.MaxTopK)
	require.NoError(t, err)
	assert.Len(t, hits, 10)
	for _, h := range hits {
		assert.Equal(t, doc.ID, h.Chunk.DocumentID)
	}

	require.NoError(t, ix.DeleteDocument(ctx, ref))
	hits, err = retriever.Retrieve(ctx, "passage", filter, domain.MaxTopK)
	require.NoError(t, err)
	assert.Empty(t, hits)

	// Five batches of two; the second fails and nothing becomes visible.
	embedder.failBatch = embedder.batchCalls + 2
	embedder.batchErr = errBadRequest
	next := testDocument(ref, "v2")
	_, err = ix.EmbedAndStore(ctx, next, testChunks(next, 10))
	assert.ErrorIs(t, err, domain.ErrIndexingFailed)

	hits, err = retriever.Retrieve(ctx, "passage", filter, domain.MaxTopK)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
