package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/core/ports/driven"
	"github.com/hedgeintel/filingqa/internal/logger"
)

// abortTimeout bounds rollback of staged chunks after a failure.
const abortTimeout = 10 * time.Second

// IndexStats summarises one EmbedAndStore call.
type IndexStats struct {
	// Stored is the number of chunks committed.
	Stored int

	// Reused is the number of chunks whose embeddings already existed.
	Reused int

	// Skipped is true when the document was already committed.
	Skipped bool
}

// Indexer embeds chunks and stores them so that a document is either
// fully queryable or absent. Operations on the same document ref are
// mutually exclusive; different refs proceed in parallel.
type Indexer struct {
	embedder  driven.EmbeddingService
	index     driven.VectorIndex
	docs      driven.DocumentStore
	locks     *keyedMutex
	batchSize int
	policy    retryPolicy
}

// NewIndexer creates an indexer.
func NewIndexer(
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	docs driven.DocumentStore,
	settings domain.EmbeddingSettings,
) *Indexer {
	batch := settings.BatchSize
	if batch < 1 {
		batch = 1
	}
	return &Indexer{
		embedder:  embedder,
		index:     index,
		docs:      docs,
		locks:     newKeyedMutex(),
		batchSize: batch,
		policy:    newRetryPolicy(settings.MaxAttempts, settings.Timeout.Std()),
	}
}

// EmbedAndStore embeds chunks and atomically replaces the committed
// chunks of doc's ref. On any failure the staged chunks are rolled back
// and the returned error wraps domain.ErrIndexingFailed; whatever was
// committed before stays queryable and unchanged.
func (ix *Indexer) EmbedAndStore(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) (IndexStats, error) {
	if doc == nil {
		return IndexStats{}, domain.ErrInvalidInput
	}

	unlock := ix.locks.Lock(doc.Ref.Key())
	defer unlock()

	logger.Section("Index")
	logger.Debug("Document %s (%s): %d chunks", doc.ID, doc.Ref, len(chunks))

	doc.EmbeddingModel = ix.embedder.ModelName()
	if current, err := ix.docs.GetDocument(ctx, doc.Ref); err == nil &&
		current.ID == doc.ID && current.EmbeddingModel == doc.EmbeddingModel {
		logger.Info("%s already indexed at %s, skipping", doc.Ref, shortHash(doc.ContentHash))
		return IndexStats{Skipped: true}, nil
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return IndexStats{}, fmt.Errorf("%w: %s: %w", domain.ErrIndexingFailed, doc.Ref, err)
	}

	if len(chunks) == 0 {
		return IndexStats{}, fmt.Errorf("%w: %s produced no chunks", domain.ErrIndexingFailed, doc.Ref)
	}

	stats, err := ix.stage(ctx, doc, chunks)
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		err = ix.index.Commit(ctx, doc)
	}
	if err != nil {
		ix.abort(ctx, doc)
		logger.Warn("Indexing %s failed, staged chunks rolled back: %v", doc.Ref, err)
		return IndexStats{}, fmt.Errorf("%w: %s: %w", domain.ErrIndexingFailed, doc.Ref, err)
	}

	logger.Info("Indexed %s: %d chunks (%d embeddings reused)", doc.Ref, stats.Stored, stats.Reused)
	return stats, nil
}

// DeleteDocument removes every chunk of ref from the index.
func (ix *Indexer) DeleteDocument(ctx context.Context, ref domain.DocumentRef) error {
	unlock := ix.locks.Lock(ref.Key())
	defer unlock()

	logger.Debug("Deleting %s from index", ref)
	if err := ix.index.Delete(ctx, ref); err != nil {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	return nil
}

// stage embeds chunks batch by batch, reusing stored embeddings for
// unchanged content, and writes each batch as staged rows.
func (ix *Indexer) stage(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) (IndexStats, error) {
	var stats IndexStats
	model := doc.EmbeddingModel

	hashes := make([]string, 0, len(chunks))
	for i := range chunks {
		hashes = append(hashes, chunks[i].ContentHash)
	}
	known, err := ix.index.Embeddings(ctx, model, hashes)
	if err != nil {
		return stats, fmt.Errorf("load stored embeddings: %w", err)
	}
	if known == nil {
		known = make(map[string][]float32)
	}

	for start, n := 0, 1; start < len(chunks); start, n = start+ix.batchSize, n+1 {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		end := min(start+ix.batchSize, len(chunks))
		batch := make([]domain.Chunk, end-start)
		copy(batch, chunks[start:end])

		var missing []int
		var texts []string
		for i := range batch {
			if vec, ok := known[batch[i].ContentHash]; ok && batch[i].ContentHash != "" {
				batch[i].Embedding = vec
				stats.Reused++
				continue
			}
			missing = append(missing, i)
			texts = append(texts, batch[i].Content)
		}

		if len(texts) > 0 {
			vectors, err := ix.embed(ctx, fmt.Sprintf("embed %s batch %d", doc.Ref, n), texts)
			if err != nil {
				return stats, err
			}
			for j, i := range missing {
				batch[i].Embedding = vectors[j]
				known[batch[i].ContentHash] = vectors[j]
			}
		}

		if err := ix.index.Stage(ctx, doc, batch); err != nil {
			return stats, fmt.Errorf("stage batch %d: %w", n, err)
		}
		stats.Stored += len(batch)
		logger.Debug("Staged batch %d: %d/%d chunks", n, stats.Stored, len(chunks))
	}

	return stats, nil
}

func (ix *Indexer) embed(ctx context.Context, op string, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := withRetry(ctx, ix.policy, op, func(ctx context.Context) error {
		v, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		vectors = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(vectors), len(texts))
	}
	dims := ix.embedder.Dimensions()
	for _, v := range vectors {
		if len(v) == 0 || (dims > 0 && len(v) != dims) {
			return nil, fmt.Errorf("embedding has %d dimensions, want %d", len(v), dims)
		}
	}
	return vectors, nil
}

// abort rolls back staged chunks even when ctx has been cancelled.
func (ix *Indexer) abort(ctx context.Context, doc *domain.Document) {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abortTimeout)
	defer cancel()

	if err := ix.index.Abort(actx, doc); err != nil {
		logger.Warn("Rollback of %s failed: %v", doc.Ref, err)
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
