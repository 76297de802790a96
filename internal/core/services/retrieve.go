package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/core/ports/driven"
	"github.com/hedgeintel/filingqa/internal/core/ports/driving"
	"github.com/hedgeintel/filingqa/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.Retriever = (*RetrievalService)(nil)

// RetrievalService finds the chunks most similar to a question.
// Scores are cosine similarities in [-1, 1].
type RetrievalService struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	policy   retryPolicy
}

// NewRetrievalService creates a retrieval service.
func NewRetrievalService(
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	settings domain.EmbeddingSettings,
) *RetrievalService {
	return &RetrievalService{
		embedder: embedder,
		index:    index,
		policy:   newRetryPolicy(settings.MaxAttempts, settings.Timeout.Std()),
	}
}

// Retrieve returns up to k chunks matching filter, best first.
// An empty result with a nil error means nothing matched the filter.
func (s *RetrievalService) Retrieve(
	ctx context.Context, query string, filter domain.Filter, k int,
) ([]domain.ScoredChunk, error) {
	logger.Section("Retrieve")

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrConfig)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrConfig, k)
	}
	filter = filter.Normalised()
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown document type %q", domain.ErrConfig, filter.Type)
	}
	logger.Debug("Query: %q, filter: %s, k: %d", query, filter, k)

	var vector []float32
	err := withRetry(ctx, s.policy, "embed query", func(ctx context.Context) error {
		v, err := s.embedder.Embed(ctx, query)
		if err != nil {
			return err
		}
		vector = v
		return nil
	})
	if err != nil {
		logger.Warn("Query embedding failed: %v", err)
		return nil, fmt.Errorf("retrieve: embed query: %w", err)
	}

	hits, err := s.index.Search(ctx, vector, filter, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve: search: %w", err)
	}

	domain.SortScored(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	logger.Debug("Retrieved %d chunks", len(hits))

	return hits, nil
}
