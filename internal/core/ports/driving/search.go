package driving

import (
	"context"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

// Retriever returns the chunks most similar to a question.
type Retriever interface {
	// Retrieve returns up to k chunks matching filter, ordered by score
	// descending with ties broken by sequence ascending. k must be positive.
	Retrieve(ctx context.Context, query string, filter domain.Filter, k int) ([]domain.ScoredChunk, error)
}

// Answerer produces grounded answers with citations.
type Answerer interface {
	// Answer never fails because of the language model; model outages
	// produce a degraded answer. Retrieval and parameter errors are returned.
	Answer(ctx context.Context, query string, filter domain.Filter) (*domain.Answer, error)
}
