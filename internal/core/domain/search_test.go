package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}

func TestSortScored(t *testing.T) {
	hits := []ScoredChunk{
		{Chunk: Chunk{ID: "c", Sequence: 4}, Score: 0.5},
		{Chunk: Chunk{ID: "b", Sequence: 2}, Score: 0.9},
		{Chunk: Chunk{ID: "z", Sequence: 1}, Score: 0.5},
		{Chunk: Chunk{ID: "a", Sequence: 1}, Score: 0.5},
	}

	SortScored(hits)

	var ids []string
	for _, h := range hits {
		ids = append(ids, h.Chunk.ID)
	}
	assert.Equal(t, []string{"b", "a", "z", "c"}, ids)
}
