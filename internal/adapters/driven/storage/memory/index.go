package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/core/ports/driven"
)

// Ensure Index implements the interfaces.
var (
	_ driven.VectorIndex   = (*Index)(nil)
	_ driven.DocumentStore = (*Index)(nil)
)

// entry is one document generation with its staged and committed chunks.
type entry struct {
	doc       domain.Document
	staged    []domain.Chunk
	chunks    []domain.Chunk
	committed bool
}

// Index is an in-memory implementation of driven.VectorIndex and
// driven.DocumentStore. It performs exact cosine search and is used for
// tests and the "memory" index backend.
type Index struct {
	mu        sync.RWMutex
	entries   map[string]*entry // by document ID
	committed map[string]string // ref key -> document ID
	version   int64
}

// NewIndex creates a new in-memory index.
func NewIndex() *Index {
	return &Index{
		entries:   make(map[string]*entry),
		committed: make(map[string]string),
	}
}

// Stage records chunks for doc without exposing them to Search.
func (s *Index) Stage(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	for i := range chunks {
		if len(chunks[i].Embedding) == 0 {
			return fmt.Errorf("%w: chunk %s has no embedding", domain.ErrInvalidInput, chunks[i].ID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[doc.ID]
	if !ok {
		e = &entry{doc: *doc}
		s.entries[doc.ID] = e
	}
	for i := range chunks {
		c := chunks[i]
		c.Embedding = append([]float32(nil), c.Embedding...)
		e.staged = append(e.staged, c)
	}
	return nil
}

// Commit exposes doc's staged chunks and drops the previous generation of
// the same ref.
func (s *Index) Commit(_ context.Context, doc *domain.Document) error {
	if doc == nil {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[doc.ID]
	if !ok || len(e.staged) == 0 {
		return fmt.Errorf("commit %s: %w", doc.ID, domain.ErrNotFound)
	}

	key := doc.Ref.Key()
	if old, ok := s.committed[key]; ok && old != doc.ID {
		delete(s.entries, old)
	}

	sort.Slice(e.staged, func(i, j int) bool {
		return e.staged[i].Sequence < e.staged[j].Sequence
	})
	e.doc = *doc
	e.chunks = e.staged
	e.staged = nil
	e.committed = true
	s.committed[key] = doc.ID
	s.version++
	return nil
}

// Abort discards doc's staged chunks.
func (s *Index) Abort(_ context.Context, doc *domain.Document) error {
	if doc == nil {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[doc.ID]
	if !ok {
		return nil
	}
	e.staged = nil
	if !e.committed {
		delete(s.entries, doc.ID)
	}
	return nil
}

// Delete removes every generation of ref.
func (s *Index) Delete(_ context.Context, ref domain.DocumentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	for id, e := range s.entries {
		if e.doc.Ref == ref {
			delete(s.entries, id)
			removed = true
		}
	}
	if _, ok := s.committed[ref.Key()]; ok {
		delete(s.committed, ref.Key())
		s.version++
	}
	if !removed {
		return domain.ErrNotFound
	}
	return nil
}

// Search scores every committed chunk matching filter.
func (s *Index) Search(_ context.Context, query []float32, filter domain.Filter, k int) ([]domain.ScoredChunk, error) {
	if len(query) == 0 || k <= 0 {
		return nil, domain.ErrInvalidInput
	}
	filter = filter.Normalised()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []domain.ScoredChunk
	for _, id := range s.committed {
		e := s.entries[id]
		if !filter.Matches(e.doc.Ref.Ticker, e.doc.Ref.Type) {
			continue
		}
		for i := range e.chunks {
			c := e.chunks[i]
			score := domain.CosineSimilarity(query, c.Embedding)
			c.Embedding = nil
			hits = append(hits, domain.ScoredChunk{
				Chunk:     c,
				Score:     score,
				SourceURL: e.doc.SourceURL,
			})
		}
	}

	domain.SortScored(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Embeddings returns stored vectors for content hashes embedded by model.
func (s *Index) Embeddings(_ context.Context, model string, hashes []string) (map[string][]float32, error) {
	want := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		want[h] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]float32)
	for _, e := range s.entries {
		if !e.committed || e.doc.EmbeddingModel != model {
			continue
		}
		for i := range e.chunks {
			c := &e.chunks[i]
			if want[c.ContentHash] {
				out[c.ContentHash] = append([]float32(nil), c.Embedding...)
			}
		}
	}
	return out, nil
}

// Version returns the commit counter.
func (s *Index) Version(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version, nil
}

// Close is a no-op.
func (s *Index) Close() error {
	return nil
}

// GetDocument returns the committed document for ref.
func (s *Index) GetDocument(_ context.Context, ref domain.DocumentRef) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.committed[ref.Key()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc := s.entries[id].doc
	return &doc, nil
}

// GetDocumentByID returns a committed document by ID.
func (s *Index) GetDocumentByID(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok || !e.committed {
		return nil, domain.ErrNotFound
	}
	doc := e.doc
	return &doc, nil
}

// ListDocuments returns committed documents matching filter, ordered by ref.
func (s *Index) ListDocuments(_ context.Context, filter domain.Filter) ([]domain.Document, error) {
	filter = filter.Normalised()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Document
	for _, id := range s.committed {
		doc := s.entries[id].doc
		if filter.Matches(doc.Ref.Ticker, doc.Ref.Type) {
			result = append(result, doc)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Ref.Key() < result[j].Ref.Key()
	})
	return result, nil
}

// GetChunks returns a committed document's chunks in sequence order.
func (s *Index) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[documentID]
	if !ok || !e.committed {
		return nil, domain.ErrNotFound
	}
	out := make([]domain.Chunk, len(e.chunks))
	copy(out, e.chunks)
	return out, nil
}
