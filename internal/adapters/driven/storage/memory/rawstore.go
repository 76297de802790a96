package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/core/ports/driven"
)

// Ensure RawStore implements the interface.
var _ driven.RawStore = (*RawStore)(nil)

// RawStore is an in-memory implementation of driven.RawStore for testing.
type RawStore struct {
	mu     sync.RWMutex
	docs   map[string]map[string]domain.RawDocument // ref key -> hash -> raw
	latest map[string]string
}

// NewRawStore creates a new in-memory raw store.
func NewRawStore() *RawStore {
	return &RawStore{
		docs:   make(map[string]map[string]domain.RawDocument),
		latest: make(map[string]string),
	}
}

// Save stores raw and marks it as the latest for its ref.
func (s *RawStore) Save(_ context.Context, raw *domain.RawDocument) error {
	if raw == nil || raw.Document.ContentHash == "" {
		return domain.ErrInvalidInput
	}
	key := raw.Document.Ref.Key()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[key] == nil {
		s.docs[key] = make(map[string]domain.RawDocument)
	}
	stored := *raw
	stored.Content = append([]byte(nil), raw.Content...)
	s.docs[key][raw.Document.ContentHash] = stored
	s.latest[key] = raw.Document.ContentHash
	return nil
}

// Get returns the raw document with the given hash.
func (s *RawStore) Get(_ context.Context, ref domain.DocumentRef, hash string) (*domain.RawDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.docs[ref.Key()][hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &raw, nil
}

// Latest returns the most recently saved raw document for ref.
func (s *RawStore) Latest(ctx context.Context, ref domain.DocumentRef) (*domain.RawDocument, error) {
	s.mu.RLock()
	hash, ok := s.latest[ref.Key()]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Get(ctx, ref, hash)
}

// Hashes lists the stored content hashes for ref in sorted order.
func (s *RawStore) Hashes(_ context.Context, ref domain.DocumentRef) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hashes := make([]string, 0, len(s.docs[ref.Key()]))
	for h := range s.docs[ref.Key()] {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	return hashes, nil
}

// Close is a no-op.
func (s *RawStore) Close() error {
	return nil
}
