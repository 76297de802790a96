package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/core/ports/driven"
	"github.com/hedgeintel/filingqa/internal/core/ports/driving"
	"github.com/hedgeintel/filingqa/internal/logger"
)

// Ensure FetchService implements the interface.
var _ driving.FetchService = (*FetchService)(nil)

// documentNamespace seeds deterministic document IDs.
var documentNamespace = uuid.MustParse("6f1c1a52-52f4-4c1e-9a57-4d1f3b7e2c10")

// DocumentID derives the stable ID of a document from its ref and content hash.
func DocumentID(ref domain.DocumentRef, contentHash string) string {
	return uuid.NewSHA1(documentNamespace, []byte(ref.Key()+"/"+contentHash)).String()
}

// ContentHash returns the hex SHA-256 of b.
func ContentHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// FetchService retrieves filings with bounded retries and persists them.
type FetchService struct {
	registry driven.FilingRegistry
	raw      driven.RawStore
	policy   retryPolicy
	now      func() time.Time
}

// NewFetchService creates a fetch service.
func NewFetchService(registry driven.FilingRegistry, raw driven.RawStore, settings domain.RegistrySettings) *FetchService {
	return &FetchService{
		registry: registry,
		raw:      raw,
		policy:   newRetryPolicy(settings.MaxAttempts, settings.Timeout.Std()),
		now:      time.Now,
	}
}

// Fetch downloads the latest filing for ref and stores it before returning.
func (s *FetchService) Fetch(ctx context.Context, ref domain.DocumentRef) (*domain.RawDocument, error) {
	logger.Section("Fetch")
	logger.Debug("Ref: %s", ref)

	var raw *domain.RawDocument
	err := withRetry(ctx, s.policy, "fetch "+ref.Key(), func(ctx context.Context) error {
		r, err := s.registry.Fetch(ctx, ref)
		if err != nil {
			return err
		}
		if r == nil || len(r.Content) == 0 {
			return fmt.Errorf("%w: empty response for %s", domain.ErrUnavailable, ref)
		}
		raw = r
		return nil
	})
	if err != nil {
		logger.Warn("Fetch %s failed: %v", ref, err)
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}

	s.stamp(ref, raw)
	logger.Debug("Fetched %d bytes from %s (hash %s)", len(raw.Content), raw.Document.SourceURL, raw.Document.ContentHash[:12])

	if err := s.raw.Save(ctx, raw); err != nil {
		return nil, fmt.Errorf("store raw %s: %w", ref, err)
	}

	return raw, nil
}

// Stored returns a previously fetched filing. An empty hash selects the latest.
func (s *FetchService) Stored(ctx context.Context, ref domain.DocumentRef, hash string) (*domain.RawDocument, error) {
	if hash == "" {
		return s.raw.Latest(ctx, ref)
	}
	return s.raw.Get(ctx, ref, hash)
}

// Import stores bytes obtained outside the registry (e.g. a dropped-in file).
func (s *FetchService) Import(ctx context.Context, raw *domain.RawDocument) error {
	if raw == nil || len(raw.Content) == 0 {
		return domain.ErrInvalidInput
	}
	s.stamp(raw.Document.Ref, raw)
	return s.raw.Save(ctx, raw)
}

// stamp fills the identity fields that depend on the fetched bytes.
func (s *FetchService) stamp(ref domain.DocumentRef, raw *domain.RawDocument) {
	doc := &raw.Document
	doc.Ref = ref
	doc.ContentHash = ContentHash(raw.Content)
	doc.ID = DocumentID(ref, doc.ContentHash)
	if doc.FetchedAt.IsZero() {
		doc.FetchedAt = s.now().UTC()
	}
	if doc.Title == "" {
		doc.Title = fmt.Sprintf("%s %s", ref.Ticker, ref.Type.Code())
	}
}
