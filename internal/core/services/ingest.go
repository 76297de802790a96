package services

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/core/ports/driven"
	"github.com/hedgeintel/filingqa/internal/core/ports/driving"
	"github.com/hedgeintel/filingqa/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService drives the write path for one or many filings:
//
//	fetch → normalise → extract facts → chunk → embed and store
//
// Fetches and embeddings for different refs run concurrently on a
// bounded worker pool; the indexer serialises work on the same ref.
type IngestService struct {
	fetcher     *FetchService
	normalisers driven.NormaliserRegistry
	chunker     driven.Chunker
	facts       driven.FactExtractor
	indexer     *Indexer
	workers     int
}

// NewIngestService creates an ingest service.
func NewIngestService(
	fetcher *FetchService,
	normalisers driven.NormaliserRegistry,
	chunker driven.Chunker,
	indexer *Indexer,
	settings domain.IngestSettings,
) *IngestService {
	workers := settings.Workers
	if workers < 1 {
		workers = 1
	}
	return &IngestService{
		fetcher:     fetcher,
		normalisers: normalisers,
		chunker:     chunker,
		indexer:     indexer,
		workers:     workers,
	}
}

// SetFactExtractor enables key facts extraction at ingest.
func (s *IngestService) SetFactExtractor(facts driven.FactExtractor) {
	s.facts = facts
}

// Ingest fetches and indexes the latest filing for ref.
func (s *IngestService) Ingest(ctx context.Context, ref domain.DocumentRef) (*domain.IngestResult, error) {
	raw, err := s.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.process(ctx, raw)
}

// IngestMany ingests refs concurrently. Results are in input order and a
// failure for one ref does not cancel the others.
func (s *IngestService) IngestMany(ctx context.Context, refs []domain.DocumentRef) []domain.IngestResult {
	results := make([]domain.IngestResult, len(refs))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, ref := range refs {
		g.Go(func() error {
			res, err := s.Ingest(ctx, ref)
			if err != nil {
				results[i] = domain.IngestResult{Ref: ref, Err: err}
				return nil
			}
			results[i] = *res
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Reindex re-processes the latest stored raw filing for ref without
// contacting the registry.
func (s *IngestService) Reindex(ctx context.Context, ref domain.DocumentRef) (*domain.IngestResult, error) {
	raw, err := s.fetcher.Stored(ctx, ref, "")
	if err != nil {
		return nil, fmt.Errorf("reindex %s: %w", ref, err)
	}
	return s.process(ctx, raw)
}

// IngestFile stores a local filing and indexes it. The document type is
// detected from the file name, falling back to the content.
func (s *IngestService) IngestFile(ctx context.Context, ticker, path string) (*domain.IngestResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	docType, err := domain.DetectDocumentType(path, string(content))
	if err != nil {
		return nil, err
	}
	ref, err := domain.NewDocumentRef(ticker, docType)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	raw := &domain.RawDocument{
		Document: domain.Document{
			Ref:       ref,
			SourceURL: "file://" + abs,
			MIMEType:  mimeTypeFor(path),
			Title:     filepath.Base(path),
		},
		Content: content,
	}
	if err := s.fetcher.Import(ctx, raw); err != nil {
		return nil, fmt.Errorf("store %s: %w", path, err)
	}

	return s.process(ctx, raw)
}

// process runs the pipeline after the raw bytes are durably stored.
func (s *IngestService) process(ctx context.Context, raw *domain.RawDocument) (*domain.IngestResult, error) {
	doc := raw.Document
	logger.Section("Ingest " + doc.Ref.Key())

	logger.Debug("Step 1: Normalise (%s)", doc.MIMEType)
	result, err := s.normalisers.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", doc.Ref, err)
	}
	if result.Title != "" && strings.HasPrefix(doc.Title, doc.Ref.Ticker+" ") {
		doc.Title = result.Title
	}
	logger.Debug("Plain text: %d bytes, %d pages", len(result.PlainText), len(result.Pages)+1)

	if s.facts != nil && doc.Ref.Type.HasFacts() {
		logger.Debug("Step 2: Extract key facts")
		facts := s.facts.Extract(result)
		doc.Facts = &facts
	}

	logger.Debug("Step 3: Chunk")
	chunks, err := s.chunker.Chunk(&doc, result)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", doc.Ref, err)
	}
	logger.Debug("Chunks: %d", len(chunks))

	logger.Debug("Step 4: Embed and store")
	stats, err := s.indexer.EmbedAndStore(ctx, &doc, chunks)
	if err != nil {
		return nil, err
	}

	return &domain.IngestResult{
		Ref:      doc.Ref,
		Document: &doc,
		Chunks:   len(chunks),
		Reused:   stats.Reused,
		Skipped:  stats.Skipped,
	}, nil
}

func mimeTypeFor(path string) string {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".htm", ".html":
		return "text/html"
	case ".txt":
		return "text/plain"
	case ".pdf":
		return "application/pdf"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "text/plain"
	}
}
