package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/core/ports/driven"
)

// --- Shared mocks for service tests ---

// mockEmbedder implements driven.EmbeddingService with deterministic vectors.
type mockEmbedder struct {
	mu         sync.Mutex
	model      string
	dims       int
	vectors    map[string][]float32
	batchCalls int
	texts      int
	queries    int
	// failBatch makes the n-th EmbedBatch call (1-based) return batchErr.
	failBatch int
	batchErr  error
	// embedErrs are returned by successive Embed calls before succeeding.
	embedErrs []error
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{
		model:   "mock-embed",
		dims:    3,
		vectors: make(map[string][]float32),
	}
}

func (m *mockEmbedder) vector(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	return []float32{1, float32(len(text) % 7), 0.5}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	if len(m.embedErrs) > 0 {
		err := m.embedErrs[0]
		m.embedErrs = m.embedErrs[1:]
		return nil, err
	}
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.failBatch > 0 && m.batchCalls == m.failBatch {
		return nil, m.batchErr
	}
	m.texts += len(texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return m.dims }
func (m *mockEmbedder) ModelName() string            { return m.model }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockLLM implements driven.LLMService.
type mockLLM struct {
	mu       sync.Mutex
	response string
	errs     []error
	calls    int
	messages []driven.ChatMessage
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.messages = messages
	if len(m.errs) > 0 {
		err := m.errs[0]
		if len(m.errs) > 1 {
			m.errs = m.errs[1:]
		}
		return "", err
	}
	return m.response, nil
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// mockRegistry implements driven.FilingRegistry.
type mockRegistry struct {
	mu      sync.Mutex
	content map[string]string
	errs    []error
	calls   int
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{content: make(map[string]string)}
}

func (m *mockRegistry) ResolveCIK(_ context.Context, ticker string) (string, error) {
	return "0000000001", nil
}

func (m *mockRegistry) Fetch(_ context.Context, ref domain.DocumentRef) (*domain.RawDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}
	body, ok := m.content[ref.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: no %s filing", domain.ErrNotFound, ref)
	}
	return &domain.RawDocument{
		Document: domain.Document{
			CIK:       "0000000001",
			Form:      ref.Type.Code(),
			SourceURL: "https://registry.test/" + ref.Key(),
			MIMEType:  "text/plain",
		},
		Content: []byte(body),
	}, nil
}

// mockNormalisers implements driven.NormaliserRegistry for plain text.
type mockNormalisers struct {
	err error
}

func (m *mockNormalisers) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &driven.NormaliseResult{PlainText: string(raw.Content)}, nil
}

func (m *mockNormalisers) Register(_ driven.Normaliser) {}

func (m *mockNormalisers) SupportedMIMETypes() []string { return []string{"text/plain"} }

// paragraphChunker implements driven.Chunker, one chunk per paragraph.
type paragraphChunker struct{}

func (paragraphChunker) Chunk(doc *domain.Document, result *driven.NormaliseResult) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	offset := 0
	for i, para := range strings.Split(result.PlainText, "\n\n") {
		chunks = append(chunks, testChunk(doc, i, offset, para))
		offset += len(para) + 2
	}
	return chunks, nil
}

// fixedFacts implements driven.FactExtractor.
type fixedFacts struct {
	facts domain.KeyFacts
	calls int
}

func (f *fixedFacts) Extract(_ *driven.NormaliseResult) domain.KeyFacts {
	f.calls++
	return f.facts
}

// mockRetriever implements driving.Retriever.
type mockRetriever struct {
	hits  []domain.ScoredChunk
	err   error
	calls int
	lastK int
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, _ domain.Filter, k int) ([]domain.ScoredChunk, error) {
	m.calls++
	m.lastK = k
	if m.err != nil {
		return nil, m.err
	}
	return m.hits, nil
}

var errBadRequest = errors.New("bad request")

func testRef(ticker string, docType domain.DocumentType) domain.DocumentRef {
	return domain.DocumentRef{Ticker: ticker, Type: docType}
}

func testDocument(ref domain.DocumentRef, content string) *domain.Document {
	hash := ContentHash([]byte(content))
	return &domain.Document{
		ID:          DocumentID(ref, hash),
		Ref:         ref,
		ContentHash: hash,
		SourceURL:   "https://registry.test/" + ref.Key(),
	}
}

func testChunk(doc *domain.Document, seq, start int, content string) domain.Chunk {
	return domain.Chunk{
		ID:           fmt.Sprintf("%s-%d", doc.ID, seq),
		DocumentID:   doc.ID,
		Ticker:       doc.Ref.Ticker,
		DocumentType: doc.Ref.Type,
		Sequence:     seq,
		TokenCount:   len(strings.Fields(content)),
		Start:        start,
		End:          start + len(content),
		OverlapStart: start,
		Content:      content,
		ContentHash:  ContentHash([]byte(content)),
	}
}

func testChunks(doc *domain.Document, n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = testChunk(doc, i, i*20, fmt.Sprintf("passage %d of %s", i, doc.ID))
	}
	return chunks
}
