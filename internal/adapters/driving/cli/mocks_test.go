package cli

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

var testRef = domain.DocumentRef{Ticker: "ABCD", Type: domain.DocTypeRegistration}

type mockFetchService struct {
	lastRef domain.DocumentRef
	err     error
}

func (m *mockFetchService) Fetch(_ context.Context, ref domain.DocumentRef) (*domain.RawDocument, error) {
	m.lastRef = ref
	if m.err != nil {
		return nil, m.err
	}
	return &domain.RawDocument{
		Document: domain.Document{
			Ref:             ref,
			Form:            "S-1",
			AccessionNumber: "0001234567-24-000001",
			FilingDate:      "2024-05-01",
			SourceURL:       "https://www.sec.gov/Archives/edgar/data/1234567/abcd-s1.htm",
			ContentHash:     "abc123",
		},
		Content: []byte("<html>filing</html>"),
	}, nil
}

func (m *mockFetchService) Stored(_ context.Context, _ domain.DocumentRef, _ string) (*domain.RawDocument, error) {
	return nil, domain.ErrNotFound
}

type mockIngestService struct {
	refs     []domain.DocumentRef
	failFor  string
	files    []string
	reindex  domain.DocumentRef
	skipSame bool
}

func (m *mockIngestService) result(ref domain.DocumentRef) domain.IngestResult {
	if ref.Ticker == m.failFor {
		return domain.IngestResult{Ref: ref, Err: domain.ErrNotFound}
	}
	return domain.IngestResult{
		Ref:      ref,
		Document: &domain.Document{Ref: ref, Form: ref.Type.Code()},
		Chunks:   12,
		Reused:   3,
		Skipped:  m.skipSame,
	}
}

func (m *mockIngestService) Ingest(_ context.Context, ref domain.DocumentRef) (*domain.IngestResult, error) {
	r := m.result(ref)
	return &r, r.Err
}

func (m *mockIngestService) IngestMany(_ context.Context, refs []domain.DocumentRef) []domain.IngestResult {
	m.refs = refs
	out := make([]domain.IngestResult, len(refs))
	for i, ref := range refs {
		out[i] = m.result(ref)
	}
	return out
}

func (m *mockIngestService) Reindex(_ context.Context, ref domain.DocumentRef) (*domain.IngestResult, error) {
	m.reindex = ref
	r := m.result(ref)
	return &r, r.Err
}

func (m *mockIngestService) IngestFile(_ context.Context, ticker, path string) (*domain.IngestResult, error) {
	m.files = append(m.files, ticker+":"+path)
	r := m.result(domain.DocumentRef{Ticker: ticker, Type: domain.DocTypeProspectus})
	return &r, r.Err
}

type mockRetriever struct {
	lastFilter domain.Filter
	lastK      int
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, filter domain.Filter, k int) ([]domain.ScoredChunk, error) {
	m.lastFilter = filter
	m.lastK = k
	return []domain.ScoredChunk{{
		Chunk: domain.Chunk{
			ID:           "c1",
			Ticker:       "ABCD",
			DocumentType: domain.DocTypeRegistration,
			Section:      "RISK FACTORS",
			Page:         12,
			Content:      "Our operating history is limited.",
		},
		Score:     0.81,
		SourceURL: "https://www.sec.gov/x.htm",
	}}, nil
}

type mockAnswerer struct {
	answer     *domain.Answer
	lastFilter domain.Filter
}

func (m *mockAnswerer) Answer(_ context.Context, _ string, filter domain.Filter) (*domain.Answer, error) {
	m.lastFilter = filter
	return m.answer, nil
}

type mockDocumentService struct {
	deleted domain.DocumentRef
}

func (m *mockDocumentService) List(_ context.Context, filter domain.Filter) ([]domain.Document, error) {
	docs := []domain.Document{
		{ID: "d1", Ref: testRef, Form: "S-1/A", FilingDate: "2024-05-01"},
		{ID: "d2", Ref: domain.DocumentRef{Ticker: "WXYZ", Type: domain.DocTypeProspectus}, Form: "424B4"},
	}
	var out []domain.Document
	for _, d := range docs {
		if filter.Matches(d.Ref.Ticker, d.Ref.Type) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDocumentService) Get(_ context.Context, ref domain.DocumentRef) (*domain.Document, error) {
	if ref != testRef {
		return nil, domain.ErrNotFound
	}
	return &domain.Document{
		ID:          "d1",
		Ref:         ref,
		Title:       "ABCD Inc. S-1",
		Form:        "S-1/A",
		SourceURL:   "file:///inbox/ABCD_s1.htm",
		MIMEType:    "text/html",
		ContentHash: "abc123",
		FetchedAt:   time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
	}, nil
}

func (m *mockDocumentService) Chunks(_ context.Context, ref domain.DocumentRef) ([]domain.Chunk, error) {
	if ref != testRef {
		return nil, domain.ErrNotFound
	}
	return []domain.Chunk{
		{ID: "c0", Sequence: 0, TokenCount: 5, Start: 0, End: 30, Section: "PROSPECTUS SUMMARY", Content: "ABCD   is a\n software company."},
		{ID: "c1", Sequence: 1, TokenCount: 4, Start: 25, End: 60, Page: 3, Content: "We have incurred losses."},
	}, nil
}

func (m *mockDocumentService) Facts(_ context.Context, ref domain.DocumentRef) (*domain.KeyFacts, error) {
	if ref != testRef {
		return nil, domain.ErrNotFound
	}
	return &domain.KeyFacts{
		Symbol:          "ABCD",
		Exchange:        "Nasdaq Global Select Market",
		SharesOffered:   10000000,
		PriceRange:      domain.PriceRange{Min: 14, Max: 16},
		LockUpDays:      180,
		RiskFactorCount: 42,
	}, nil
}

func (m *mockDocumentService) Delete(_ context.Context, ref domain.DocumentRef) error {
	m.deleted = ref
	return nil
}

type mockMonitor struct {
	started bool
	stopped bool
}

func (m *mockMonitor) Start(_ context.Context) error {
	m.started = true
	return nil
}

func (m *mockMonitor) Stop() error {
	m.stopped = true
	return nil
}

func (m *mockMonitor) Tasks() []domain.ScheduledTask {
	return []domain.ScheduledTask{{
		ID:      domain.TaskIDFilingRefresh,
		LastRun: time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
	}}
}

type mockConfigStore struct {
	data  map[string]any
	saved int
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	s, _ := m.data[key].(string)
	return s
}

func (m *mockConfigStore) GetInt(key string) int {
	i, _ := m.data[key].(int64)
	return int(i)
}

func (m *mockConfigStore) Keys() []string {
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *mockConfigStore) Set(key string, value any) error {
	m.data[key] = value
	m.saved++
	return nil
}

func (m *mockConfigStore) Save() error { return nil }
func (m *mockConfigStore) Load() error { return nil }
func (m *mockConfigStore) Path() string {
	return "/home/test/.filingqa/config.toml"
}

// testServices are the mocks installed by setupTestServices.
type testServices struct {
	fetch     *mockFetchService
	ingest    *mockIngestService
	retriever *mockRetriever
	answerer  *mockAnswerer
	documents *mockDocumentService
	monitor   *mockMonitor
	config    *mockConfigStore
}

// setupTestServices installs mock services and returns a cleanup function.
func setupTestServices() func() {
	_, cleanup := setupTestServicesWith()
	return cleanup
}

func setupTestServicesWith() (*testServices, func()) {
	ts := &testServices{
		fetch:     &mockFetchService{},
		ingest:    &mockIngestService{},
		retriever: &mockRetriever{},
		answerer: &mockAnswerer{answer: &domain.Answer{
			Text:       "The lock-up period is 180 days [1].",
			Confidence: 0.64,
			Citations: []domain.Citation{{
				ChunkID:      "c1",
				Ticker:       "ABCD",
				DocumentType: domain.DocTypeRegistration,
				Section:      "SHARES ELIGIBLE FOR FUTURE SALE",
				Page:         88,
				Span:         "for 180 days after the date of this prospectus",
				Score:        0.77,
				SourceURL:    "https://www.sec.gov/x.htm",
			}},
		}},
		documents: &mockDocumentService{},
		monitor:   &mockMonitor{},
		config:    &mockConfigStore{data: map[string]any{"answer.top_k": int64(4)}},
	}

	cfg := domain.DefaultConfig()
	cfg.Monitor.Tickers = []string{"ABCD"}

	services = &Services{
		Fetch:     ts.fetch,
		Ingest:    ts.ingest,
		Retriever: ts.retriever,
		Answerer:  ts.answerer,
		Documents: ts.documents,
		Monitor:   ts.monitor,
		Check: func(context.Context) []ProviderCheck {
			return []ProviderCheck{{Name: "embedding (openai)"}, {Name: "llm (openai)"}}
		},
		Config: cfg,
	}
	configStore = ts.config

	return ts, func() {
		services = nil
		serviceFactory = nil
		configStore = nil
		resetFlags(rootCmd)
	}
}

// resetFlags restores every flag to its default so tests sharing
// rootCmd do not leak flag values into each other.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs rootCmd with args and returns its output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

var errFactory = errors.New("registry.user_agent must include a contact email")
