package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

func newTestStore(t *testing.T) *RawStore {
	t.Helper()
	s, err := NewRawStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func rawDoc(ticker string, docType domain.DocumentType, hash, content string) *domain.RawDocument {
	return &domain.RawDocument{
		Document: domain.Document{
			ID:          "id-" + hash,
			Ref:         domain.DocumentRef{Ticker: ticker, Type: docType},
			Form:        "S-1",
			SourceURL:   "https://example.test/" + hash,
			MIMEType:    "text/html",
			ContentHash: hash,
			FetchedAt:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		Content: []byte(content),
	}
}

func TestRawStore_SaveAndLatest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ref := domain.DocumentRef{Ticker: "ACME", Type: domain.DocTypeRegistration}

	_, err := s.Latest(ctx, ref)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Save(ctx, rawDoc("ACME", domain.DocTypeRegistration, "bbb", "first")))
	require.NoError(t, s.Save(ctx, rawDoc("ACME", domain.DocTypeRegistration, "aaa", "second")))

	latest, err := s.Latest(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "aaa", latest.Document.ContentHash)
	assert.Equal(t, []byte("second"), latest.Content)
	assert.Equal(t, "https://example.test/aaa", latest.Document.SourceURL)

	older, err := s.Get(ctx, ref, "bbb")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), older.Content)
	assert.Equal(t, rawDoc("ACME", domain.DocTypeRegistration, "bbb", "first").Document, older.Document)

	hashes, err := s.Hashes(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"aaa", "bbb"}, hashes)
}

func TestRawStore_RefsAreIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, rawDoc("ACME", domain.DocTypeRegistration, "h1", "a")))
	require.NoError(t, s.Save(ctx, rawDoc("ACME", domain.DocTypeProspectus, "h2", "b")))
	require.NoError(t, s.Save(ctx, rawDoc("ACMEX", domain.DocTypeRegistration, "h3", "c")))

	hashes, err := s.Hashes(ctx, domain.DocumentRef{Ticker: "ACME", Type: domain.DocTypeRegistration})
	require.NoError(t, err)
	assert.Equal(t, []string{"h1"}, hashes)

	_, err = s.Get(ctx, domain.DocumentRef{Ticker: "ACME", Type: domain.DocTypeRegistration}, "h2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	hashes, err = s.Hashes(ctx, domain.DocumentRef{Ticker: "NONE", Type: domain.DocTypeListing})
	require.NoError(t, err)
	assert.Empty(t, hashes)
}

func TestRawStore_SaveRequiresHash(t *testing.T) {
	s := newTestStore(t)
	assert.ErrorIs(t, s.Save(context.Background(), nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, s.Save(context.Background(), rawDoc("ACME", domain.DocTypeRegistration, "", "x")), domain.ErrInvalidInput)
}

func TestRawStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewRawStore(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DatabaseFile), s.Path())
	require.NoError(t, s.Save(ctx, rawDoc("ACME", domain.DocTypeListing, "h1", "listing")))
	require.NoError(t, s.Close())

	s, err = NewRawStore(dir)
	require.NoError(t, err)
	defer s.Close()

	raw, err := s.Latest(ctx, domain.DocumentRef{Ticker: "ACME", Type: domain.DocTypeListing})
	require.NoError(t, err)
	assert.Equal(t, []byte("listing"), raw.Content)
}
