package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

// embeddingBatch bounds the IN list of a single embeddings lookup.
const embeddingBatch = 500

// Stage writes doc's chunks as staged rows. The document row is created
// uncommitted if it does not exist yet.
func (s *Store) Stage(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	for i := range chunks {
		if len(chunks[i].Embedding) == 0 {
			return fmt.Errorf("%w: chunk %s has no embedding", domain.ErrInvalidInput, chunks[i].ID)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	factsJSON, err := marshalFacts(doc.Facts)
	if err != nil {
		return rollback(tx, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, ticker, doc_type, cik, form, accession_number, filing_date,
			source_url, mime_type, content_hash, title, fetched_at, facts, embedding_model, committed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(id) DO NOTHING
	`, documentArgs(doc, factsJSON)...)
	if err != nil {
		return rollback(tx, fmt.Errorf("saving document: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, staged, document_id, ticker, doc_type, sequence, token_count,
			start_offset, end_offset, overlap_start, section, page, content, content_hash, embedding)
		VALUES (?, 1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, staged) DO UPDATE SET
			sequence = excluded.sequence,
			token_count = excluded.token_count,
			start_offset = excluded.start_offset,
			end_offset = excluded.end_offset,
			overlap_start = excluded.overlap_start,
			section = excluded.section,
			page = excluded.page,
			content = excluded.content,
			content_hash = excluded.content_hash,
			embedding = excluded.embedding
	`)
	if err != nil {
		return rollback(tx, fmt.Errorf("preparing statement: %w", err))
	}
	defer stmt.Close()

	for i := range chunks {
		c := &chunks[i]
		if _, err := stmt.ExecContext(ctx, c.ID, doc.ID, doc.Ref.Ticker, string(doc.Ref.Type),
			c.Sequence, c.TokenCount, c.Start, c.End, c.OverlapStart, c.Section, c.Page,
			c.Content, c.ContentHash, float32SliceToBytes(c.Embedding)); err != nil {
			return rollback(tx, fmt.Errorf("saving chunk: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Commit swaps doc in as the committed generation of its ref.
func (s *Store) Commit(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	var staged int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE document_id = ? AND staged = 1", doc.ID,
	).Scan(&staged); err != nil {
		return rollback(tx, fmt.Errorf("counting staged chunks: %w", err))
	}
	if staged == 0 {
		return rollback(tx, fmt.Errorf("commit %s: %w", doc.ID, domain.ErrNotFound))
	}

	factsJSON, err := marshalFacts(doc.Facts)
	if err != nil {
		return rollback(tx, err)
	}

	statements := []struct {
		query string
		args  []any
	}{
		// Older generations of the same ref
		{`DELETE FROM chunks WHERE document_id IN (
			SELECT id FROM documents WHERE ticker = ? AND doc_type = ? AND id != ?)`,
			[]any{doc.Ref.Ticker, string(doc.Ref.Type), doc.ID}},
		{"DELETE FROM documents WHERE ticker = ? AND doc_type = ? AND id != ?",
			[]any{doc.Ref.Ticker, string(doc.Ref.Type), doc.ID}},
		// This document's previous commit, if it is being re-embedded
		{"DELETE FROM chunks WHERE document_id = ? AND staged = 0", []any{doc.ID}},
		{"UPDATE chunks SET staged = 0 WHERE document_id = ?", []any{doc.ID}},
		{`UPDATE documents SET cik = ?, form = ?, accession_number = ?, filing_date = ?,
			source_url = ?, mime_type = ?, content_hash = ?, title = ?, fetched_at = ?,
			facts = ?, embedding_model = ?, committed = 1
		  WHERE id = ?`,
			[]any{doc.CIK, doc.Form, doc.AccessionNumber, doc.FilingDate, doc.SourceURL,
				doc.MIMEType, doc.ContentHash, doc.Title, formatTime(doc.FetchedAt),
				factsJSON, doc.EmbeddingModel, doc.ID}},
		{"UPDATE meta SET value = value + 1 WHERE key = 'version'", nil},
	}
	for _, st := range statements {
		if _, err := tx.ExecContext(ctx, st.query, st.args...); err != nil {
			return rollback(tx, fmt.Errorf("committing %s: %w", doc.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Abort discards doc's staged chunks, and the document row if it was
// never committed.
func (s *Store) Abort(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ? AND staged = 1", doc.ID); err != nil {
		return rollback(tx, fmt.Errorf("deleting staged chunks: %w", err))
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ? AND committed = 0", doc.ID); err != nil {
		return rollback(tx, fmt.Errorf("deleting staged document: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Delete removes every generation of ref.
func (s *Store) Delete(ctx context.Context, ref domain.DocumentRef) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	var total, committed int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(committed), 0) FROM documents WHERE ticker = ? AND doc_type = ?",
		ref.Ticker, string(ref.Type),
	).Scan(&total, &committed); err != nil {
		return rollback(tx, fmt.Errorf("counting documents: %w", err))
	}
	if total == 0 {
		return rollback(tx, fmt.Errorf("delete %s: %w", ref, domain.ErrNotFound))
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunks WHERE ticker = ? AND doc_type = ?", ref.Ticker, string(ref.Type)); err != nil {
		return rollback(tx, fmt.Errorf("deleting chunks: %w", err))
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM documents WHERE ticker = ? AND doc_type = ?", ref.Ticker, string(ref.Type)); err != nil {
		return rollback(tx, fmt.Errorf("deleting documents: %w", err))
	}
	if committed > 0 {
		if _, err := tx.ExecContext(ctx, "UPDATE meta SET value = value + 1 WHERE key = 'version'"); err != nil {
			return rollback(tx, fmt.Errorf("bumping version: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Search ranks committed chunks matching filter by cosine similarity.
func (s *Store) Search(ctx context.Context, query []float32, filter domain.Filter, k int) ([]domain.ScoredChunk, error) {
	if len(query) == 0 || k <= 0 {
		return nil, domain.ErrInvalidInput
	}
	filter = filter.Normalised()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+`, d.source_url
		FROM chunks c JOIN documents d ON d.id = c.document_id
		WHERE c.staged = 0 AND d.committed = 1
		  AND (? = '' OR c.ticker = ?)
		  AND (? = '' OR c.doc_type = ?)
	`, filter.Ticker, filter.Ticker, string(filter.Type), string(filter.Type))
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var hits []domain.ScoredChunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var sourceURL string
		chunk, err := scanChunk(rows, &sourceURL)
		if err != nil {
			return nil, err
		}
		score := domain.CosineSimilarity(query, chunk.Embedding)
		chunk.Embedding = nil
		hits = append(hits, domain.ScoredChunk{Chunk: *chunk, Score: score, SourceURL: sourceURL})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	domain.SortScored(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Embeddings returns committed vectors for content hashes embedded by model.
func (s *Store) Embeddings(ctx context.Context, model string, hashes []string) (map[string][]float32, error) {
	out := make(map[string][]float32)
	for start := 0; start < len(hashes); start += embeddingBatch {
		batch := hashes[start:min(start+embeddingBatch, len(hashes))]

		args := make([]any, 0, len(batch)+1)
		args = append(args, model)
		for _, h := range batch {
			args = append(args, h)
		}

		rows, err := s.db.QueryContext(ctx, `
			SELECT c.content_hash, c.embedding
			FROM chunks c JOIN documents d ON d.id = c.document_id
			WHERE c.staged = 0 AND d.committed = 1 AND d.embedding_model = ?
			  AND c.content_hash IN (`+placeholders(len(batch))+`)
		`, args...)
		if err != nil {
			return nil, fmt.Errorf("querying embeddings: %w", err)
		}

		for rows.Next() {
			var hash string
			var blob []byte
			if err := rows.Scan(&hash, &blob); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning embedding: %w", err)
			}
			out[hash] = bytesToFloat32Slice(blob)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterating embeddings: %w", err)
		}
	}
	return out, nil
}

// Version returns the committed-set counter.
func (s *Store) Version(ctx context.Context) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'version'").Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading version: %w", err)
	}
	return v, nil
}

func marshalFacts(facts *domain.KeyFacts) (any, error) {
	if facts == nil {
		return nil, nil
	}
	b, err := json.Marshal(facts)
	if err != nil {
		return nil, fmt.Errorf("marshalling facts: %w", err)
	}
	return string(b), nil
}

func documentArgs(doc *domain.Document, factsJSON any) []any {
	return []any{doc.ID, doc.Ref.Ticker, string(doc.Ref.Type), doc.CIK, doc.Form,
		doc.AccessionNumber, doc.FilingDate, doc.SourceURL, doc.MIMEType, doc.ContentHash,
		doc.Title, formatTime(doc.FetchedAt), factsJSON, doc.EmbeddingModel}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
