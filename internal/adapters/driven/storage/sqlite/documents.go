package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

const documentColumns = `id, ticker, doc_type, cik, form, accession_number, filing_date,
	source_url, mime_type, content_hash, title, fetched_at, facts, embedding_model`

const chunkColumns = `c.id, c.document_id, c.ticker, c.doc_type, c.sequence, c.token_count,
	c.start_offset, c.end_offset, c.overlap_start, c.section, c.page, c.content,
	c.content_hash, c.embedding`

// GetDocument returns the committed document for ref.
func (s *Store) GetDocument(ctx context.Context, ref domain.DocumentRef) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents WHERE ticker = ? AND doc_type = ? AND committed = 1
	`, ref.Ticker, string(ref.Type))

	return scanDocument(row)
}

// GetDocumentByID returns a committed document by ID.
func (s *Store) GetDocumentByID(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents WHERE id = ? AND committed = 1
	`, id)

	return scanDocument(row)
}

// ListDocuments returns committed documents matching filter, ordered by ref.
func (s *Store) ListDocuments(ctx context.Context, filter domain.Filter) ([]domain.Document, error) {
	filter = filter.Normalised()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE committed = 1
		  AND (? = '' OR ticker = ?)
		  AND (? = '' OR doc_type = ?)
		ORDER BY ticker, doc_type
	`, filter.Ticker, filter.Ticker, string(filter.Type), string(filter.Type))
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// GetChunks returns a committed document's chunks in sequence order.
func (s *Store) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	if _, err := s.GetDocumentByID(ctx, documentID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks c WHERE c.document_id = ? AND c.staged = 0
		ORDER BY c.sequence
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a single document row.
func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var docType, fetchedAt string
	var factsJSON sql.NullString

	if err := row.Scan(&doc.ID, &doc.Ref.Ticker, &docType, &doc.CIK, &doc.Form,
		&doc.AccessionNumber, &doc.FilingDate, &doc.SourceURL, &doc.MIMEType,
		&doc.ContentHash, &doc.Title, &fetchedAt, &factsJSON, &doc.EmbeddingModel); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Ref.Type = domain.DocumentType(docType)
	doc.FetchedAt = parseTime(fetchedAt)

	if factsJSON.Valid && factsJSON.String != "" {
		var facts domain.KeyFacts
		if err := json.Unmarshal([]byte(factsJSON.String), &facts); err != nil {
			return nil, fmt.Errorf("unmarshaling facts: %w", err)
		}
		doc.Facts = &facts
	}

	return &doc, nil
}

// scanChunk scans a chunk row; extra receives any trailing columns.
func scanChunk(row scanner, extra ...any) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var docType string
	var embeddingBlob []byte

	dest := []any{&chunk.ID, &chunk.DocumentID, &chunk.Ticker, &docType, &chunk.Sequence,
		&chunk.TokenCount, &chunk.Start, &chunk.End, &chunk.OverlapStart, &chunk.Section,
		&chunk.Page, &chunk.Content, &chunk.ContentHash, &embeddingBlob}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.DocumentType = domain.DocumentType(docType)
	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
	return &chunk, nil
}
