package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

// defaultSearchLimit is used when the caller passes no limit.
const defaultSearchLimit = 5

// errDocumentsUnavailable is returned by document tools when no
// document service is wired.
var errDocumentsUnavailable = errors.New("document service not configured")

// ListDocumentsInput narrows a listing to one ticker and/or document type.
type ListDocumentsInput struct {
	Ticker       string `json:"ticker,omitempty" jsonschema:"company ticker such as ABCD"`
	DocumentType string `json:"document_type,omitempty" jsonschema:"registration_statement or prospectus or lockup_agreement or underwriting_agreement or listing_form"`
}

// toFilter builds a retrieval filter. Form codes such as S-1 are accepted
// as document types.
func toFilter(ticker, docType string) (domain.Filter, error) {
	filter := domain.Filter{Ticker: ticker}
	if docType != "" {
		t, err := domain.ParseDocumentType(docType)
		if err != nil {
			return domain.Filter{}, err
		}
		filter.Type = t
	}
	return filter.Normalised(), nil
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question     string `json:"question" jsonschema:"the question to answer from the indexed filings"`
	Ticker       string `json:"ticker,omitempty" jsonschema:"restrict to one company ticker"`
	DocumentType string `json:"document_type,omitempty" jsonschema:"restrict to one document type such as prospectus"`
}

// CitationOutput is one source backing an answer.
type CitationOutput struct {
	Label        string  `json:"label"`
	ChunkID      string  `json:"chunk_id"`
	Ticker       string  `json:"ticker"`
	DocumentType string  `json:"document_type"`
	Section      string  `json:"section,omitempty"`
	Page         int     `json:"page,omitempty"`
	Span         string  `json:"span"`
	Score        float64 `json:"score"`
	SourceURL    string  `json:"source_url,omitempty"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer     string           `json:"answer"`
	Confidence float64          `json:"confidence"`
	Degraded   bool             `json:"degraded"`
	Citations  []CitationOutput `json:"citations"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query        string `json:"query" jsonschema:"text to find similar passages for"`
	Limit        int    `json:"limit,omitempty" jsonschema:"maximum number of passages to return (default 5 and at most 20)"`
	Ticker       string `json:"ticker,omitempty" jsonschema:"restrict to one company ticker"`
	DocumentType string `json:"document_type,omitempty" jsonschema:"restrict to one document type such as prospectus"`
}

// SearchResultOutput is one retrieved passage.
type SearchResultOutput struct {
	ChunkID      string  `json:"chunk_id"`
	DocumentID   string  `json:"document_id"`
	Ticker       string  `json:"ticker"`
	DocumentType string  `json:"document_type"`
	Section      string  `json:"section,omitempty"`
	Page         int     `json:"page,omitempty"`
	Score        float64 `json:"score"`
	SourceURL    string  `json:"source_url,omitempty"`
	Content      string  `json:"content"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// FactsInput is the input schema for the facts tool.
type FactsInput struct {
	Ticker       string `json:"ticker" jsonschema:"company ticker"`
	DocumentType string `json:"document_type,omitempty" jsonschema:"registration_statement (the default) or prospectus"`
}

// FactsOutput is the output schema for the facts tool.
type FactsOutput struct {
	Ticker       string          `json:"ticker"`
	DocumentType string          `json:"document_type"`
	Facts        domain.KeyFacts `json:"facts"`
}

// DocumentOutput summarises one indexed filing.
type DocumentOutput struct {
	ID              string `json:"id"`
	Ticker          string `json:"ticker"`
	DocumentType    string `json:"document_type"`
	Form            string `json:"form,omitempty"`
	AccessionNumber string `json:"accession_number,omitempty"`
	FilingDate      string `json:"filing_date,omitempty"`
	Title           string `json:"title,omitempty"`
	SourceURL       string `json:"source_url"`
	EmbeddingModel  string `json:"embedding_model,omitempty"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question about IPO filings with cited sources",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the filing passages most similar to a query",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "facts",
		Description: "Key offering facts extracted from a filing: symbol, exchange, shares, price range, lock-up",
	}, s.handleFacts)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List indexed filings, optionally for one ticker or document type",
	}, s.handleListDocuments)
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	filter, err := toFilter(input.Ticker, input.DocumentType)
	if err != nil {
		return nil, AskOutput{}, err
	}

	answer, err := s.ports.Answerer.Answer(ctx, input.Question, filter)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:     answer.Text,
		Confidence: answer.Confidence,
		Degraded:   answer.Degraded,
		Citations:  make([]CitationOutput, len(answer.Citations)),
	}
	for i, c := range answer.Citations {
		output.Citations[i] = CitationOutput{
			Label:        c.Label(),
			ChunkID:      c.ChunkID,
			Ticker:       c.Ticker,
			DocumentType: string(c.DocumentType),
			Section:      c.Section,
			Page:         c.Page,
			Span:         c.Span,
			Score:        c.Score,
			SourceURL:    c.SourceURL,
		}
	}
	return nil, output, nil
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	filter, err := toFilter(input.Ticker, input.DocumentType)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, domain.MaxTopK)

	hits, err := s.ports.Retriever.Retrieve(ctx, input.Query, filter, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(hits)),
		Count:   len(hits),
	}
	for i, h := range hits {
		output.Results[i] = SearchResultOutput{
			ChunkID:      h.Chunk.ID,
			DocumentID:   h.Chunk.DocumentID,
			Ticker:       h.Chunk.Ticker,
			DocumentType: string(h.Chunk.DocumentType),
			Section:      h.Chunk.Section,
			Page:         h.Chunk.Page,
			Score:        h.Score,
			SourceURL:    h.SourceURL,
			Content:      h.Chunk.Content,
		}
	}
	return nil, output, nil
}

func (s *Server) handleFacts(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FactsInput,
) (*mcp.CallToolResult, FactsOutput, error) {
	if s.ports.Documents == nil {
		return nil, FactsOutput{}, errDocumentsUnavailable
	}

	docType := domain.DocTypeRegistration
	if input.DocumentType != "" {
		t, err := domain.ParseDocumentType(input.DocumentType)
		if err != nil {
			return nil, FactsOutput{}, err
		}
		docType = t
	}
	ref, err := domain.NewDocumentRef(input.Ticker, docType)
	if err != nil {
		return nil, FactsOutput{}, err
	}

	facts, err := s.ports.Documents.Facts(ctx, ref)
	if err != nil {
		return nil, FactsOutput{}, fmt.Errorf("facts for %s: %w", ref, err)
	}
	return nil, FactsOutput{
		Ticker:       ref.Ticker,
		DocumentType: string(ref.Type),
		Facts:        *facts,
	}, nil
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	if s.ports.Documents == nil {
		return nil, ListDocumentsOutput{}, errDocumentsUnavailable
	}
	filter, err := toFilter(input.Ticker, input.DocumentType)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	docs, err := s.ports.Documents.List(ctx, filter)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}
	output := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = documentOutput(&docs[i])
	}
	return nil, output, nil
}

func documentOutput(d *domain.Document) DocumentOutput {
	return DocumentOutput{
		ID:              d.ID,
		Ticker:          d.Ref.Ticker,
		DocumentType:    string(d.Ref.Type),
		Form:            d.Form,
		AccessionNumber: d.AccessionNumber,
		FilingDate:      d.FilingDate,
		Title:           d.Title,
		SourceURL:       d.SourceURL,
		EmbeddingModel:  d.EmbeddingModel,
	}
}
