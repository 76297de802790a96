package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

const (
	uriScheme    = "filingqa://"
	documentsURI = uriScheme + "documents"
)

// documentResource is the JSON body of a single document resource.
type documentResource struct {
	DocumentOutput
	Chunks int              `json:"chunks"`
	Facts  *domain.KeyFacts `json:"facts,omitempty"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         documentsURI,
		Name:        "documents",
		Description: "Every indexed filing",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: documentsURI + "/{ticker}/{type}",
		Name:        "document",
		Description: "One indexed filing with its key facts",
		MIMEType:    "application/json",
	}, s.handleDocumentResource)
}

func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Documents == nil {
		return jsonResource(req.Params.URI, []DocumentOutput{})
	}

	docs, err := s.ports.Documents.List(ctx, domain.Filter{})
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	infos := make([]DocumentOutput, len(docs))
	for i := range docs {
		infos[i] = documentOutput(&docs[i])
	}
	return jsonResource(req.Params.URI, infos)
}

func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Documents == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	ref, ok := parseDocumentURI(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Documents.Get(ctx, ref)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	chunks, err := s.ports.Documents.Chunks(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}

	return jsonResource(req.Params.URI, documentResource{
		DocumentOutput: documentOutput(doc),
		Chunks:         len(chunks),
		Facts:          doc.Facts,
	})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// parseDocumentURI extracts the ref from filingqa://documents/{ticker}/{type}.
func parseDocumentURI(uri string) (domain.DocumentRef, bool) {
	rest, ok := strings.CutPrefix(uri, documentsURI+"/")
	if !ok {
		return domain.DocumentRef{}, false
	}
	ticker, typ, ok := strings.Cut(rest, "/")
	if !ok || strings.Contains(typ, "/") {
		return domain.DocumentRef{}, false
	}
	docType, err := domain.ParseDocumentType(typ)
	if err != nil {
		return domain.DocumentRef{}, false
	}
	ref, err := domain.NewDocumentRef(ticker, docType)
	if err != nil {
		return domain.DocumentRef{}, false
	}
	return ref, true
}
