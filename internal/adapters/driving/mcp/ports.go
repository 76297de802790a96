package mcp

import (
	"github.com/hedgeintel/filingqa/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server exposes.
type Ports struct {
	// Answerer composes grounded answers.
	Answerer driving.Answerer

	// Retriever finds relevant chunks.
	Retriever driving.Retriever

	// Documents lists indexed filings and their key facts. Optional.
	Documents driving.DocumentService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Answerer == nil {
		return ErrMissingAnswerer
	}
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	return nil
}
