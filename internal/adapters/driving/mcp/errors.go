// Package mcp provides an MCP (Model Context Protocol) server adapter for
// filingqa. It lets AI assistants ask grounded questions about indexed
// IPO filings, search their chunks and read extracted key facts.
package mcp

import "errors"

var (
	// ErrMissingAnswerer is returned when the answer service is not provided.
	ErrMissingAnswerer = errors.New("mcp: answer service is required")

	// ErrMissingRetriever is returned when the retrieval service is not provided.
	ErrMissingRetriever = errors.New("mcp: retrieval service is required")
)
