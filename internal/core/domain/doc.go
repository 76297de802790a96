// Package domain defines the core business entities for filingqa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: One fetched SEC filing, identified by ticker, type and hash
//   - Chunk: A token window of a document's normalised text
//   - Citation and Answer: Grounded responses returned to callers
//   - Config: The single validated configuration schema
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
