// Package sqlite provides the durable vector index and document store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. One database file implements both [driven.VectorIndex]
// and [driven.DocumentStore].
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files; applied versions are recorded in schema_migrations.
//
// # Generations
//
// Every fetched filing is a document row. Chunks are first written as
// staged rows, which Search never reads. Commit swaps a document in for its
// (ticker, type) in one transaction: older generations and their chunks
// are deleted, staged rows become committed and the version counter in
// meta is bumped. Readers therefore never see a mix of generations.
//
// # Search
//
// Embeddings are stored as little-endian float32 blobs. Search scans the
// committed chunks matching the filter and ranks them by exact cosine
// similarity, which is ample for a single-user corpus of filings.
//
// # Data Location
//
// By default, the database is stored at ~/.filingqa/filingqa.db
package sqlite
