// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
//   - FilingRegistry: Resolves tickers and downloads filings (EDGAR)
//   - RawStore: Durable raw filing bytes keyed by ticker, type and hash
//   - Normaliser / NormaliserRegistry: Markup to plain text and sections
//   - EmbeddingService: Text to vectors
//   - VectorIndex: Staged, atomically committed chunk vectors with filtered search
//   - DocumentStore: Read side of indexed documents and chunks
//   - LLMService: Chat completions for grounded answers
//   - ConfigStore / PromptStore: Key/value settings and prompt overrides
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
