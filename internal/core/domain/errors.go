package domain

import "errors"

// Domain errors form the pipeline's error taxonomy.
// Adapters wrap them with context; callers match with errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	// Unknown tickers and filings the registry does not hold map here.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown normaliser content type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrUnavailable indicates a transient network or service failure.
	// It is retryable with backoff.
	ErrUnavailable = errors.New("service unavailable")

	// ErrRateLimited indicates the remote service asked us to slow down.
	// It is retryable and must never be dropped silently.
	ErrRateLimited = errors.New("rate limited")

	// ErrConfig indicates invalid caller-supplied parameters or configuration.
	// It is not retryable.
	ErrConfig = errors.New("configuration error")

	// ErrIndexingFailed indicates a document could not be fully indexed.
	// Any partially written chunks have been rolled back.
	ErrIndexingFailed = errors.New("indexing failed")

	// ErrModelUnavailable indicates the language model could not be reached.
	// The answerer degrades instead of surfacing this to callers.
	ErrModelUnavailable = errors.New("language model unavailable")
)
