// Package normalisers turns raw filing bytes into deterministic plain text.
// Each normaliser knows how to extract text from a specific MIME type;
// the Registry dispatches to the best one and attaches section detection.
//
// Normalisers are registered with the Registry at startup.
package normalisers
