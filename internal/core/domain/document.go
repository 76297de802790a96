package domain

import (
	"fmt"
	"strings"
	"time"
)

// DocumentType classifies an IPO filing.
type DocumentType string

// Supported document types.
const (
	// DocTypeRegistration is a registration statement (S-1, F-1 and amendments).
	DocTypeRegistration DocumentType = "registration_statement"

	// DocTypeProspectus is a final prospectus (424B4 and siblings).
	DocTypeProspectus DocumentType = "prospectus"

	// DocTypeLockUp is a lock-up agreement filed as a registration exhibit.
	DocTypeLockUp DocumentType = "lockup_agreement"

	// DocTypeUnderwriting is an underwriting agreement (exhibit 1.1).
	DocTypeUnderwriting DocumentType = "underwriting_agreement"

	// DocTypeListing is an exchange listing form (8-A).
	DocTypeListing DocumentType = "listing_form"
)

// DocumentTypes returns every supported document type in display order.
func DocumentTypes() []DocumentType {
	return []DocumentType{
		DocTypeRegistration,
		DocTypeProspectus,
		DocTypeLockUp,
		DocTypeUnderwriting,
		DocTypeListing,
	}
}

// IsValid returns true if the document type is recognised.
func (t DocumentType) IsValid() bool {
	switch t {
	case DocTypeRegistration, DocTypeProspectus, DocTypeLockUp, DocTypeUnderwriting, DocTypeListing:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t DocumentType) String() string {
	return string(t)
}

// Code returns the short form code used in citations (e.g. "S-1").
func (t DocumentType) Code() string {
	switch t {
	case DocTypeRegistration:
		return "S-1"
	case DocTypeProspectus:
		return "424B4"
	case DocTypeLockUp:
		return "LOCK-UP"
	case DocTypeUnderwriting:
		return "UNDERWRITING"
	case DocTypeListing:
		return "8-A"
	default:
		return strings.ToUpper(string(t))
	}
}

// Forms returns the registry form codes that carry this document type,
// most specific first. Exhibit types are carried by registration forms.
func (t DocumentType) Forms() []string {
	switch t {
	case DocTypeRegistration, DocTypeLockUp, DocTypeUnderwriting:
		return []string{"S-1", "S-1/A", "F-1", "F-1/A"}
	case DocTypeProspectus:
		return []string{"424B4", "424B1", "424B3"}
	case DocTypeListing:
		return []string{"8-A12B", "8-A12G"}
	default:
		return nil
	}
}

// IsExhibit returns true if the document is filed as an exhibit
// of a registration statement rather than as its own form.
func (t DocumentType) IsExhibit() bool {
	return t == DocTypeLockUp || t == DocTypeUnderwriting
}

// ParseDocumentType accepts an enum value, a form code or a common alias.
func ParseDocumentType(s string) (DocumentType, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "_", "-")

	switch key {
	case "REGISTRATION-STATEMENT", "REGISTRATION", "S-1", "S1", "S-1/A", "F-1":
		return DocTypeRegistration, nil
	case "PROSPECTUS", "424B4", "424B1", "424B3":
		return DocTypeProspectus, nil
	case "LOCKUP-AGREEMENT", "LOCKUP", "LOCK-UP", "LOCK-UP-AGREEMENT":
		return DocTypeLockUp, nil
	case "UNDERWRITING-AGREEMENT", "UNDERWRITING":
		return DocTypeUnderwriting, nil
	case "LISTING-FORM", "LISTING", "8-A", "8A", "8-A12B", "8-A12G":
		return DocTypeListing, nil
	default:
		return "", fmt.Errorf("%w: unknown document type %q", ErrConfig, s)
	}
}

// DocumentRef identifies a document lineage: one ticker and one type.
// Successive fetches of the same ref supersede each other.
type DocumentRef struct {
	// Ticker is the upper-case company ticker.
	Ticker string

	// Type is the filing type.
	Type DocumentType
}

// NewDocumentRef normalises and validates a ticker and type.
func NewDocumentRef(ticker string, docType DocumentType) (DocumentRef, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return DocumentRef{}, fmt.Errorf("%w: ticker is required", ErrConfig)
	}
	if !docType.IsValid() {
		return DocumentRef{}, fmt.Errorf("%w: unknown document type %q", ErrConfig, docType)
	}
	return DocumentRef{Ticker: ticker, Type: docType}, nil
}

// Key returns the stable string form "TICKER/type".
func (r DocumentRef) Key() string {
	return r.Ticker + "/" + string(r.Type)
}

// String returns the string representation.
func (r DocumentRef) String() string {
	return r.Key()
}

// Document is one fetched filing.
// It is immutable once stored; a re-fetch producing a new content hash
// creates a new Document that supersedes this one.
type Document struct {
	// ID is derived from the ref and content hash.
	ID string

	// Ref is the ticker and document type.
	Ref DocumentRef

	// CIK is the registry-assigned company identifier.
	CIK string

	// Form is the registry form code (e.g. "S-1/A").
	Form string

	// AccessionNumber identifies the filing in the registry.
	AccessionNumber string

	// FilingDate is the registry filing date (YYYY-MM-DD).
	FilingDate string

	// SourceURL is where the raw content was fetched from.
	SourceURL string

	// MIMEType is the raw content type.
	MIMEType string

	// ContentHash is the hex SHA-256 of the raw bytes.
	ContentHash string

	// Title is a human-readable title.
	Title string

	// FetchedAt is when the raw content was retrieved.
	FetchedAt time.Time

	// Facts holds key facts extracted at ingest, if any.
	Facts *KeyFacts

	// EmbeddingModel names the model that embedded the chunks.
	EmbeddingModel string
}

// Section is a structural heading detected in normalised text.
type Section struct {
	// Label is the heading text without numbering (e.g. "BUSINESS").
	Label string

	// Start is the byte offset of the heading in the plain text.
	Start int
}

// Chunk is a contiguous span of a document's normalised text.
//
// Content is PlainText[Start:End]. The bytes in [Start, OverlapStart)
// repeat the end of the previous chunk, so concatenating
// Content[OverlapStart-Start:] over all chunks in sequence order
// reconstructs the plain text.
type Chunk struct {
	// ID is derived from the document ID and sequence.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Ticker is copied from the document for filtering.
	Ticker string

	// DocumentType is copied from the document for filtering.
	DocumentType DocumentType

	// Sequence is the zero-based position within the document.
	Sequence int

	// TokenCount is the number of tokens in Content.
	TokenCount int

	// Start is the byte offset where Content begins.
	Start int

	// End is the byte offset where Content ends (exclusive).
	End int

	// OverlapStart is the overlap-adjusted start offset.
	OverlapStart int

	// Section is the nearest preceding section label, empty if none.
	Section string

	// Page is the 1-based page number, 0 when unknown.
	Page int

	// Content is the chunk text.
	Content string

	// ContentHash is the hex SHA-256 of Content, used to reuse embeddings.
	ContentHash string

	// Embedding is the vector representation for similarity search.
	Embedding []float32
}

// NonOverlapping returns the part of Content not shared with the previous chunk.
func (c *Chunk) NonOverlapping() string {
	skip := c.OverlapStart - c.Start
	if skip <= 0 {
		return c.Content
	}
	if skip >= len(c.Content) {
		return ""
	}
	return c.Content[skip:]
}

// RawDocument is a Document together with its fetched bytes.
type RawDocument struct {
	// Document carries the filing metadata.
	Document Document

	// Content is the raw bytes.
	Content []byte
}

// IngestResult reports the outcome of ingesting one ref.
type IngestResult struct {
	// Ref is the ingested ticker and type.
	Ref DocumentRef

	// Document is the indexed document, nil on failure.
	Document *Document

	// Chunks is the number of chunks indexed.
	Chunks int

	// Reused is the number of chunks whose embeddings were reused.
	Reused int

	// Skipped is true when the same content was already indexed.
	Skipped bool

	// Err is the failure, if any.
	Err error
}
