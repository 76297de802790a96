package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"unicode"

	"github.com/google/uuid"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/core/ports/driven"
	"github.com/hedgeintel/filingqa/internal/normalisers"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// Default chunking configuration, in tokens.
const (
	DefaultWindowSize = 1000
	DefaultOverlap    = 100
)

// chunkNamespace seeds deterministic chunk IDs.
var chunkNamespace = uuid.MustParse("0b8f4c4e-3f0a-4d8e-8f7e-9d2c61a4b3f1")

// Processor splits normalised documents into overlapping token windows.
type Processor struct {
	windowSize int
	overlap    int
}

// Option configures a Processor.
type Option func(*Processor)

// WithWindowSize sets the number of tokens per chunk.
func WithWindowSize(size int) Option {
	return func(p *Processor) {
		p.windowSize = size
	}
}

// WithOverlap sets how many tokens consecutive chunks share.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a chunk processor. Invalid sizes surface as ErrConfig
// when chunking.
func New(opts ...Option) *Processor {
	p := &Processor{
		windowSize: DefaultWindowSize,
		overlap:    DefaultOverlap,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Chunk splits result's plain text and stamps each chunk with doc's identity.
func (p *Processor) Chunk(doc *domain.Document, result *driven.NormaliseResult) ([]domain.Chunk, error) {
	if doc == nil || result == nil {
		return nil, fmt.Errorf("%w: document and normalised text are required", domain.ErrInvalidInput)
	}

	sections := normalisers.CollectSections(result.Sections())
	chunks, err := Chunk(result.PlainText, sections, result.Pages, p.windowSize, p.overlap)
	if err != nil {
		return nil, err
	}

	for i := range chunks {
		c := &chunks[i]
		c.ID = ChunkID(doc.ID, c.Sequence)
		c.DocumentID = doc.ID
		c.Ticker = doc.Ref.Ticker
		c.DocumentType = doc.Ref.Type
		sum := sha256.Sum256([]byte(c.Content))
		c.ContentHash = hex.EncodeToString(sum[:])
	}
	return chunks, nil
}

// ChunkID derives a stable chunk ID from its document and position.
func ChunkID(documentID string, seq int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(documentID+"/"+strconv.Itoa(seq))).String()
}

// Chunk splits text into windows of windowSize whitespace-delimited
// tokens where consecutive windows share overlap tokens. The last window
// ends at the final token and may be shorter.
//
// Offsets tile the text: chunk 0 starts at 0, each chunk ends where the
// token after its window begins and the last chunk ends at len(text).
// OverlapStart is the previous chunk's End, so concatenating
// Content[OverlapStart-Start:] over all chunks reproduces text.
//
// Each chunk takes the label of the last section starting at or before
// its Start and the page containing its Start (0 when pages is empty).
func Chunk(text string, sections []domain.Section, pages []int, windowSize, overlap int) ([]domain.Chunk, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("%w: window size must be positive, got %d", domain.ErrConfig, windowSize)
	}
	if overlap < 0 || overlap >= windowSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", domain.ErrConfig, windowSize, overlap)
	}

	starts := tokenStarts(text)
	n := len(starts)
	if n == 0 {
		return nil, nil
	}

	stride := windowSize - overlap
	chunks := make([]domain.Chunk, 0, (n+stride-1)/stride)
	prevEnd := 0

	for first := 0; ; first += stride {
		last := min(first+windowSize, n)

		start := 0
		if first > 0 {
			start = starts[first]
		}
		end := len(text)
		if last < n {
			end = starts[last]
		}

		chunks = append(chunks, domain.Chunk{
			Sequence:     len(chunks),
			TokenCount:   last - first,
			Start:        start,
			End:          end,
			OverlapStart: prevEnd,
			Section:      sectionAt(sections, start),
			Page:         pageAt(pages, start),
			Content:      text[start:end],
		})
		prevEnd = end

		if last == n {
			break
		}
	}

	return chunks, nil
}

// tokenStarts returns the byte offset of every whitespace-delimited token.
func tokenStarts(text string) []int {
	var starts []int
	inToken := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			inToken = false
			continue
		}
		if !inToken {
			starts = append(starts, i)
			inToken = true
		}
	}
	return starts
}

func sectionAt(sections []domain.Section, offset int) string {
	label := ""
	for _, s := range sections {
		if s.Start > offset {
			break
		}
		label = s.Label
	}
	return label
}

func pageAt(pages []int, offset int) int {
	if len(pages) == 0 {
		return 0
	}
	return normalisers.PageAt(pages, offset)
}
