package services

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/patrickmn/go-cache"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/core/ports/driven"
	"github.com/hedgeintel/filingqa/internal/core/ports/driving"
	"github.com/hedgeintel/filingqa/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.Answerer = (*AnswerService)(nil)

// NoContextAnswer is returned when retrieval finds nothing to ground on.
const NoContextAnswer = "No relevant context was found in the indexed filings for this question."

// DefaultAnswerSystemPrompt grounds the model in the numbered context.
const DefaultAnswerSystemPrompt = `You are an IPO filing analysis assistant.
Answer the question using only the numbered context passages taken from SEC filings.
Cite every statement with the passage number in square brackets, for example [1] or [2].
If the passages do not contain the answer, say that the filings provided do not answer it.
Do not use outside knowledge.`

const (
	degradedFormat = "The language model is unavailable: %v. Showing the retrieved sources only."
	maxSpanLength  = 300
)

// AnswerService composes grounded answers from retrieved chunks.
//
// Confidence is computed, never asked of the model:
//
//	mean  = clamp01(mean retrieval score of the context chunks)
//	cited = distinct valid [n] markers in the answer / number of chunks
//	conf  = round3(mean * (0.5 + 0.5*cited))
//
// An empty answer, no context, or a degraded answer scores 0.
type AnswerService struct {
	retriever driving.Retriever
	llm       driven.LLMService
	index     driven.VectorIndex
	prompts   driven.PromptStore
	cache     *cache.Cache
	topK      int
	policy    retryPolicy
	opts      driven.ChatOptions
}

// NewAnswerService creates an answer service.
// A zero CacheTTL disables the answer cache.
func NewAnswerService(
	retriever driving.Retriever,
	llm driven.LLMService,
	index driven.VectorIndex,
	answer domain.AnswerSettings,
	llmSettings domain.LLMSettings,
) *AnswerService {
	s := &AnswerService{
		retriever: retriever,
		llm:       llm,
		index:     index,
		topK:      answer.TopK,
		policy:    newRetryPolicy(llmSettings.MaxAttempts, llmSettings.Timeout.Std()),
		opts: driven.ChatOptions{
			MaxTokens:   llmSettings.MaxTokens,
			Temperature: llmSettings.Temperature,
		},
	}
	if s.topK < domain.MinTopK {
		s.topK = domain.MinTopK
	}
	if ttl := answer.CacheTTL.Std(); ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

// SetPromptStore sets the store used to override the system prompt.
func (s *AnswerService) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// Answer answers query from the chunks matching filter.
func (s *AnswerService) Answer(ctx context.Context, query string, filter domain.Filter) (*domain.Answer, error) {
	logger.Section("Answer")

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrConfig)
	}
	filter = filter.Normalised()

	key := s.cacheKey(ctx, query, filter)
	if cached, ok := s.lookup(key); ok {
		logger.Debug("Answer cache hit")
		return cached, nil
	}

	chunks, err := s.retriever.Retrieve(ctx, query, filter, s.topK)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		logger.Info("No context for %q (%s), model not called", query, filter)
		ans := &domain.Answer{Text: NoContextAnswer, Citations: []domain.Citation{}}
		s.store(key, ans)
		return ans, nil
	}

	citations := BuildCitations(query, chunks)
	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: s.systemPrompt()},
		{Role: driven.RoleUser, Content: BuildContextPrompt(query, chunks)},
	}

	text, err := s.chat(ctx, messages)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("Answer degraded: %v", err)
		return &domain.Answer{
			Text:      fmt.Sprintf(degradedFormat, err),
			Citations: citations,
			Degraded:  true,
		}, nil
	}

	ans := &domain.Answer{
		Text:       text,
		Confidence: Confidence(text, chunks),
		Citations:  citations,
	}
	logger.Debug("Answer: %d chars, confidence %.3f", len(text), ans.Confidence)
	s.store(key, ans)
	return ans, nil
}

func (s *AnswerService) chat(ctx context.Context, messages []driven.ChatMessage) (string, error) {
	if s.llm == nil {
		return "", fmt.Errorf("%w: no language model configured", domain.ErrModelUnavailable)
	}

	var text string
	err := withRetry(ctx, s.policy, "answer", func(ctx context.Context) error {
		t, err := s.llm.Chat(ctx, messages, s.opts)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(t)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
	}
	return text, nil
}

func (s *AnswerService) systemPrompt() string {
	if s.prompts == nil {
		return DefaultAnswerSystemPrompt
	}
	prompt, err := s.prompts.Load(driven.PromptAnswerSystem)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return DefaultAnswerSystemPrompt
	}
	return prompt
}

// cacheKey combines the normalised question, the filter and the index
// version, so any commit or delete invalidates earlier answers.
func (s *AnswerService) cacheKey(ctx context.Context, query string, filter domain.Filter) string {
	if s.cache == nil || s.index == nil {
		return ""
	}
	version, err := s.index.Version(ctx)
	if err != nil {
		logger.Warn("Answer cache disabled for this call: %v", err)
		return ""
	}
	normalised := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return fmt.Sprintf("%s|%s|v%d", normalised, filter, version)
}

func (s *AnswerService) lookup(key string) (*domain.Answer, bool) {
	if key == "" {
		return nil, false
	}
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	ans := *v.(*domain.Answer)
	ans.Citations = append([]domain.Citation(nil), ans.Citations...)
	ans.Cached = true
	return &ans, true
}

func (s *AnswerService) store(key string, ans *domain.Answer) {
	if key == "" || ans.Degraded {
		return
	}
	stored := *ans
	stored.Citations = append([]domain.Citation{}, ans.Citations...)
	s.cache.Set(key, &stored, cache.DefaultExpiration)
}

// BuildContextPrompt renders the numbered context blocks and the question.
func BuildContextPrompt(query string, chunks []domain.ScoredChunk) string {
	var b strings.Builder
	b.WriteString("Context passages:\n\n")
	for i, sc := range chunks {
		c := sc.Chunk
		fmt.Fprintf(&b, "[%d] %s %s", i+1, c.Ticker, c.DocumentType.Code())
		if c.Section != "" {
			fmt.Fprintf(&b, ", section %s", c.Section)
		}
		if c.Page > 0 {
			fmt.Fprintf(&b, ", page %d", c.Page)
		}
		b.WriteString(":\n")
		b.WriteString(strings.TrimSpace(c.Content))
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}

// BuildCitations maps retrieved chunks to citations in retrieval order.
func BuildCitations(query string, chunks []domain.ScoredChunk) []domain.Citation {
	citations := make([]domain.Citation, 0, len(chunks))
	for _, sc := range chunks {
		c := sc.Chunk
		citations = append(citations, domain.Citation{
			ChunkID:      c.ID,
			DocumentID:   c.DocumentID,
			Ticker:       c.Ticker,
			DocumentType: c.DocumentType,
			Section:      c.Section,
			Span:         matchSpan(c.Content, query),
			Page:         c.Page,
			Score:        sc.Score,
			SourceURL:    sc.SourceURL,
		})
	}
	return citations
}

var citationMarker = regexp.MustCompile(`\[(\d+(?:\s*,\s*\d+)*)\]`)

// Confidence derives a reproducible score from retrieval scores and the
// share of context passages the answer cites.
func Confidence(text string, chunks []domain.ScoredChunk) float64 {
	if strings.TrimSpace(text) == "" || len(chunks) == 0 {
		return 0
	}

	var sum float64
	for _, c := range chunks {
		sum += c.Score
	}
	mean := clamp01(sum / float64(len(chunks)))

	cited := make(map[int]bool)
	for _, m := range citationMarker.FindAllStringSubmatch(text, -1) {
		for _, part := range strings.Split(m[1], ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err == nil && n >= 1 && n <= len(chunks) {
				cited[n] = true
			}
		}
	}
	share := float64(len(cited)) / float64(len(chunks))

	return math.Round(mean*(0.5+0.5*share)*1000) / 1000
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// matchSpan returns the sentence of content sharing the most terms with query.
func matchSpan(content, query string) string {
	terms := queryTerms(query)
	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return ""
	}

	best, bestScore := sentences[0], -1
	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		score := 0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = sentence, score
		}
	}

	if len(best) > maxSpanLength {
		cut := strings.LastIndex(best[:maxSpanLength], " ")
		if cut <= 0 {
			cut = maxSpanLength
			for cut > 0 && !utf8.RuneStart(best[cut]) {
				cut--
			}
		}
		best = best[:cut] + "..."
	}
	return best
}

// queryTerms returns the lower-cased words of query worth matching.
func queryTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, `.,;:!?"'()`)
		if len(w) >= 3 && !stopWords[w] {
			terms = append(terms, w)
		}
	}
	return terms
}

var stopWords = map[string]bool{
	"the": true, "and": true, "what": true, "which": true, "who": true,
	"how": true, "are": true, "for": true, "does": true, "with": true,
	"this": true, "that": true, "from": true, "its": true, "was": true,
}

// splitSentences splits content into sentences.
func splitSentences(content string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range content {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}
