package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Duration is a time.Duration that reads from strings such as "30s".
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: invalid duration %q", ErrConfig, text)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"
)

// SupportsEmbedding returns true if the provider can produce embeddings.
func (p AIProvider) SupportsEmbedding() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI
}

// SupportsLLM returns true if the provider can generate completions.
func (p AIProvider) SupportsLLM() bool {
	switch p {
	case AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"all-minilm":             384,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// Index backends.
const (
	IndexSQLite = "sqlite"
	IndexMemory = "memory"
)

// RegistrySettings configures the filings registry client.
type RegistrySettings struct {
	// UserAgent identifies the client; it must include a contact email.
	UserAgent string `toml:"user_agent"`

	// BaseURL is the archive host (www.sec.gov).
	BaseURL string `toml:"base_url"`

	// DataURL is the submissions API host (data.sec.gov).
	DataURL string `toml:"data_url"`

	// MinInterval is the minimum delay between requests to one host.
	MinInterval Duration `toml:"min_interval"`

	// Timeout bounds a single request.
	Timeout Duration `toml:"timeout"`

	// MaxAttempts bounds retries of transient failures.
	MaxAttempts int `toml:"max_attempts"`

	// CIKs maps tickers to registry identifiers, bypassing the ticker lookup.
	CIKs map[string]int64 `toml:"ciks"`
}

// StorageSettings configures durable state.
type StorageSettings struct {
	// DataDir holds the raw store, index database and prompt overrides.
	DataDir string `toml:"data_dir"`

	// Index selects the vector index backend ("sqlite" or "memory").
	Index string `toml:"index"`
}

// ChunkingSettings configures token windows.
type ChunkingSettings struct {
	WindowSize int `toml:"window_size"`
	Overlap    int `toml:"overlap"`
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider `toml:"provider"`

	// Model is the embedding model name.
	Model string `toml:"model"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `toml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `toml:"api_key_env"`

	// APIKey is resolved from APIKeyEnv at startup and never read from file.
	APIKey string `toml:"-"`

	// Dimensions overrides the model's known vector size.
	Dimensions int `toml:"dimensions"`

	// Timeout bounds a single embedding call.
	Timeout Duration `toml:"timeout"`

	// BatchSize is the number of chunks embedded per call.
	BatchSize int `toml:"batch_size"`

	// MaxAttempts bounds retries of a failed call.
	MaxAttempts int `toml:"max_attempts"`
}

// LLMSettings holds language model configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider `toml:"provider"`

	// Model is the model name.
	Model string `toml:"model"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `toml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `toml:"api_key_env"`

	// APIKey is resolved from APIKeyEnv at startup and never read from file.
	APIKey string `toml:"-"`

	// Timeout bounds a single completion call.
	Timeout Duration `toml:"timeout"`

	// MaxAttempts bounds retries before the answer degrades.
	MaxAttempts int `toml:"max_attempts"`

	// MaxTokens caps the completion length.
	MaxTokens int `toml:"max_tokens"`

	// Temperature controls sampling.
	Temperature float64 `toml:"temperature"`
}

// AnswerSettings configures the answerer.
type AnswerSettings struct {
	// TopK is the number of chunks retrieved as context.
	TopK int `toml:"top_k"`

	// CacheTTL is how long answers stay cached; zero disables caching.
	CacheTTL Duration `toml:"cache_ttl"`
}

// IngestSettings configures the write path.
type IngestSettings struct {
	// Workers bounds concurrent ingests.
	Workers int `toml:"workers"`

	// InboxDir is watched for dropped-in filings; empty disables watching.
	InboxDir string `toml:"inbox_dir"`
}

// MonitorSettings configures periodic refresh of a watchlist.
type MonitorSettings struct {
	// Interval between refreshes.
	Interval Duration `toml:"interval"`

	// Tickers is the watchlist.
	Tickers []string `toml:"tickers"`

	// DocumentTypes are refreshed for each ticker.
	DocumentTypes []string `toml:"document_types"`
}

// Config is the single configuration schema, resolved once at startup.
type Config struct {
	Registry  RegistrySettings  `toml:"registry"`
	Storage   StorageSettings   `toml:"storage"`
	Chunking  ChunkingSettings  `toml:"chunking"`
	Embedding EmbeddingSettings `toml:"embedding"`
	LLM       LLMSettings       `toml:"llm"`
	Answer    AnswerSettings    `toml:"answer"`
	Ingest    IngestSettings    `toml:"ingest"`
	Monitor   MonitorSettings   `toml:"monitor"`
}

// Answer top-K bounds.
const (
	MinTopK = 1
	MaxTopK = 20
)

// DefaultConfig returns a configuration with defaults for every field.
// API keys and the registry contact are left for the user to supply.
func DefaultConfig() Config {
	return Config{
		Registry: RegistrySettings{
			BaseURL:     "https://www.sec.gov",
			DataURL:     "https://data.sec.gov",
			MinInterval: Duration(200 * time.Millisecond),
			Timeout:     Duration(30 * time.Second),
			MaxAttempts: 4,
		},
		Storage: StorageSettings{
			DataDir: "~/.filingqa",
			Index:   IndexSQLite,
		},
		Chunking: ChunkingSettings{
			WindowSize: 1000,
			Overlap:    100,
		},
		Embedding: EmbeddingSettings{
			Provider:    AIProviderOpenAI,
			Model:       "text-embedding-3-small",
			APIKeyEnv:   "OPENAI_API_KEY",
			Timeout:     Duration(30 * time.Second),
			BatchSize:   16,
			MaxAttempts: 4,
		},
		LLM: LLMSettings{
			Provider:    AIProviderOpenAI,
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			Timeout:     Duration(60 * time.Second),
			MaxAttempts: 3,
			MaxTokens:   500,
			Temperature: 0.2,
		},
		Answer: AnswerSettings{
			TopK:     4,
			CacheTTL: Duration(10 * time.Minute),
		},
		Ingest: IngestSettings{
			Workers: 4,
		},
		Monitor: MonitorSettings{
			Interval:      Duration(6 * time.Hour),
			DocumentTypes: []string{string(DocTypeRegistration), string(DocTypeProspectus)},
		},
	}
}

// ResolveSecrets fills API keys from the environment variables the
// config names. It is called once, after .env files are loaded.
func (c *Config) ResolveSecrets(lookup func(string) string) {
	if c.Embedding.APIKeyEnv != "" {
		c.Embedding.APIKey = lookup(c.Embedding.APIKeyEnv)
	}
	if c.LLM.APIKeyEnv != "" {
		c.LLM.APIKey = lookup(c.LLM.APIKeyEnv)
	}
}

var contactPattern = regexp.MustCompile(`[^\s@()<>]+@[^\s@()<>]+\.[A-Za-z]{2,}`)

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if !contactPattern.MatchString(c.Registry.UserAgent) {
		add("registry.user_agent must include a contact email")
	}
	if c.Registry.MaxAttempts < 1 {
		add("registry.max_attempts must be at least 1")
	}
	if c.Registry.Timeout <= 0 {
		add("registry.timeout must be positive")
	}
	if c.Storage.Index != IndexSQLite && c.Storage.Index != IndexMemory {
		add("storage.index must be %q or %q", IndexSQLite, IndexMemory)
	}
	if c.Chunking.WindowSize <= 0 {
		add("chunking.window_size must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.WindowSize {
		add("chunking.overlap must be in [0, window_size)")
	}

	if !c.Embedding.Provider.SupportsEmbedding() {
		add("embedding.provider %q does not support embeddings", c.Embedding.Provider)
	} else if c.Embedding.Provider.RequiresAPIKey() && c.Embedding.APIKey == "" {
		add("embedding API key missing (set %s)", c.Embedding.APIKeyEnv)
	}
	if c.Embedding.Model == "" {
		add("embedding.model is required")
	}
	if c.Embedding.BatchSize < 1 {
		add("embedding.batch_size must be at least 1")
	}
	if c.Embedding.MaxAttempts < 1 {
		add("embedding.max_attempts must be at least 1")
	}

	if !c.LLM.Provider.SupportsLLM() {
		add("llm.provider %q is not supported", c.LLM.Provider)
	} else if c.LLM.Provider.RequiresAPIKey() && c.LLM.APIKey == "" {
		add("llm API key missing (set %s)", c.LLM.APIKeyEnv)
	}
	if c.LLM.MaxAttempts < 1 {
		add("llm.max_attempts must be at least 1")
	}

	if c.Answer.TopK < MinTopK || c.Answer.TopK > MaxTopK {
		add("answer.top_k must be between %d and %d", MinTopK, MaxTopK)
	}
	if c.Ingest.Workers < 1 {
		add("ingest.workers must be at least 1")
	}
	for _, dt := range c.Monitor.DocumentTypes {
		if _, err := ParseDocumentType(dt); err != nil {
			add("monitor.document_types: unknown type %q", dt)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfig, strings.Join(problems, "; "))
	}
	return nil
}
