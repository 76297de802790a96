// Package ai builds embedding and LLM adapters from configuration.
package ai

import (
	"fmt"

	ollamaembed "github.com/hedgeintel/filingqa/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/hedgeintel/filingqa/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/hedgeintel/filingqa/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/hedgeintel/filingqa/internal/adapters/driven/llm/gemini"
	openaillm "github.com/hedgeintel/filingqa/internal/adapters/driven/llm/openai"
	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/core/ports/driven"
)

// CreateEmbeddingService creates the embedding service the settings name.
func CreateEmbeddingService(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Timeout:    settings.Timeout.Std(),
			Dimensions: settings.Dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Timeout:    settings.Timeout.Std(),
			Dimensions: settings.Dimensions,
		})

	default:
		return nil, fmt.Errorf("%w: %s does not support embeddings, use ollama or openai",
			domain.ErrConfig, settings.Provider)
	}
}

// CreateLLMService creates the LLM service the settings name.
func CreateLLMService(settings domain.LLMSettings) (driven.LLMService, error) {
	switch settings.Provider {
	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout.Std(),
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout.Std(),
		})

	case domain.AIProviderGemini:
		return geminillm.NewLLMService(geminillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout.Std(),
		})

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", domain.ErrConfig, settings.Provider)
	}
}
