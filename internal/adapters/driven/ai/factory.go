// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/cache"
	ollamaembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/vector/ivf"
	memoryindex "github.com/custodia-labs/sercha-rag/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/vector/pgvector"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// OpenAI request throttle shared by the embedding and chat adapters.
const (
	openAIRequestsPerSecond = 8
	openAIBurst             = 8
)

// openAILimiter is shared by every OpenAI adapter in the process.
var openAILimiter = rate.NewLimiter(rate.Limit(openAIRequestsPerSecond), openAIBurst)

// fixHint is appended to configuration errors.
const fixHint = "Run 'sercha-rag settings set' to fix"

// InitResult contains the AI services built at startup.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	VectorIndex      driven.VectorIndex
	Models           *ModelProvider
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.VectorIndex != nil {
		r.VectorIndex.Close()
	}
	if r.Models != nil {
		r.Models.Close()
	}
}

// Init builds the embedding service, vector index and model provider from settings.
// The embedding service is validated; generation models are created lazily.
func Init(ctx context.Context, settings domain.AppSettings) (*InitResult, error) {
	embedder, err := CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedding provider %q is not configured. %s",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider, fixHint)
	}

	vectorSettings := settings.VectorIndex
	if dims := embedder.Dimensions(); dims > 0 {
		vectorSettings.Dimensions = dims
	}
	index, err := CreateVectorIndex(ctx, vectorSettings, settings.RAG.ScoreMapping)
	if err != nil {
		embedder.Close()
		return nil, err
	}

	return &InitResult{
		EmbeddingService: embedder,
		VectorIndex:      index,
		Models:           NewModelProvider(settings.LLM, APIKeysFromEnv()),
	}, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}

	return svc, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// A positive CacheSize wraps it in an LRU cache. Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var (
		svc driven.EmbeddingService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = createOllamaEmbedding(settings)
	case domain.AIProviderOpenAI:
		svc, err = createOpenAIEmbedding(settings)
	case domain.AIProviderAnthropic:
		return nil, errors.New("anthropic does not support embeddings, use ollama or openai")
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	return cache.Wrap(svc, settings.CacheSize, cache.DefaultTTL), nil
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil
	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)
	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// CreateVectorIndex creates the vector index selected by settings.
// An empty backend selects the exact in-memory index.
func CreateVectorIndex(
	ctx context.Context,
	settings domain.VectorIndexSettings,
	mapping domain.ScoreMapping,
) (driven.VectorIndex, error) {
	switch settings.Backend {
	case "", domain.VectorBackendMemory:
		return memoryindex.New(settings.Dimensions, mapping), nil
	case domain.VectorBackendIVF:
		return ivf.New(ivf.Config{
			Dimensions:      settings.Dimensions,
			Lists:           settings.Lists,
			Probes:          settings.Probes,
			RecallTolerance: settings.RecallTolerance,
			Mapping:         mapping,
		}), nil
	case domain.VectorBackendPgvector:
		if settings.DSN == "" {
			return nil, fmt.Errorf("%w: pgvector backend requires vector_index.dsn. %s",
				domain.ErrVectorIndexUnavailable, fixHint)
		}
		index, err := pgvector.New(ctx, settings.DSN, settings.Dimensions, mapping)
		if err != nil {
			return nil, err
		}
		return index, nil
	default:
		return nil, fmt.Errorf("%w: unsupported vector backend: %s", domain.ErrInvalidInput, settings.Backend)
	}
}

// APIKeysFromEnv returns provider API keys found in the environment.
func APIKeysFromEnv() map[domain.AIProvider]string {
	keys := make(map[domain.AIProvider]string)
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		keys[domain.AIProviderOpenAI] = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		keys[domain.AIProviderAnthropic] = key
	}
	return keys
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Limiter: openAILimiter,
	})
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Limiter: openAILimiter,
	})
}

// createAnthropicLLM creates an Anthropic LLM service.
func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}
