package driven

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// AIConfigValidator checks provider settings against the live provider before
// settings are saved. Settings without a provider or model are accepted as-is.
type AIConfigValidator interface {
	// ValidateEmbedding fails when the provider is unreachable or its vectors
	// do not have the size the index expects (domain.ErrDimensionMismatch).
	ValidateEmbedding(settings *domain.EmbeddingSettings) error

	// ValidateLLM fails when the generation provider is unreachable.
	ValidateLLM(settings *domain.LLMSettings) error
}
