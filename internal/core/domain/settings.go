package domain

import "math"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// SupportsEmbeddings returns true if the provider exposes an embedding API.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// ScoreMapping converts raw cosine similarity in [-1,1] into a score in [0,1].
// Indexing and querying must use the same mapping.
type ScoreMapping string

// Available score mappings.
const (
	// ScoreMappingAffine maps cosine c to (c+1)/2.
	ScoreMappingAffine ScoreMapping = "affine"

	// ScoreMappingClamped maps cosine c to max(c, 0). This matches
	// "1 - cosine distance" clipped at zero.
	ScoreMappingClamped ScoreMapping = "clamped"
)

// IsValid returns true if the mapping is recognised.
func (m ScoreMapping) IsValid() bool {
	return m == ScoreMappingAffine || m == ScoreMappingClamped
}

// Apply maps a cosine similarity to a normalised score.
// Unknown mappings behave as affine.
func (m ScoreMapping) Apply(cosine float64) float64 {
	cosine = math.Max(-1, math.Min(1, cosine))
	if m == ScoreMappingClamped {
		return math.Max(cosine, 0)
	}
	return (cosine + 1) / 2
}

// String returns the string representation.
func (m ScoreMapping) String() string {
	return string(m)
}

// VectorBackend selects the vector index implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendMemory is an exact in-process index.
	VectorBackendMemory VectorBackend = "memory"

	// VectorBackendIVF is an approximate clustered in-process index.
	VectorBackendIVF VectorBackend = "ivf"

	// VectorBackendPgvector stores vectors in Postgres with pgvector.
	VectorBackendPgvector VectorBackend = "pgvector"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendIVF, VectorBackendPgvector:
		return true
	default:
		return false
	}
}

// IsPersistent reports whether the backend keeps vectors across restarts.
func (b VectorBackend) IsPersistent() bool {
	return b == VectorBackendPgvector
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// CacheSize is the number of query embeddings kept in memory. Zero disables caching.
	CacheSize int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the default LLM service provider.
	Provider AIProvider

	// Model is the default LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Temperature is the sampling temperature for answers.
	Temperature float64

	// MaxTokens caps the length of an answer. Zero leaves it to the provider.
	MaxTokens int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorIndexSettings holds vector index configuration.
type VectorIndexSettings struct {
	// Backend selects the index implementation.
	Backend VectorBackend

	// DSN is the Postgres connection string (pgvector only).
	DSN string

	// Dimensions is the embedding vector size.
	Dimensions int

	// Lists is the number of IVF clusters.
	Lists int

	// Probes is the initial number of IVF clusters searched per query.
	Probes int

	// RecallTolerance is the accepted recall@k loss of the IVF index versus exact search.
	RecallTolerance float64
}

// RAGSettings holds retrieval and prompt assembly configuration.
type RAGSettings struct {
	// TopK is the default number of nearest neighbours retrieved.
	TopK int

	// MinScore drops candidates scoring below it.
	MinScore float64

	// ScoreMapping converts cosine similarity into scores.
	ScoreMapping ScoreMapping

	// HistoryMessages is the number of trailing conversation messages in a prompt.
	HistoryMessages int

	// ContextChunks is the maximum number of excerpts in a prompt.
	ContextChunks int

	// ContextChars truncates each excerpt.
	ContextChars int

	// MaxPromptTokens bounds the assembled prompt. Zero disables the budget.
	MaxPromptTokens int

	// ChunkSize is the chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by consecutive chunks.
	ChunkOverlap int
}

// AnswerSettings holds streaming answer configuration.
type AnswerSettings struct {
	// EmitMeta sends the sources in a meta event before the first delta.
	EmitMeta bool
}

// IngestSettings holds upload limits.
type IngestSettings struct {
	// MaxFileBytes is the largest accepted file.
	MaxFileBytes int64

	// MaxFiles is the largest accepted batch.
	MaxFiles int
}

// ServerSettings holds HTTP server configuration.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string

	// RateLimit is the sustained requests per second allowed per client. Zero disables limiting.
	RateLimit float64

	// RateBurst is the number of requests a client may make at once.
	RateBurst int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	VectorIndex VectorIndexSettings
	RAG         RAGSettings
	Answer      AnswerSettings
	Ingest      IngestSettings
	Server      ServerSettings

	// Models lists the generation models offered per provider.
	Models map[AIProvider][]string
}

// Default values shared by settings and services.
const (
	DefaultChunkSize       = 1200
	DefaultChunkOverlap    = 150
	DefaultTopK            = 5
	DefaultMinScore        = 0.45
	DefaultHistoryMessages = 6
	DefaultContextChunks   = 5
	DefaultContextChars    = 800
	DefaultPreviewChars    = 200
	DefaultMaxFileBytes    = 10 * 1024 * 1024
	DefaultMaxFiles        = 5
	DefaultServerAddr      = "127.0.0.1:8080"
)

// DefaultAppSettings returns settings with sensible defaults.
// Embedding and LLM default to a local Ollama instance.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:  AIProviderOllama,
			Model:     DefaultEmbeddingModels()[AIProviderOllama],
			CacheSize: 512,
		},
		LLM: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       DefaultLLMModels()[AIProviderOllama],
			Temperature: 0.2,
		},
		VectorIndex: VectorIndexSettings{
			Backend:         VectorBackendMemory,
			Dimensions:      768, // nomic-embed-text default
			Lists:           64,
			Probes:          4,
			RecallTolerance: 0.05,
		},
		RAG: RAGSettings{
			TopK:            DefaultTopK,
			MinScore:        DefaultMinScore,
			ScoreMapping:    ScoreMappingAffine,
			HistoryMessages: DefaultHistoryMessages,
			ContextChunks:   DefaultContextChunks,
			ContextChars:    DefaultContextChars,
			ChunkSize:       DefaultChunkSize,
			ChunkOverlap:    DefaultChunkOverlap,
		},
		Answer: AnswerSettings{
			EmitMeta: true,
		},
		Ingest: IngestSettings{
			MaxFileBytes: DefaultMaxFileBytes,
			MaxFiles:     DefaultMaxFiles,
		},
		Server: ServerSettings{
			Addr:      DefaultServerAddr,
			RateLimit: 10,
			RateBurst: 20,
		},
		Models: DefaultModelRegistry(),
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "qwen2.5:7b",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// DefaultModelRegistry returns the generation models offered out of the box.
func DefaultModelRegistry() map[AIProvider][]string {
	return map[AIProvider][]string{
		AIProviderOpenAI:    {"gpt-4o-mini"},
		AIProviderOllama:    {"qwen2.5:7b", "llama3.2"},
		AIProviderAnthropic: {"claude-3-5-sonnet-latest"},
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
