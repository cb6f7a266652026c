package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedCacheSize   = "embedding.cache_size"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keyLLMTemperature   = "llm.temperature"
	keyLLMMaxTokens     = "llm.max_tokens"
	keyVectorBackend    = "vector_index.backend"
	keyVectorDSN        = "vector_index.dsn"
	keyVectorDims       = "vector_index.dimensions"
	keyVectorLists      = "vector_index.nlist"
	keyVectorProbes     = "vector_index.nprobe"
	keyVectorRecall     = "vector_index.recall_tolerance"
	keyRAGTopK          = "rag.top_k"
	keyRAGMinScore      = "rag.min_score"
	keyRAGScoreMapping  = "rag.score_mapping"
	keyRAGHistory       = "rag.history_messages"
	keyRAGContextChunks = "rag.context_chunks"
	keyRAGContextChars  = "rag.context_chars"
	keyRAGMaxTokens     = "rag.max_prompt_tokens"
	keyRAGChunkSize     = "rag.chunk_size"
	keyRAGChunkOverlap  = "rag.chunk_overlap"
	keyAnswerEmitMeta   = "answer.emit_meta"
	keyIngestMaxBytes   = "ingest.max_file_bytes"
	keyIngestMaxFiles   = "ingest.max_files"
	keyServerAddr       = "server.addr"
	keyServerRateLimit  = "server.rate_limit"
	keyServerRateBurst  = "server.rate_burst"
	keyModelsPrefix     = "models."
)

// setting is one stored key and value.
type setting struct {
	key   string
	value any
}

// valueKind is the stored type of a setting.
type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindList
)

// settingKinds lists every settable key except models.<provider>.
var settingKinds = map[string]valueKind{
	keyEmbedProvider:    kindString,
	keyEmbedModel:       kindString,
	keyEmbedBaseURL:     kindString,
	keyEmbedAPIKey:      kindString,
	keyEmbedCacheSize:   kindInt,
	keyLLMProvider:      kindString,
	keyLLMModel:         kindString,
	keyLLMBaseURL:       kindString,
	keyLLMAPIKey:        kindString,
	keyLLMTemperature:   kindFloat,
	keyLLMMaxTokens:     kindInt,
	keyVectorBackend:    kindString,
	keyVectorDSN:        kindString,
	keyVectorDims:       kindInt,
	keyVectorLists:      kindInt,
	keyVectorProbes:     kindInt,
	keyVectorRecall:     kindFloat,
	keyRAGTopK:          kindInt,
	keyRAGMinScore:      kindFloat,
	keyRAGScoreMapping:  kindString,
	keyRAGHistory:       kindInt,
	keyRAGContextChunks: kindInt,
	keyRAGContextChars:  kindInt,
	keyRAGMaxTokens:     kindInt,
	keyRAGChunkSize:     kindInt,
	keyRAGChunkOverlap:  kindInt,
	keyAnswerEmitMeta:   kindBool,
	keyIngestMaxBytes:   kindInt,
	keyIngestMaxFiles:   kindInt,
	keyServerAddr:       kindString,
	keyServerRateLimit:  kindFloat,
	keyServerRateBurst:  kindInt,
}

// Environment variables holding provider API keys.
//
//nolint:gosec // G101: These are variable names, not credentials.
var apiKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderOpenAI:    "OPENAI_API_KEY",
	domain.AIProviderAnthropic: "ANTHROPIC_API_KEY",
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// SettingKeys returns every fixed setting key in sorted order.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get retrieves current application settings.
// Empty API keys are filled from the provider's environment variable.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:  s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:     s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:   s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:    s.configStore.GetString(keyEmbedAPIKey),
			CacheSize: s.getInt(keyEmbedCacheSize, defaults.Embedding.CacheSize),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:       s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL),
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			Temperature: s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
			MaxTokens:   s.getInt(keyLLMMaxTokens, defaults.LLM.MaxTokens),
		},
		VectorIndex: domain.VectorIndexSettings{
			Backend:         s.getBackend(defaults.VectorIndex.Backend),
			DSN:             s.configStore.GetString(keyVectorDSN),
			Dimensions:      s.getInt(keyVectorDims, defaults.VectorIndex.Dimensions),
			Lists:           s.getInt(keyVectorLists, defaults.VectorIndex.Lists),
			Probes:          s.getInt(keyVectorProbes, defaults.VectorIndex.Probes),
			RecallTolerance: s.getFloat(keyVectorRecall, defaults.VectorIndex.RecallTolerance),
		},
		RAG: domain.RAGSettings{
			TopK:            s.getInt(keyRAGTopK, defaults.RAG.TopK),
			MinScore:        s.getFloat(keyRAGMinScore, defaults.RAG.MinScore),
			ScoreMapping:    s.getScoreMapping(defaults.RAG.ScoreMapping),
			HistoryMessages: s.getInt(keyRAGHistory, defaults.RAG.HistoryMessages),
			ContextChunks:   s.getInt(keyRAGContextChunks, defaults.RAG.ContextChunks),
			ContextChars:    s.getInt(keyRAGContextChars, defaults.RAG.ContextChars),
			MaxPromptTokens: s.getInt(keyRAGMaxTokens, defaults.RAG.MaxPromptTokens),
			ChunkSize:       s.getInt(keyRAGChunkSize, defaults.RAG.ChunkSize),
			ChunkOverlap:    s.getInt(keyRAGChunkOverlap, defaults.RAG.ChunkOverlap),
		},
		Answer: domain.AnswerSettings{
			EmitMeta: s.getBool(keyAnswerEmitMeta, defaults.Answer.EmitMeta),
		},
		Ingest: domain.IngestSettings{
			MaxFileBytes: int64(s.getInt(keyIngestMaxBytes, int(defaults.Ingest.MaxFileBytes))),
			MaxFiles:     s.getInt(keyIngestMaxFiles, defaults.Ingest.MaxFiles),
		},
		Server: domain.ServerSettings{
			Addr:      s.getString(keyServerAddr, defaults.Server.Addr),
			RateLimit: s.getFloat(keyServerRateLimit, defaults.Server.RateLimit),
			RateBurst: s.getInt(keyServerRateBurst, defaults.Server.RateBurst),
		},
		Models: s.getModels(defaults.Models),
	}

	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envKey(settings.LLM.Provider)
	}

	return settings, nil
}

// Save persists application settings. API keys are only written when set
// and not taken from the environment.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []setting{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedCacheSize, settings.Embedding.CacheSize},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
		{keyVectorBackend, string(settings.VectorIndex.Backend)},
		{keyVectorDSN, settings.VectorIndex.DSN},
		{keyVectorDims, settings.VectorIndex.Dimensions},
		{keyVectorLists, settings.VectorIndex.Lists},
		{keyVectorProbes, settings.VectorIndex.Probes},
		{keyVectorRecall, settings.VectorIndex.RecallTolerance},
		{keyRAGTopK, settings.RAG.TopK},
		{keyRAGMinScore, settings.RAG.MinScore},
		{keyRAGScoreMapping, settings.RAG.ScoreMapping.String()},
		{keyRAGHistory, settings.RAG.HistoryMessages},
		{keyRAGContextChunks, settings.RAG.ContextChunks},
		{keyRAGContextChars, settings.RAG.ContextChars},
		{keyRAGMaxTokens, settings.RAG.MaxPromptTokens},
		{keyRAGChunkSize, settings.RAG.ChunkSize},
		{keyRAGChunkOverlap, settings.RAG.ChunkOverlap},
		{keyAnswerEmitMeta, settings.Answer.EmitMeta},
		{keyIngestMaxBytes, settings.Ingest.MaxFileBytes},
		{keyIngestMaxFiles, settings.Ingest.MaxFiles},
		{keyServerAddr, settings.Server.Addr},
		{keyServerRateLimit, settings.Server.RateLimit},
		{keyServerRateBurst, settings.Server.RateBurst},
	}
	if settings.Embedding.APIKey != "" && settings.Embedding.APIKey != s.envKey(settings.Embedding.Provider) {
		values = append(values, setting{keyEmbedAPIKey, settings.Embedding.APIKey})
	}
	if settings.LLM.APIKey != "" && settings.LLM.APIKey != s.envKey(settings.LLM.Provider) {
		values = append(values, setting{keyLLMAPIKey, settings.LLM.APIKey})
	}
	for provider, models := range settings.Models {
		values = append(values, setting{keyModelsPrefix + provider.String(), models})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// Set updates a single setting from its string form, then validates the result.
// models.<provider> takes a comma-separated list.
func (s *SettingsService) Set(key, value string) error {
	parsed, err := parseSetting(key, value)
	if err != nil {
		return err
	}
	if err := validateSetting(key, parsed); err != nil {
		return err
	}
	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}

	// Switching embedding model changes the vector size for known models.
	if key == keyEmbedModel {
		if d, ok := domain.EmbeddingDimensions()[value]; ok {
			if err := s.configStore.Set(keyVectorDims, d); err != nil {
				return fmt.Errorf("save %s: %w", keyVectorDims, err)
			}
		}
	}
	return nil
}

func parseSetting(key, value string) (any, error) {
	if provider, ok := strings.CutPrefix(key, keyModelsPrefix); ok {
		if !domain.AIProvider(provider).IsValid() {
			return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, provider)
		}
		var models []string
		for _, m := range strings.Split(value, ",") {
			if m = strings.TrimSpace(m); m != "" {
				models = append(models, m)
			}
		}
		return models, nil
	}

	kind, ok := settingKinds[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	value = strings.TrimSpace(value)
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects an integer", domain.ErrInvalidInput, key)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects a number", domain.ErrInvalidInput, key)
		}
		return f, nil
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects true or false", domain.ErrInvalidInput, key)
		}
		return b, nil
	default:
		return value, nil
	}
}

func validateSetting(key string, value any) error {
	switch key {
	case keyEmbedProvider:
		if p := domain.AIProvider(value.(string)); !p.SupportsEmbeddings() {
			return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, p)
		}
	case keyLLMProvider:
		if p := domain.AIProvider(value.(string)); !p.IsValid() {
			return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, p)
		}
	case keyVectorBackend:
		if b := domain.VectorBackend(value.(string)); !b.IsValid() {
			return fmt.Errorf("%w: invalid vector backend: %s", domain.ErrInvalidInput, b)
		}
	case keyRAGScoreMapping:
		if m := domain.ScoreMapping(value.(string)); !m.IsValid() {
			return fmt.Errorf("%w: invalid score mapping: %s", domain.ErrInvalidInput, m)
		}
	case keyRAGMinScore, keyVectorRecall:
		if f := value.(float64); f < 0 || f > 1 {
			return fmt.Errorf("%w: %s must be between 0 and 1", domain.ErrInvalidInput, key)
		}
	case keyLLMTemperature:
		if f := value.(float64); f < 0 || f > 2 {
			return fmt.Errorf("%w: %s must be between 0 and 2", domain.ErrInvalidInput, key)
		}
	case keyServerRateLimit:
		if value.(float64) < 0 {
			return fmt.Errorf("%w: %s must not be negative", domain.ErrInvalidInput, key)
		}
	case keyRAGChunkOverlap, keyRAGMaxTokens, keyLLMMaxTokens, keyEmbedCacheSize, keyServerRateBurst:
		if value.(int) < 0 {
			return fmt.Errorf("%w: %s must not be negative", domain.ErrInvalidInput, key)
		}
	case keyRAGTopK, keyRAGHistory, keyRAGContextChunks, keyRAGContextChars, keyRAGChunkSize,
		keyVectorDims, keyVectorLists, keyVectorProbes, keyIngestMaxBytes, keyIngestMaxFiles:
		if value.(int) <= 0 {
			return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, key)
		}
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) envKey(provider domain.AIProvider) string {
	name, ok := apiKeyEnv[provider]
	if !ok {
		return ""
	}
	return s.getenv(name)
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	backend := domain.VectorBackend(s.configStore.GetString(keyVectorBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getScoreMapping(defaultVal domain.ScoreMapping) domain.ScoreMapping {
	mapping := domain.ScoreMapping(s.configStore.GetString(keyRAGScoreMapping))
	if !mapping.IsValid() {
		return defaultVal
	}
	return mapping
}

// getModels returns the configured model lists. Providers without a list keep the defaults.
func (s *SettingsService) getModels(defaults map[domain.AIProvider][]string) map[domain.AIProvider][]string {
	models := make(map[domain.AIProvider][]string, len(defaults))
	for provider, list := range defaults {
		models[provider] = list
	}
	for _, key := range s.configStore.Keys() {
		name, ok := strings.CutPrefix(key, keyModelsPrefix)
		if !ok || !domain.AIProvider(name).IsValid() {
			continue
		}
		models[domain.AIProvider(name)] = s.configStore.GetStringSlice(key)
	}
	return models
}
