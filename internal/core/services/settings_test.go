package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func newSettingsService(env map[string]string) (*SettingsService, *memory.ConfigStore, *mockAIConfigValidator) {
	store := memory.NewConfigStore()
	validator := &mockAIConfigValidator{}
	svc := NewSettingsService(store, validator)
	svc.getenv = func(key string) string { return env[key] }
	return svc, store, validator
}

func TestSettingsService_GetDefaults(t *testing.T) {
	svc, _, _ := newSettingsService(nil)

	settings, err := svc.Get()
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults, *settings)
	assert.Equal(t, defaults, svc.GetDefaults())
}

func TestSettingsService_SetAndGet(t *testing.T) {
	svc, _, _ := newSettingsService(nil)

	require.NoError(t, svc.Set("rag.min_score", "0.3"))
	require.NoError(t, svc.Set("rag.top_k", "8"))
	require.NoError(t, svc.Set("rag.max_prompt_tokens", "0"))
	require.NoError(t, svc.Set("answer.emit_meta", "false"))
	require.NoError(t, svc.Set("llm.provider", "openai"))
	require.NoError(t, svc.Set("llm.model", "gpt-4o-mini"))
	require.NoError(t, svc.Set("llm.max_tokens", "512"))
	require.NoError(t, svc.Set("vector_index.backend", "ivf"))
	require.NoError(t, svc.Set("vector_index.nprobe", "6"))
	require.NoError(t, svc.Set("ingest.max_file_bytes", "2048"))
	require.NoError(t, svc.Set("server.addr", ":9090"))
	require.NoError(t, svc.Set("models.openai", "gpt-4o-mini, gpt-4o ,"))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.InDelta(t, 0.3, settings.RAG.MinScore, 1e-9)
	assert.Equal(t, 8, settings.RAG.TopK)
	assert.Zero(t, settings.RAG.MaxPromptTokens)
	assert.False(t, settings.Answer.EmitMeta)
	assert.Equal(t, domain.AIProviderOpenAI, settings.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", settings.LLM.Model)
	assert.Equal(t, 512, settings.LLM.MaxTokens)
	assert.Equal(t, domain.VectorBackendIVF, settings.VectorIndex.Backend)
	assert.Equal(t, 6, settings.VectorIndex.Probes)
	assert.Equal(t, int64(2048), settings.Ingest.MaxFileBytes)
	assert.Equal(t, ":9090", settings.Server.Addr)
	assert.Equal(t, []string{"gpt-4o-mini", "gpt-4o"}, settings.Models[domain.AIProviderOpenAI])
	assert.Equal(t, domain.DefaultModelRegistry()[domain.AIProviderOllama], settings.Models[domain.AIProviderOllama])
}

func TestSettingsService_SetRejects(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"unknown.key", "x"},
		{"rag.top_k", "many"},
		{"rag.top_k", "0"},
		{"rag.min_score", "1.5"},
		{"rag.min_score", "-0.1"},
		{"rag.chunk_overlap", "-1"},
		{"rag.score_mapping", "cubic"},
		{"answer.emit_meta", "maybe"},
		{"embedding.provider", "anthropic"},
		{"llm.provider", "bard"},
		{"vector_index.backend", "faiss"},
		{"llm.temperature", "3"},
		{"llm.max_tokens", "-1"},
		{"models.bogus", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			svc, store, _ := newSettingsService(nil)
			err := svc.Set(tt.key, tt.value)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Empty(t, store.Keys())
		})
	}
}

func TestSettingsService_EmbeddingModelSetsDimensions(t *testing.T) {
	svc, _, _ := newSettingsService(nil)

	require.NoError(t, svc.Set("embedding.model", "mxbai-embed-large"))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 1024, settings.VectorIndex.Dimensions)
}

func TestSettingsService_APIKeysFromEnvironment(t *testing.T) {
	svc, _, _ := newSettingsService(map[string]string{
		"OPENAI_API_KEY":    "sk-env",
		"ANTHROPIC_API_KEY": "ak-env",
	})
	require.NoError(t, svc.Set("embedding.provider", "openai"))
	require.NoError(t, svc.Set("llm.provider", "anthropic"))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-env", settings.Embedding.APIKey)
	assert.Equal(t, "ak-env", settings.LLM.APIKey)

	// A configured key wins.
	require.NoError(t, svc.Set("llm.api_key", "ak-file"))
	settings, err = svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "ak-file", settings.LLM.APIKey)
}

func TestSettingsService_OllamaIgnoresEnvironmentKeys(t *testing.T) {
	svc, _, _ := newSettingsService(map[string]string{"OPENAI_API_KEY": "sk-env"})

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Empty(t, settings.Embedding.APIKey)
	assert.Empty(t, settings.LLM.APIKey)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	svc, store, _ := newSettingsService(nil)

	settings := domain.DefaultAppSettings()
	settings.LLM.Provider = domain.AIProviderOpenAI
	settings.LLM.APIKey = "sk-test"
	settings.RAG.ContextChars = 400
	settings.VectorIndex.Backend = domain.VectorBackendPgvector
	settings.VectorIndex.DSN = "postgres://localhost/rag"
	settings.Answer.EmitMeta = false
	require.NoError(t, svc.Save(&settings))

	loaded, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *loaded)
	assert.Equal(t, "sk-test", store.GetString("llm.api_key"))
	_, hasEmbedKey := store.Get("embedding.api_key")
	assert.False(t, hasEmbedKey, "empty api keys are not written")
}

func TestSettingsService_SaveSkipsEnvironmentKeys(t *testing.T) {
	svc, store, _ := newSettingsService(map[string]string{"ANTHROPIC_API_KEY": "sk-env"})
	require.NoError(t, svc.Set("llm.provider", "anthropic"))

	settings, err := svc.Get()
	require.NoError(t, err)
	require.Equal(t, "sk-env", settings.LLM.APIKey)

	settings.RAG.TopK = 9
	require.NoError(t, svc.Save(settings))

	_, stored := store.Get("llm.api_key")
	assert.False(t, stored)
	assert.Equal(t, 9, store.GetInt("rag.top_k"))
}

func TestSettingsService_Validation(t *testing.T) {
	svc, _, validator := newSettingsService(nil)

	require.NoError(t, svc.ValidateEmbeddingConfig())
	require.NoError(t, svc.ValidateLLMConfig())
	assert.Equal(t, 1, validator.embeddingCalls)
	assert.Equal(t, 1, validator.llmCalls)

	validator.llmErr = errors.New("unreachable")
	assert.Error(t, svc.ValidateLLMConfig())

	noValidator := NewSettingsService(memory.NewConfigStore(), nil)
	assert.NoError(t, noValidator.ValidateEmbeddingConfig())
	assert.NoError(t, noValidator.ValidateLLMConfig())
}

func TestSettingKeys(t *testing.T) {
	keys := SettingKeys()
	assert.Contains(t, keys, "rag.min_score")
	assert.Contains(t, keys, "vector_index.recall_tolerance")
	assert.IsNonDecreasing(t, keys)
}
