package ai

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

type stubLLM struct {
	provider string
	model    string
	closed   bool
}

func (s *stubLLM) ChatStream(context.Context, []driven.ChatMessage, driven.ChatOptions) iter.Seq2[string, error] {
	return func(func(string, error) bool) {}
}
func (s *stubLLM) Provider() string           { return s.provider }
func (s *stubLLM) ModelName() string          { return s.model }
func (s *stubLLM) Ping(context.Context) error { return nil }

func (s *stubLLM) Close() error {
	s.closed = true
	return nil
}

func newStubProvider(settings domain.LLMSettings, keys map[domain.AIProvider]string) (*ModelProvider, *[]domain.LLMSettings) {
	var created []domain.LLMSettings
	p := NewModelProvider(settings, keys)
	p.create = func(s *domain.LLMSettings) (driven.LLMService, error) {
		created = append(created, *s)
		return &stubLLM{provider: string(s.Provider), model: s.Model}, nil
	}
	return p, &created
}

func TestModelProvider_CachesServices(t *testing.T) {
	p, created := newStubProvider(domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: "http://gpu:11434"}, nil)

	a, err := p.LLM("ollama", "qwen2.5:7b")
	require.NoError(t, err)
	b, err := p.LLM("ollama", "qwen2.5:7b")
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := p.LLM("ollama", "llama3.2")
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", c.ModelName())

	require.Len(t, *created, 2)
	assert.Equal(t, "http://gpu:11434", (*created)[0].BaseURL)
}

func TestModelProvider_OtherProviderUsesEnvKey(t *testing.T) {
	p, created := newStubProvider(
		domain.LLMSettings{Provider: domain.AIProviderOllama, Temperature: 0.3},
		map[domain.AIProvider]string{domain.AIProviderOpenAI: "sk-env"},
	)

	svc, err := p.LLM("openai", "gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "openai", svc.Provider())
	require.Len(t, *created, 1)
	assert.Equal(t, "sk-env", (*created)[0].APIKey)
	assert.Empty(t, (*created)[0].BaseURL)
}

func TestModelProvider_MissingKey(t *testing.T) {
	p, _ := newStubProvider(domain.LLMSettings{Provider: domain.AIProviderOllama}, nil)

	_, err := p.LLM("anthropic", "claude-3-5-sonnet-latest")
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestModelProvider_CreateError(t *testing.T) {
	p := NewModelProvider(domain.LLMSettings{Provider: domain.AIProviderOllama}, nil)
	p.create = func(*domain.LLMSettings) (driven.LLMService, error) {
		return nil, errors.New("boom")
	}

	_, err := p.LLM("ollama", "llama3.2")
	require.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "boom")
}

func TestModelProvider_Close(t *testing.T) {
	p, _ := newStubProvider(domain.LLMSettings{Provider: domain.AIProviderOllama}, nil)

	svc, err := p.LLM("ollama", "llama3.2")
	require.NoError(t, err)
	require.NoError(t, p.Close())
	assert.True(t, svc.(*stubLLM).closed)
	assert.Empty(t, p.services)
}
