package ai

import (
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure ModelProvider implements the interface.
var _ driven.LLMProvider = (*ModelProvider)(nil)

// ModelProvider creates and caches generation services per (provider, model).
//
// The configured LLM provider uses its own base URL and API key. Other
// providers fall back to keys supplied at construction, typically from the
// environment.
type ModelProvider struct {
	mu       sync.Mutex
	settings domain.LLMSettings
	apiKeys  map[domain.AIProvider]string
	services map[string]driven.LLMService
	create   func(*domain.LLMSettings) (driven.LLMService, error)
}

// NewModelProvider creates a provider for the given default LLM settings.
func NewModelProvider(settings domain.LLMSettings, apiKeys map[domain.AIProvider]string) *ModelProvider {
	return &ModelProvider{
		settings: settings,
		apiKeys:  apiKeys,
		services: make(map[string]driven.LLMService),
		create:   CreateLLMService,
	}
}

// LLM returns the service for provider and model, creating it on first use.
func (p *ModelProvider) LLM(provider, model string) (driven.LLMService, error) {
	key := provider + ":" + model

	p.mu.Lock()
	defer p.mu.Unlock()

	if svc, ok := p.services[key]; ok {
		return svc, nil
	}

	settings := p.settingsFor(domain.AIProvider(provider), model)
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: provider %q is not configured", domain.ErrLLMUnavailable, provider)
	}

	svc, err := p.create(&settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil, fmt.Errorf("%w: provider %q is not configured", domain.ErrLLMUnavailable, provider)
	}

	p.services[key] = svc
	return svc, nil
}

func (p *ModelProvider) settingsFor(provider domain.AIProvider, model string) domain.LLMSettings {
	if provider == p.settings.Provider {
		settings := p.settings
		settings.Model = model
		if settings.APIKey == "" {
			settings.APIKey = p.apiKeys[provider]
		}
		return settings
	}
	return domain.LLMSettings{
		Provider:    provider,
		Model:       model,
		APIKey:      p.apiKeys[provider],
		Temperature: p.settings.Temperature,
	}
}

// Close releases every cached service.
func (p *ModelProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, svc := range p.services {
		svc.Close()
		delete(p.services, key)
	}
	return nil
}
