package services

import (
	"fmt"
	"slices"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure ModelRegistry implements the interface.
var _ driving.ModelRegistry = (*ModelRegistry)(nil)

// ModelRegistry holds the generation models offered to clients.
// It is immutable after construction.
type ModelRegistry struct {
	models map[domain.AIProvider][]string
	def    domain.ModelRef
}

// NewModelRegistry creates a registry. The default model is always offered.
func NewModelRegistry(models map[domain.AIProvider][]string, def domain.ModelRef) *ModelRegistry {
	copied := make(map[domain.AIProvider][]string, len(models)+1)
	for provider, names := range models {
		if !provider.IsValid() {
			continue
		}
		copied[provider] = slices.Clone(names)
	}
	if def.Provider.IsValid() && def.Name != "" && !slices.Contains(copied[def.Provider], def.Name) {
		copied[def.Provider] = append(copied[def.Provider], def.Name)
	}
	return &ModelRegistry{models: copied, def: def}
}

// NewModelRegistryFromSettings builds the registry from application settings.
func NewModelRegistryFromSettings(settings domain.AppSettings) *ModelRegistry {
	return NewModelRegistry(settings.Models, domain.ModelRef{
		Provider: settings.LLM.Provider,
		Name:     settings.LLM.Model,
	})
}

// Available returns a copy of the offered models grouped by provider.
func (r *ModelRegistry) Available() map[domain.AIProvider][]string {
	out := make(map[domain.AIProvider][]string, len(r.models))
	for provider, names := range r.models {
		out[provider] = slices.Clone(names)
	}
	return out
}

// Default returns the default model.
func (r *ModelRegistry) Default() domain.ModelRef {
	return r.def
}

// Resolve parses "provider:name". Only the first colon separates the
// provider, so "ollama:qwen2.5:7b" names the model "qwen2.5:7b".
func (r *ModelRegistry) Resolve(model string) (domain.ModelRef, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return r.def, nil
	}

	provider, name, ok := strings.Cut(model, ":")
	if !ok || provider == "" || name == "" {
		return domain.ModelRef{}, fmt.Errorf("%w: %q is not of the form provider:name", domain.ErrUnknownModel, model)
	}

	ref := domain.ModelRef{Provider: domain.AIProvider(provider), Name: name}
	if !slices.Contains(r.models[ref.Provider], name) {
		return domain.ModelRef{}, fmt.Errorf("%w: %s", domain.ErrUnknownModel, model)
	}
	return ref, nil
}
