package driving

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// SettingsService reads and changes the persisted settings.
type SettingsService interface {
	Get() (*domain.AppSettings, error)
	Save(settings *domain.AppSettings) error

	// Set parses value for key ("rag.min_score", "0.3"), validates the result
	// and saves it. Unknown keys are domain.ErrInvalidInput.
	Set(key, value string) error

	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig and ValidateLLMConfig check the saved providers
	// against the live services.
	ValidateEmbeddingConfig() error
	ValidateLLMConfig() error
}
