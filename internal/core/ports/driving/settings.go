package driving

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, with environment overrides applied.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Set updates a single dotted configuration key.
	Set(key, value string) error

	// Validate checks that the settings can serve the configured search mode.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// SettableKeys lists the keys Set accepts, sorted.
	SettableKeys() []string

	// ValidateEmbeddingConfig pings the configured embedding provider.
	ValidateEmbeddingConfig() error

	// ValidateLLMConfig pings the configured LLM provider.
	ValidateLLMConfig() error
}
