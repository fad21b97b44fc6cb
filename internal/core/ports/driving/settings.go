package driving

import "github.com/custodia-labs/calsync/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.Settings, error)

	// Keys returns the supported configuration keys, sorted.
	Keys() []string

	// Lookup returns the stored value of a key. set is false when the
	// default applies. Unknown keys return domain.ErrInvalidInput.
	Lookup(key string) (value any, set bool, err error)

	// Set stores a single dotted configuration key.
	Set(key string, value any) error

	// Validate checks the settings are usable for syncing.
	Validate() error
}
