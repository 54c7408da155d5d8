package validate

import "github.com/keentechcodes/swapwatch/internal/apperr"

const (
	defaultLifetimeHours = 24
	maxExtensionHours    = 48
)

// ExtensionHours defaults a missing value to 24h and rejects anything
// outside (0, 48].
func ExtensionHours(raw *int) (int, error) {
	if raw == nil {
		return defaultLifetimeHours, nil
	}
	hours := *raw
	if hours <= 0 || hours > maxExtensionHours {
		return 0, apperr.Validation("extension hours must be in (0, 48]")
	}
	return hours, nil
}
