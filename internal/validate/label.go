package validate

import (
	"strings"

	"github.com/keentechcodes/swapwatch/internal/apperr"
)

const maxLabelLen = 100

// Label trims and validates an optional label. An absent or
// whitespace-only label is treated as absence (nil, nil).
func Label(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil, nil
	}
	if len(trimmed) > maxLabelLen {
		return nil, apperr.Validation("label must be at most 100 characters")
	}
	return &trimmed, nil
}
