package validate

import (
	"regexp"
	"strings"

	"github.com/keentechcodes/swapwatch/internal/apperr"
)

var addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Address rejects empty or malformed EVM addresses and returns the
// canonical lowercase form on success.
func Address(raw string) (string, error) {
	if raw == "" {
		return "", apperr.Validation("wallet address is required")
	}
	if !addressRe.MatchString(raw) {
		return "", apperr.Validation("wallet address must match ^0x[0-9a-fA-F]{40}$")
	}
	return strings.ToLower(raw), nil
}
