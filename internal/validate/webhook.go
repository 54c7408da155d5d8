package validate

import (
	"net/url"
	"strings"

	"github.com/keentechcodes/swapwatch/internal/apperr"
)

// TelegramWebhook validates an optional external push URL: it must
// parse, use http/https, and have a host containing api.telegram.org.
// Swap text (wallet address, amount) is POSTed to this URL verbatim,
// so the restriction also closes off arbitrary-destination SSRF via
// the room config.
func TelegramWebhook(raw *string) (*string, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	u, err := url.Parse(*raw)
	if err != nil {
		return nil, apperr.Validation("telegram webhook must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, apperr.Validation("telegram webhook must use http or https")
	}
	if !strings.Contains(u.Host, "api.telegram.org") {
		return nil, apperr.Validation("telegram webhook host must contain api.telegram.org")
	}
	v := *raw
	return &v, nil
}
