package validate

import "github.com/keentechcodes/swapwatch/internal/apperr"

const (
	minThreshold = 0.0
	maxThreshold = 1_000_000.0
)

// Threshold validates an optional USD threshold. Absence is not an
// error; an out-of-range value is.
func Threshold(raw *float64) (*float64, error) {
	if raw == nil {
		return nil, nil
	}
	if *raw < minThreshold || *raw > maxThreshold {
		return nil, apperr.Validation("threshold must be between 0 and 1000000")
	}
	v := *raw
	return &v, nil
}
