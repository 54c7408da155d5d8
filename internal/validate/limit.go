package validate

import "github.com/keentechcodes/swapwatch/internal/apperr"

// MaxWallets is the per-room wallet-set size cap.
const MaxWallets = 50

// ListLimit rejects once the current count has reached MaxWallets.
func ListLimit(current int) error {
	if current >= MaxWallets {
		return apperr.Conflict("room has reached the maximum of 50 tracked wallets")
	}
	return nil
}

// NotPresent rejects if addr is already in the list (used by add).
func NotPresent(list []string, addr string) error {
	for _, a := range list {
		if a == addr {
			return apperr.Conflict("wallet is already tracked in this room")
		}
	}
	return nil
}

// Present rejects if addr is absent from the list (used by remove/update).
func Present(list []string, addr string) error {
	for _, a := range list {
		if a == addr {
			return nil
		}
	}
	return apperr.NotFound("wallet is not tracked in this room")
}
