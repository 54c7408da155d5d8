// Package filtersync reconciles the upstream webhook provider's
// address filter with the union of wallets currently tracked by any
// room. The gateway triggers it after each successful wallet add or
// remove index write; the index prune during room cleanup does not
// trigger it. It is always best-effort: failures are logged, never
// propagated to the write that triggered them.
package filtersync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/keentechcodes/swapwatch/internal/config"
	"github.com/keentechcodes/swapwatch/internal/metrics"
)

// WalletUnion is the slice of walletindex.Index filtersync needs.
type WalletUnion interface {
	AllTrackedWallets(ctx context.Context) ([]string, error)
}

type Syncer struct {
	cfg        config.FilterSyncConfig
	wallets    WalletUnion
	httpClient *http.Client
	logger     *logrus.Logger
}

func New(cfg config.FilterSyncConfig, wallets WalletUnion, logger *logrus.Logger) *Syncer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Syncer{
		cfg:        cfg,
		wallets:    wallets,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type patchBody struct {
	Filters struct {
		Addresses []string `json:"addresses"`
	} `json:"filters"`
}

// Sync recomputes the union of tracked wallets and PATCHes the
// upstream filter. It never returns an error: missing credentials
// and an empty wallet set skip silently, and a wallet-listing,
// request-building, network or non-2xx failure is logged and
// swallowed, per spec §4.8.
func (s *Syncer) Sync(ctx context.Context) {
	if s.cfg.KeyName == "" || s.cfg.PrivateKey == "" || s.cfg.BaseURL == "" {
		return
	}

	wallets, err := s.wallets.AllTrackedWallets(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("filter sync failed to list tracked wallets")
		metrics.FilterSyncFailures.Inc()
		return
	}
	if len(wallets) == 0 {
		return
	}
	sort.Strings(wallets)

	var body patchBody
	body.Filters.Addresses = wallets
	payload, err := json.Marshal(body)
	if err != nil {
		s.logger.WithError(err).Warn("filter sync failed to marshal request body")
		metrics.FilterSyncFailures.Inc()
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, s.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		s.logger.WithError(err).Warn("filter sync failed to build request")
		metrics.FilterSyncFailures.Inc()
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("CB-ACCESS-KEY", s.cfg.KeyName)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.cfg.PrivateKey))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.WithError(err).Warn("filter sync request failed")
		metrics.FilterSyncFailures.Inc()
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.WithField("status", resp.StatusCode).Warn("filter sync rejected by upstream")
		metrics.FilterSyncFailures.Inc()
		return
	}
}
