// Package telegram sends the external push notification a room's
// notifySwap RPC fires when a swap crosses the configured USD
// threshold. It is a thin HTTP-client wrapper in the shape the
// teacher uses for its outbound API clients (config + timeout +
// *http.Client + logger), not a bespoke one-off client.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/keentechcodes/swapwatch/internal/config"
)

type Client struct {
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(cfg config.TelegramConfig, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type sendMessageRequest struct {
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Push posts text to webhookURL as a Telegram sendMessage payload.
// Failures are logged and swallowed — external push is always
// best-effort and never fails the caller's RPC.
func (c *Client) Push(ctx context.Context, webhookURL, text string) bool {
	body, err := json.Marshal(sendMessageRequest{Text: text, ParseMode: "Markdown"})
	if err != nil {
		c.logger.WithError(err).Error("failed to marshal telegram push payload")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		c.logger.WithError(err).Error("failed to build telegram push request")
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Warn("telegram push failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WithField("status", resp.StatusCode).Warn("telegram push rejected")
		return false
	}
	return true
}

// FormatSwapMessage builds the markdown text for a swap notification:
// shortened address, USD amount, known tokens, and an explorer link.
func FormatSwapMessage(walletAddress, txHash string, tokenIn, tokenOut *string, amountInUsd float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Swap detected*\nWallet: `%s`\nAmount: $%.2f\n", shortenAddress(walletAddress), amountInUsd)
	if tokenIn != nil {
		fmt.Fprintf(&b, "Token in: %s\n", *tokenIn)
	}
	if tokenOut != nil {
		fmt.Fprintf(&b, "Token out: %s\n", *tokenOut)
	}
	if txHash != "" {
		fmt.Fprintf(&b, "[View transaction](https://etherscan.io/tx/%s)", txHash)
	}
	return b.String()
}

func shortenAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
