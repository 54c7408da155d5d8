package room

import "time"

type CreateRoomRequest struct {
	CreatedBy       *string
	Threshold       *float64
	TelegramWebhook *string
}

type ExtendRoomRequest struct {
	Hours *int
}

type AddWalletRequest struct {
	Address string
	Label   *string
}

type UpdateWalletRequest struct {
	Label *string
}

type UpdateConfigRequest struct {
	Threshold       *float64
	TelegramWebhook *string
}

// WalletEntry pairs a tracked address with its optional label.
type WalletEntry struct {
	Address string  `json:"address"`
	Label   *string `json:"label,omitempty"`
}

// RoomSnapshot is the composite read returned by GET /rooms/{code}
// and by the get_room_data WebSocket message — a point-in-time view,
// never authoritative between messages.
type RoomSnapshot struct {
	Code      string            `json:"code"`
	Wallets   []string          `json:"wallets"`
	Labels    map[string]string `json:"labels"`
	CreatedAt time.Time         `json:"createdAt"`
	Presence  PresenceView      `json:"presence"`
}

type PresenceView struct {
	Count int `json:"count"`
}

// SwapEvent is the transient per-transaction payload fanned out from
// the webhook ingress to notifySwap. It is never persisted.
type SwapEvent struct {
	TxHash        string      `json:"txHash"`
	WalletAddress string      `json:"walletAddress"`
	TokenIn       *string     `json:"tokenIn,omitempty"`
	TokenOut      *string     `json:"tokenOut,omitempty"`
	AmountInUsd   float64     `json:"amountInUsd"`
	AmountOutUsd  *float64    `json:"amountOutUsd,omitempty"`
	Timestamp     *time.Time  `json:"timestamp,omitempty"`
	Enrichment    interface{} `json:"enrichment,omitempty"`
}

// NotifySwapResult is the RPC response shape from spec §4.4.
type NotifySwapResult struct {
	Delivered    bool `json:"delivered"`
	TelegramSent bool `json:"telegramSent"`
}
