// Package room implements the per-room handlers (pure factory over
// validators + storage + WebSocket manager) and the single-writer
// actor that serializes them.
package room

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/keentechcodes/swapwatch/internal/apperr"
	"github.com/keentechcodes/swapwatch/internal/audit"
	"github.com/keentechcodes/swapwatch/internal/metrics"
	"github.com/keentechcodes/swapwatch/internal/roomstore"
	"github.com/keentechcodes/swapwatch/internal/telegram"
	"github.com/keentechcodes/swapwatch/internal/validate"
	"github.com/keentechcodes/swapwatch/internal/walletindex"
	"github.com/keentechcodes/swapwatch/internal/wsmanager"
)

// Handlers orchestrates validators, storage, the WebSocket manager,
// and the audit sink to implement one room's public operations. It
// holds no concurrency primitives of its own — the owning Actor is
// solely responsible for serializing calls into it.
type Handlers struct {
	code            string
	store           *roomstore.Room
	ws              *wsmanager.Manager
	audit           audit.Sink
	telegram        *telegram.Client
	index           *walletindex.Index
	defaultLifetime time.Duration
	logger          *logrus.Logger
}

func NewHandlers(code string, store *roomstore.Room, ws *wsmanager.Manager, auditSink audit.Sink, tg *telegram.Client, index *walletindex.Index, defaultLifetime time.Duration, logger *logrus.Logger) *Handlers {
	return &Handlers{
		code:            code,
		store:           store,
		ws:              ws,
		audit:           auditSink,
		telegram:        tg,
		index:           index,
		defaultLifetime: defaultLifetime,
		logger:          logger,
	}
}

// CreateRoom is idempotent: a room code that already has a config is
// left untouched and its existing config is returned, rather than
// erroring or clobbering an in-flight room's state.
func (h *Handlers) CreateRoom(ctx context.Context, req CreateRoomRequest) (*roomstore.RoomConfig, error) {
	existing, err := h.store.GetConfig(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to read room config", err)
	}
	if existing != nil {
		return existing, nil
	}

	threshold, err := validate.Threshold(req.Threshold)
	if err != nil {
		return nil, err
	}
	webhook, err := validate.TelegramWebhook(req.TelegramWebhook)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	cfg := &roomstore.RoomConfig{
		CreatedBy:       req.CreatedBy,
		Threshold:       threshold,
		TelegramWebhook: webhook,
		CreatedAt:       now,
		ExpiresAt:       now.Add(h.defaultLifetime),
	}
	if err := h.store.SetConfig(ctx, cfg); err != nil {
		return nil, apperr.Internal("failed to persist room config", err)
	}
	if err := h.store.SetAlarm(ctx, cfg.ExpiresAt); err != nil {
		return nil, apperr.Internal("failed to arm room alarm", err)
	}

	h.audit.Record(ctx, h.code, audit.EventCreated, map[string]interface{}{"expiresAt": cfg.ExpiresAt})
	metrics.RoomsActive.Inc()
	return cfg, nil
}

func (h *Handlers) ExtendRoom(ctx context.Context, req ExtendRoomRequest) (*roomstore.RoomConfig, error) {
	hours, err := validate.ExtensionHours(req.Hours)
	if err != nil {
		return nil, err
	}

	cfg, err := h.store.GetConfig(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to read room config", err)
	}
	if cfg == nil {
		return nil, apperr.NotFound("room does not exist")
	}

	cfg.ExpiresAt = time.Now().Add(time.Duration(hours) * time.Hour)
	if err := h.store.SetConfig(ctx, cfg); err != nil {
		return nil, apperr.Internal("failed to persist room config", err)
	}
	if err := h.store.SetAlarm(ctx, cfg.ExpiresAt); err != nil {
		return nil, apperr.Internal("failed to re-arm room alarm", err)
	}

	h.audit.Record(ctx, h.code, audit.EventExtended, map[string]interface{}{"expiresAt": cfg.ExpiresAt})
	return cfg, nil
}

// GetWallets returns each tracked address paired with its optional
// label, in insertion order.
func (h *Handlers) GetWallets(ctx context.Context) ([]WalletEntry, error) {
	wallets, err := h.store.GetWallets(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to read wallets", err)
	}
	labels, err := h.store.GetLabels(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to read labels", err)
	}

	entries := make([]WalletEntry, 0, len(wallets))
	for _, addr := range wallets {
		entry := WalletEntry{Address: addr}
		if label, ok := labels[addr]; ok {
			l := label
			entry.Label = &l
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (h *Handlers) AddWallet(ctx context.Context, req AddWalletRequest) (*WalletEntry, error) {
	addr, err := validate.Address(req.Address)
	if err != nil {
		return nil, err
	}
	label, err := validate.Label(req.Label)
	if err != nil {
		return nil, err
	}

	wallets, err := h.store.GetWallets(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to read wallets", err)
	}
	if err := validate.NotPresent(wallets, addr); err != nil {
		return nil, err
	}
	if err := validate.ListLimit(len(wallets)); err != nil {
		return nil, err
	}

	if err := h.store.AddWallet(ctx, addr); err != nil {
		return nil, apperr.Internal("failed to persist wallet", err)
	}
	if label != nil {
		if err := h.store.SetLabel(ctx, addr, label); err != nil {
			return nil, apperr.Internal("failed to persist label", err)
		}
	}

	entry := WalletEntry{Address: addr, Label: label}
	h.ws.Broadcast(wsmanager.Message{Type: "wallet_added", Data: entry})
	return &entry, nil
}

func (h *Handlers) RemoveWallet(ctx context.Context, address string) error {
	addr, err := validate.Address(address)
	if err != nil {
		return err
	}

	wallets, err := h.store.GetWallets(ctx)
	if err != nil {
		return apperr.Internal("failed to read wallets", err)
	}
	if err := validate.Present(wallets, addr); err != nil {
		return err
	}

	if err := h.store.RemoveWallet(ctx, addr); err != nil {
		return apperr.Internal("failed to remove wallet", err)
	}

	h.ws.Broadcast(wsmanager.Message{Type: "wallet_removed", Data: map[string]string{"address": addr}})
	return nil
}

func (h *Handlers) UpdateWallet(ctx context.Context, address string, req UpdateWalletRequest) (*WalletEntry, error) {
	addr, err := validate.Address(address)
	if err != nil {
		return nil, err
	}

	wallets, err := h.store.GetWallets(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to read wallets", err)
	}
	if err := validate.Present(wallets, addr); err != nil {
		return nil, err
	}

	label, err := validate.Label(req.Label)
	if err != nil {
		return nil, err
	}
	if err := h.store.SetLabel(ctx, addr, label); err != nil {
		return nil, apperr.Internal("failed to persist label", err)
	}

	entry := WalletEntry{Address: addr, Label: label}
	h.ws.Broadcast(wsmanager.Message{Type: "wallet_updated", Data: entry})
	return &entry, nil
}

func (h *Handlers) GetConfig(ctx context.Context) (*roomstore.RoomConfig, error) {
	cfg, err := h.store.GetConfig(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to read room config", err)
	}
	if cfg == nil {
		return &roomstore.RoomConfig{}, nil
	}
	return cfg, nil
}

func (h *Handlers) UpdateConfig(ctx context.Context, req UpdateConfigRequest) (*roomstore.RoomConfig, error) {
	threshold, err := validate.Threshold(req.Threshold)
	if err != nil {
		return nil, err
	}
	webhook, err := validate.TelegramWebhook(req.TelegramWebhook)
	if err != nil {
		return nil, err
	}

	cfg, err := h.store.UpdateConfig(ctx, roomstore.ConfigPatch{Threshold: threshold, TelegramWebhook: webhook}, h.defaultLifetime)
	if err != nil {
		return nil, apperr.Internal("failed to update room config", err)
	}

	redacted := map[string]interface{}{"threshold": cfg.Threshold}
	if cfg.TelegramWebhook != nil {
		redacted["telegramWebhook"] = "***"
	}
	h.ws.Broadcast(wsmanager.Message{Type: "config_updated", Data: redacted})
	return cfg, nil
}

func (h *Handlers) GetPresence() PresenceView {
	return PresenceView{Count: h.ws.GetCount()}
}

func (h *Handlers) HasWallet(ctx context.Context, address string) (bool, error) {
	addr, err := validate.Address(address)
	if err != nil {
		return false, err
	}
	wallets, err := h.store.GetWallets(ctx)
	if err != nil {
		return false, apperr.Internal("failed to read wallets", err)
	}
	for _, w := range wallets {
		if w == addr {
			return true, nil
		}
	}
	return false, nil
}

// NotifySwap broadcasts event to every WebSocket session and,
// when the room has a telegram webhook and an explicit threshold
// that event.AmountInUsd meets or exceeds, pushes an external
// notification. An absent threshold means never push — the source's
// ambiguity is resolved explicitly in this direction.
func (h *Handlers) NotifySwap(ctx context.Context, event SwapEvent) (NotifySwapResult, error) {
	broadcastCount := h.ws.GetCount()
	h.ws.Broadcast(wsmanager.Message{Type: "swap", Data: event})

	result := NotifySwapResult{Delivered: broadcastCount > 0}

	cfg, err := h.store.GetConfig(ctx)
	if err != nil {
		metrics.SwapEventsFannedOut.WithLabelValues("error").Inc()
		return result, apperr.Internal("failed to read room config", err)
	}

	if cfg != nil && cfg.TelegramWebhook != nil && cfg.Threshold != nil && event.AmountInUsd >= *cfg.Threshold {
		text := telegram.FormatSwapMessage(event.WalletAddress, event.TxHash, event.TokenIn, event.TokenOut, event.AmountInUsd)
		result.TelegramSent = h.telegram.Push(ctx, *cfg.TelegramWebhook, text)
	}

	metrics.SwapEventsFannedOut.WithLabelValues("ok").Inc()
	return result, nil
}

// Cleanup mass-closes every WebSocket session, deletes all storage,
// prunes the room from the shared wallet index, and clears the alarm.
// It is unconditional: once invoked, the room is gone, and subsequent
// operations on this Handlers must not be made (the owning Registry
// removes it from lookup).
func (h *Handlers) Cleanup(ctx context.Context) error {
	h.ws.CloseAll(1000, "Room expired")
	if err := h.store.DeleteAll(ctx); err != nil {
		return apperr.Internal("failed to clear room storage", err)
	}
	if err := h.index.CleanupRoomIndex(ctx, h.code); err != nil {
		h.logger.WithError(err).WithField("room_code", h.code).Warn("failed to prune wallet index for destroyed room")
	}
	h.audit.Record(ctx, h.code, audit.EventDestroyed, nil)
	metrics.RoomsActive.Dec()
	return nil
}

// Snapshot builds the composite read for GET /rooms/{code} and for
// the get_room_data WebSocket message. It is a point-in-time view,
// never authoritative against subsequent incremental messages.
func (h *Handlers) Snapshot(ctx context.Context) (*RoomSnapshot, error) {
	wallets, err := h.store.GetWallets(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to read wallets", err)
	}
	labels, err := h.store.GetLabels(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to read labels", err)
	}
	cfg, err := h.store.GetConfig(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to read room config", err)
	}

	snapshot := &RoomSnapshot{
		Code:     h.code,
		Wallets:  wallets,
		Labels:   labels,
		Presence: h.GetPresence(),
	}
	if cfg != nil {
		snapshot.CreatedAt = cfg.CreatedAt
	}
	return snapshot, nil
}
