// Package roomstore provides typed, key-spaced persistence for a
// single room. Every exported method is a pure read-modify-write
// against the injected KV; callers (internal/room) are responsible
// for validation and for serializing calls through the owning actor.
package roomstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by KV.Get when the key is absent. Room
// methods translate it into zero-value results rather than bubbling
// it up, since an absent key means "room never wrote this yet", not
// a failure.
var ErrNotFound = errors.New("roomstore: key not found")

// KV is the dependency-injected store both RedisStore and the test
// fake implement.
type KV interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Del(ctx context.Context, keys ...string) error
}

// RoomConfig is the persisted `config` key for a room.
type RoomConfig struct {
	CreatedBy       *string   `json:"createdBy,omitempty"`
	Threshold       *float64  `json:"threshold,omitempty"`
	TelegramWebhook *string   `json:"telegramWebhook,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

// ConfigPatch carries only the fields updateConfig should overwrite;
// a nil field is left untouched (there is no way to explicitly clear
// threshold/telegramWebhook through a patch — a new room must be
// created to do that, matching the teacher's merge-by-overwrite
// convention in services/room).
type ConfigPatch struct {
	Threshold       *float64
	TelegramWebhook *string
}

// Room wraps a KV plus the room code that namespaces every key it
// touches.
type Room struct {
	kv   KV
	code string
}

func NewRoom(kv KV, code string) *Room {
	return &Room{kv: kv, code: code}
}

func (r *Room) GetWallets(ctx context.Context) ([]string, error) {
	var wallets []string
	if err := r.kv.Get(ctx, walletsKey(r.code), &wallets); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []string{}, nil
		}
		return nil, err
	}
	return wallets, nil
}

func (r *Room) setWallets(ctx context.Context, wallets []string) error {
	return r.kv.Set(ctx, walletsKey(r.code), wallets)
}

// AddWallet appends addr to the wallet list. Callers must already
// have validated uniqueness and the 50-wallet cap.
func (r *Room) AddWallet(ctx context.Context, addr string) error {
	wallets, err := r.GetWallets(ctx)
	if err != nil {
		return err
	}
	wallets = append(wallets, addr)
	return r.setWallets(ctx, wallets)
}

// RemoveWallet drops addr from the wallet list and clears its label.
func (r *Room) RemoveWallet(ctx context.Context, addr string) error {
	wallets, err := r.GetWallets(ctx)
	if err != nil {
		return err
	}
	filtered := wallets[:0]
	for _, w := range wallets {
		if w != addr {
			filtered = append(filtered, w)
		}
	}
	if err := r.setWallets(ctx, filtered); err != nil {
		return err
	}
	return r.SetLabel(ctx, addr, nil)
}

func (r *Room) GetLabels(ctx context.Context) (map[string]string, error) {
	labels := map[string]string{}
	if err := r.kv.Get(ctx, labelsKey(r.code), &labels); err != nil {
		if errors.Is(err, ErrNotFound) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return labels, nil
}

// SetLabel sets addr's label, or clears it when label is nil.
func (r *Room) SetLabel(ctx context.Context, addr string, label *string) error {
	labels, err := r.GetLabels(ctx)
	if err != nil {
		return err
	}
	if label == nil {
		delete(labels, addr)
	} else {
		labels[addr] = *label
	}
	return r.kv.Set(ctx, labelsKey(r.code), labels)
}

func (r *Room) GetConfig(ctx context.Context) (*RoomConfig, error) {
	cfg := &RoomConfig{}
	if err := r.kv.Get(ctx, configKey(r.code), cfg); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return cfg, nil
}

func (r *Room) SetConfig(ctx context.Context, cfg *RoomConfig) error {
	return r.kv.Set(ctx, configKey(r.code), cfg)
}

// UpdateConfig merges patch into the existing config, creating a
// default config that expires defaultLifetime from now if none
// exists yet.
func (r *Room) UpdateConfig(ctx context.Context, patch ConfigPatch, defaultLifetime time.Duration) (*RoomConfig, error) {
	cfg, err := r.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		now := time.Now()
		cfg = &RoomConfig{CreatedAt: now, ExpiresAt: now.Add(defaultLifetime)}
	}
	if patch.Threshold != nil {
		cfg.Threshold = patch.Threshold
	}
	if patch.TelegramWebhook != nil {
		cfg.TelegramWebhook = patch.TelegramWebhook
	}
	if err := r.SetConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *Room) SetAlarm(ctx context.Context, at time.Time) error {
	return r.kv.Set(ctx, alarmKey(r.code), at)
}

func (r *Room) DeleteAlarm(ctx context.Context) error {
	return r.kv.Del(ctx, alarmKey(r.code))
}

// DeleteAll clears every key this room owns.
func (r *Room) DeleteAll(ctx context.Context) error {
	return r.kv.Del(ctx, walletsKey(r.code), labelsKey(r.code), configKey(r.code), alarmKey(r.code))
}
