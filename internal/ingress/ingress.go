// Package ingress implements the webhook pipeline: signature
// verification, wallet extraction, wallet-index lookup, and parallel
// per-room RPC fan-out.
package ingress

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/keentechcodes/swapwatch/internal/apperr"
	"github.com/keentechcodes/swapwatch/internal/room"
)

// RoomDispatcher is the slice of room.Registry ingress needs —
// looking a room up without creating one, since a webhook must never
// spin up a room the gateway never created.
type RoomDispatcher interface {
	Get(code string) (*room.Actor, bool)
}

// WalletLookup is the slice of walletindex.Index ingress needs.
type WalletLookup interface {
	GetRoomsForWallet(ctx context.Context, addr string) ([]string, error)
}

type Ingress struct {
	signingSecret string
	rooms         RoomDispatcher
	index         WalletLookup
	logger        *logrus.Logger
}

func New(signingSecret string, rooms RoomDispatcher, index WalletLookup, logger *logrus.Logger) *Ingress {
	return &Ingress{signingSecret: signingSecret, rooms: rooms, index: index, logger: logger}
}

// RoomResult is one room's outcome from a fan-out, returned in the
// ingress response's `details` field without failing the request.
type RoomResult struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ProcessResult is the webhook response body for a successfully
// authenticated request (status "processed" or "ignored").
type ProcessResult struct {
	Status        string       `json:"status"`
	WalletAddress string       `json:"walletAddress,omitempty"`
	Message       string       `json:"message,omitempty"`
	RoomsNotified int          `json:"roomsNotified,omitempty"`
	TotalRooms    int          `json:"totalRooms,omitempty"`
	Details       []RoomResult `json:"details,omitempty"`
}

// VerifySignature is a constant-time HMAC-SHA256 check. A naive
// string equality here would be a vulnerability, not a style issue.
func (i *Ingress) VerifySignature(body []byte, signatureHex string) bool {
	if signatureHex == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(i.signingSecret))
	mac.Write(body)
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(strings.ToLower(signatureHex))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(expected, provided) == 1
}

// ExtractWalletAddress decodes body as JSON and probes, in order,
// from, to, walletAddress, addresses[0]. Returns ("", false) if none
// is present.
func ExtractWalletAddress(body []byte) (string, bool) {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}

	if v, ok := stringField(payload, "from"); ok {
		return v, true
	}
	if v, ok := stringField(payload, "to"); ok {
		return v, true
	}
	if v, ok := stringField(payload, "walletAddress"); ok {
		return v, true
	}
	if addrs, ok := payload["addresses"].([]interface{}); ok && len(addrs) > 0 {
		if v, ok := addrs[0].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func stringField(payload map[string]interface{}, key string) (string, bool) {
	v, ok := payload[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Process runs steps 3-6 of the pipeline: it assumes the signature
// has already been verified by the caller (the HTTP adapter, so a
// 401 can be returned before any of this work happens).
func (i *Ingress) Process(ctx context.Context, body []byte) (*ProcessResult, error) {
	addr, ok := ExtractWalletAddress(body)
	if !ok {
		return &ProcessResult{Status: "ignored", Message: "No wallet address found"}, nil
	}
	addr = strings.ToLower(addr)

	codes, err := i.index.GetRoomsForWallet(ctx, addr)
	if err != nil {
		return nil, apperr.Internal("failed to query wallet index", err)
	}
	if len(codes) == 0 {
		return &ProcessResult{Status: "ignored", WalletAddress: addr, Message: "No rooms tracking this wallet"}, nil
	}

	event := room.SwapEvent{WalletAddress: addr}
	if err := json.Unmarshal(body, &event); err != nil {
		i.logger.WithError(err).Debug("webhook body did not decode into a swap event, using bare wallet address")
	}
	event.WalletAddress = addr
	if event.Timestamp == nil {
		now := time.Now()
		event.Timestamp = &now
	}

	results := make([]RoomResult, len(codes))
	g, gctx := errgroup.WithContext(ctx)
	for idx, code := range codes {
		idx, code := idx, code
		g.Go(func() error {
			results[idx] = i.notifyRoom(gctx, code, event)
			return nil
		})
	}
	_ = g.Wait()

	notified := 0
	for _, r := range results {
		if r.Status == "ok" {
			notified++
		}
	}

	return &ProcessResult{
		Status:        "processed",
		WalletAddress: addr,
		RoomsNotified: notified,
		TotalRooms:    len(codes),
		Details:       results,
	}, nil
}

func (i *Ingress) notifyRoom(ctx context.Context, code string, event room.SwapEvent) RoomResult {
	actor, ok := i.rooms.Get(code)
	if !ok {
		return RoomResult{Code: code, Status: "error", Error: "room not found"}
	}

	if _, err := actor.RPCNotifySwap(ctx, event); err != nil {
		i.logger.WithError(err).WithField("room_code", code).Warn("notifySwap RPC failed")
		return RoomResult{Code: code, Status: "error", Error: err.Error()}
	}
	return RoomResult{Code: code, Status: "ok"}
}
