package room

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/keentechcodes/swapwatch/internal/roomstore"
	"github.com/keentechcodes/swapwatch/internal/wsmanager"
)

// Actor is a single-writer unit keyed by room code: every public
// method posts a closure onto an unbuffered mailbox drained by one
// goroutine, giving the serialization spec requires without a mutex
// around room state. This realizes the "goroutine + mailbox channel
// per code" option named explicitly for the per-key actor model.
type Actor struct {
	code     string
	handlers *Handlers
	ws       *wsmanager.Manager
	mailbox  chan func()
	done     chan struct{}
	timer    *time.Timer
	onExpire func(code string)
	logger   *logrus.Logger
}

func newActor(code string, handlers *Handlers, wsMgr *wsmanager.Manager, logger *logrus.Logger, onExpire func(code string)) *Actor {
	a := &Actor{
		code:     code,
		handlers: handlers,
		ws:       wsMgr,
		mailbox:  make(chan func()),
		done:     make(chan struct{}),
		onExpire: onExpire,
		logger:   logger,
	}
	go a.run()
	return a
}

func (a *Actor) run() {
	for {
		select {
		case fn := <-a.mailbox:
			fn()
		case <-a.done:
			return
		}
	}
}

// post runs fn on the actor's serial goroutine and blocks for its
// completion. Every exported Serve*/RPC method below is a thin
// wrapper around post.
func (a *Actor) post(fn func()) {
	done := make(chan struct{})
	select {
	case a.mailbox <- func() { fn(); close(done) }:
		<-done
	case <-a.done:
	}
}

func (a *Actor) stop() {
	close(a.done)
}

func (a *Actor) CreateRoom(ctx context.Context, req CreateRoomRequest) (cfg *roomstore.RoomConfig, err error) {
	a.post(func() {
		cfg, err = a.handlers.CreateRoom(ctx, req)
		if err == nil {
			a.armTimer(cfg.ExpiresAt)
		}
	})
	return
}

func (a *Actor) ExtendRoom(ctx context.Context, req ExtendRoomRequest) (cfg *roomstore.RoomConfig, err error) {
	a.post(func() {
		cfg, err = a.handlers.ExtendRoom(ctx, req)
		if err == nil {
			a.armTimer(cfg.ExpiresAt)
		}
	})
	return
}

func (a *Actor) GetWallets(ctx context.Context) (entries []WalletEntry, err error) {
	a.post(func() { entries, err = a.handlers.GetWallets(ctx) })
	return
}

func (a *Actor) AddWallet(ctx context.Context, req AddWalletRequest) (entry *WalletEntry, err error) {
	a.post(func() { entry, err = a.handlers.AddWallet(ctx, req) })
	return
}

func (a *Actor) RemoveWallet(ctx context.Context, address string) (err error) {
	a.post(func() { err = a.handlers.RemoveWallet(ctx, address) })
	return
}

func (a *Actor) UpdateWallet(ctx context.Context, address string, req UpdateWalletRequest) (entry *WalletEntry, err error) {
	a.post(func() { entry, err = a.handlers.UpdateWallet(ctx, address, req) })
	return
}

func (a *Actor) GetConfig(ctx context.Context) (cfg *roomstore.RoomConfig, err error) {
	a.post(func() { cfg, err = a.handlers.GetConfig(ctx) })
	return
}

func (a *Actor) UpdateConfig(ctx context.Context, req UpdateConfigRequest) (cfg *roomstore.RoomConfig, err error) {
	a.post(func() { cfg, err = a.handlers.UpdateConfig(ctx, req) })
	return
}

func (a *Actor) GetPresence() (presence PresenceView) {
	a.post(func() { presence = a.handlers.GetPresence() })
	return
}

func (a *Actor) Snapshot(ctx context.Context) (snap *RoomSnapshot, err error) {
	a.post(func() { snap, err = a.handlers.Snapshot(ctx) })
	return
}

// Cleanup runs room teardown on the actor's serial goroutine, same as
// every other operation — callers outside the mailbox (the janitor
// sweep) must go through this rather than calling a.handlers.Cleanup
// directly, or teardown could race a concurrently queued request for
// the same room.
func (a *Actor) Cleanup(ctx context.Context) (err error) {
	a.post(func() { err = a.handlers.Cleanup(ctx) })
	return
}

// RPCHasWallet answers a membership test for address. The webhook
// ingress fan-out does not use it and goes straight to RPCNotifySwap.
func (a *Actor) RPCHasWallet(ctx context.Context, address string) (tracked bool, err error) {
	a.post(func() { tracked, err = a.handlers.HasWallet(ctx, address) })
	return
}

func (a *Actor) RPCNotifySwap(ctx context.Context, event SwapEvent) (result NotifySwapResult, err error) {
	a.post(func() { result, err = a.handlers.NotifySwap(ctx, event) })
	return
}

// ServeWebSocket upgrades conn and wires its read pump. Tracking the
// connection and the ensuing presence broadcast happen on the
// actor's goroutine so they're serialized with every other room
// mutation.
func (a *Actor) ServeWebSocket(w http.ResponseWriter, r *http.Request, upgrader websocket.Upgrader) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	a.post(func() {
		sessionID := a.ws.Track(conn)
		a.logger.WithField("room_code", a.code).WithField("session_id", sessionID).Debug("websocket session tracked")
		a.ws.Broadcast(wsmanager.Message{Type: "presence", Data: map[string]int{"count": a.ws.GetCount()}})
	})

	go a.readPump(conn)
}

func (a *Actor) readPump(conn *websocket.Conn) {
	defer func() {
		a.post(func() {
			a.ws.Untrack(conn)
			a.ws.Broadcast(wsmanager.Message{Type: "presence", Data: map[string]int{"count": a.ws.GetCount()}})
		})
	}()

	for {
		var msg wsmanager.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		a.post(func() { a.handleClientMessage(conn, msg) })
	}
}

// handleClientMessage answers ping with pong and get_room_data with
// a point-in-time snapshot, per spec §4.5.
func (a *Actor) handleClientMessage(conn *websocket.Conn, msg wsmanager.Message) {
	switch msg.Type {
	case "ping":
		a.ws.Send(conn, wsmanager.Message{Type: "pong", Data: map[string]int64{"timestamp": time.Now().UnixMilli()}})
	case "get_room_data":
		snap, err := a.handlers.Snapshot(context.Background())
		if err != nil {
			a.logger.WithError(err).Warn("failed to build room snapshot for get_room_data")
			return
		}
		a.ws.Send(conn, wsmanager.Message{Type: "room_data", Data: snap})
	}
}

// armTimer is the scheduled-wake primitive: it (re)arms a
// time.AfterFunc firing cleanup at expiresAt. Registry.RunJanitor is
// the ≤60s-slack fallback for timers that fire while the process is
// between registry lookups.
func (a *Actor) armTimer(expiresAt time.Time) {
	if a.timer != nil {
		a.timer.Stop()
	}
	delay := time.Until(expiresAt)
	if delay < 0 {
		delay = 0
	}
	a.timer = time.AfterFunc(delay, func() {
		if err := a.Cleanup(context.Background()); err != nil {
			a.logger.WithError(err).WithField("room_code", a.code).Error("room cleanup failed")
		}
		if a.onExpire != nil {
			a.onExpire(a.code)
		}
	})
}
