package room

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/keentechcodes/swapwatch/internal/audit"
	"github.com/keentechcodes/swapwatch/internal/roomstore"
	"github.com/keentechcodes/swapwatch/internal/telegram"
	"github.com/keentechcodes/swapwatch/internal/walletindex"
	"github.com/keentechcodes/swapwatch/internal/wsmanager"
)

// Registry is the process-wide map of room code to Actor, realizing
// "exactly one actor per code". The RWMutex guards only the map
// itself, never room state — that's the actor's job.
type Registry struct {
	mu              sync.RWMutex
	actors          map[string]*Actor
	kv              roomstore.KV
	audit           audit.Sink
	telegram        *telegram.Client
	index           *walletindex.Index
	defaultLifetime time.Duration
	logger          *logrus.Logger
}

func NewRegistry(kv roomstore.KV, auditSink audit.Sink, tg *telegram.Client, index *walletindex.Index, defaultLifetime time.Duration, logger *logrus.Logger) *Registry {
	return &Registry{
		actors:          make(map[string]*Actor),
		kv:              kv,
		audit:           auditSink,
		telegram:        tg,
		index:           index,
		defaultLifetime: defaultLifetime,
		logger:          logger,
	}
}

// GetOrCreate returns the actor for code, constructing it (and its
// storage/WebSocket manager/handlers bundle) on first access. It
// never checks whether the room has been createRoom'd — that's the
// first operation dispatched to it.
func (r *Registry) GetOrCreate(code string) *Actor {
	r.mu.RLock()
	a, ok := r.actors[code]
	r.mu.RUnlock()
	if ok {
		return a
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.actors[code]; ok {
		return a
	}

	store := roomstore.NewRoom(r.kv, code)
	wsMgr := wsmanager.NewManager(r.logger)
	handlers := NewHandlers(code, store, wsMgr, r.audit, r.telegram, r.index, r.defaultLifetime, r.logger)
	a = newActor(code, handlers, wsMgr, r.logger, r.remove)
	r.actors[code] = a
	return a
}

// Get returns the actor for code without creating one, for handlers
// whose spec semantics require NotFound on a nonexistent room
// (extend, wallet ops, config, presence, RPCs).
func (r *Registry) Get(code string) (*Actor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actors[code]
	return a, ok
}

func (r *Registry) remove(code string) {
	r.mu.Lock()
	a, ok := r.actors[code]
	if ok {
		delete(r.actors, code)
	}
	r.mu.Unlock()
	if ok {
		a.stop()
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actors)
}

// RunJanitor is the documented ≤60s-slack fallback sweep: besides
// the per-actor time.AfterFunc, it periodically re-checks every
// room's config for an expiresAt in the past, in case a timer fired
// while the process was between registry lookups (e.g. after a
// restart re-registers an actor with a stale in-memory timer).
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Registry) sweep(ctx context.Context) {
	r.mu.RLock()
	codes := make([]string, 0, len(r.actors))
	actors := make([]*Actor, 0, len(r.actors))
	for code, a := range r.actors {
		codes = append(codes, code)
		actors = append(actors, a)
	}
	r.mu.RUnlock()

	now := time.Now()
	for i, a := range actors {
		cfg, err := a.GetConfig(ctx)
		if err != nil || cfg == nil {
			continue
		}
		if !cfg.ExpiresAt.IsZero() && cfg.ExpiresAt.Before(now) {
			r.logger.WithField("room_code", codes[i]).Warn("janitor reaping room past expiresAt")
			if err := a.Cleanup(ctx); err != nil {
				r.logger.WithError(err).WithField("room_code", codes[i]).Error("janitor cleanup failed")
			}
			r.remove(codes[i])
		}
	}
}
