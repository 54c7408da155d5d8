// Package walletindex maintains the shared bi-directional mapping
// between wallet addresses and the room codes tracking them. All
// writes are set-like (SADD/SREM) so divergence between the two
// sides heals on the next write, never via cross-key transactions.
package walletindex

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"
)

// roomKey deliberately does not collide with roomstore's
// room:<code>:wallets key (a JSON blob written via SET) — this
// package treats its key as a Redis set via SADD/SREM, and the two
// would WRONGTYPE against each other on the same keyspace.
func walletKey(addr string) string { return fmt.Sprintf("wallet:%s:rooms", addr) }
func roomKey(code string) string   { return fmt.Sprintf("roomwallets:%s", code) }

// setStore is the slice of the Redis client walletindex needs.
// pkg/redis.Client satisfies it directly (the embedded *redis.Client
// provides SAdd/SRem/SMembers/Del, and ScanKeys is its own SCAN
// helper); tests use an in-memory fake.
type setStore interface {
	SAdd(ctx context.Context, key string, members ...interface{}) *goredis.IntCmd
	SRem(ctx context.Context, key string, members ...interface{}) *goredis.IntCmd
	SMembers(ctx context.Context, key string) *goredis.StringSliceCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
}

// WalletIndexEntry is the JSON view shape of one wallet's index
// entry. No Index method builds or returns it; the underlying Redis
// sets carry no timestamp of their own.
type WalletIndexEntry struct {
	Wallet      string    `json:"wallet"`
	Rooms       []string  `json:"rooms"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type RoomIndexEntry struct {
	Code        string    `json:"code"`
	Wallets     []string  `json:"wallets"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type Index struct {
	client setStore
}

func New(client setStore) *Index {
	return &Index{client: client}
}

// AddWalletToRoom adds code to the wallet's room set and addr to the
// room's wallet set, both idempotently. The two writes run
// concurrently via errgroup since they touch unrelated keys and
// there is no cross-key transaction requirement.
func (i *Index) AddWalletToRoom(ctx context.Context, addr, code string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return i.client.SAdd(gctx, walletKey(addr), code).Err() })
	g.Go(func() error { return i.client.SAdd(gctx, roomKey(code), addr).Err() })
	return g.Wait()
}

// RemoveWalletFromRoom removes code from the wallet's room set and
// addr from the room's wallet set. Empty sets are left for Redis to
// garbage-collect (SREM on the last member deletes the key).
func (i *Index) RemoveWalletFromRoom(ctx context.Context, addr, code string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return i.client.SRem(gctx, walletKey(addr), code).Err() })
	g.Go(func() error { return i.client.SRem(gctx, roomKey(code), addr).Err() })
	return g.Wait()
}

func (i *Index) GetRoomsForWallet(ctx context.Context, addr string) ([]string, error) {
	rooms, err := i.client.SMembers(ctx, walletKey(addr)).Result()
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (i *Index) GetWalletsForRoom(ctx context.Context, code string) ([]string, error) {
	wallets, err := i.client.SMembers(ctx, roomKey(code)).Result()
	if err != nil {
		return nil, err
	}
	return wallets, nil
}

// CleanupRoomIndex removes code from every wallet it's tracked
// against, then drops the room's own wallet set.
func (i *Index) CleanupRoomIndex(ctx context.Context, code string) error {
	wallets, err := i.GetWalletsForRoom(ctx, code)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, addr := range wallets {
		addr := addr
		g.Go(func() error { return i.client.SRem(gctx, walletKey(addr), code).Err() })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return i.client.Del(ctx, roomKey(code)).Err()
}

// AllTrackedWallets lists every key under the wallet: prefix and
// derives the set of unique addresses with at least one tracking
// room, for Filter Sync to reconcile upstream. A wallet's key only
// exists while its room set is non-empty, so this is exactly the
// union of wallets currently tracked anywhere.
func (i *Index) AllTrackedWallets(ctx context.Context) ([]string, error) {
	keys, err := i.client.ScanKeys(ctx, "wallet:*:rooms")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		addr := strings.TrimSuffix(strings.TrimPrefix(key, "wallet:"), ":rooms")
		seen[addr] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	return out, nil
}
