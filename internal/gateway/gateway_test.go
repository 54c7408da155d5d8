package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keentechcodes/swapwatch/internal/audit"
	"github.com/keentechcodes/swapwatch/internal/config"
	"github.com/keentechcodes/swapwatch/internal/ingress"
	"github.com/keentechcodes/swapwatch/internal/room"
	"github.com/keentechcodes/swapwatch/internal/roomstore"
	"github.com/keentechcodes/swapwatch/internal/telegram"
	"github.com/keentechcodes/swapwatch/internal/walletindex"
)

type fakeKV struct {
	data map[string][]byte
}

func newFakeKV() *fakeKV { return &fakeKV{data: make(map[string][]byte)} }

func (f *fakeKV) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := f.data[key]
	if !ok {
		return roomstore.ErrNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeKV) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = raw
	return nil
}

func (f *fakeKV) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, string, audit.EventType, map[string]interface{}) {}

// memSetStore is an in-memory stand-in for the Redis set operations
// walletindex needs, mirroring walletindex's own test fake since no
// fake-Redis library exists in the dependency set.
type memSetStore struct {
	mu   sync.Mutex
	sets map[string]map[string]struct{}
}

func (f *memSetStore) SAdd(ctx context.Context, key string, members ...interface{}) *goredis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.sets[key]
	if !ok {
		set = make(map[string]struct{})
		f.sets[key] = set
	}
	for _, m := range members {
		set[m.(string)] = struct{}{}
	}
	cmd := goredis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(members)))
	return cmd
}

func (f *memSetStore) SRem(ctx context.Context, key string, members ...interface{}) *goredis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if set, ok := f.sets[key]; ok {
		for _, m := range members {
			delete(set, m.(string))
		}
		if len(set) == 0 {
			delete(f.sets, key)
		}
	}
	cmd := goredis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(members)))
	return cmd
}

func (f *memSetStore) SMembers(ctx context.Context, key string) *goredis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for m := range f.sets[key] {
		out = append(out, m)
	}
	cmd := goredis.NewStringSliceCmd(ctx)
	cmd.SetVal(out)
	return cmd
}

func (f *memSetStore) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.sets, k)
	}
	cmd := goredis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func (f *memSetStore) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range f.sets {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newTestGateway(t *testing.T) (*Gateway, *room.Registry) {
	t.Helper()
	logger := testLogger()
	kv := newFakeKV()
	tg := telegram.NewClient(config.TelegramConfig{Timeout: time.Second}, logger)
	idx := walletindex.New(newRealSetStoreFake())
	registry := room.NewRegistry(kv, noopAudit{}, tg, idx, 24*time.Hour, logger)

	ing := ingress.New("test-secret", registry, idx, logger)

	cfg := &config.Config{}
	cfg.Server.Mode = "test"
	cfg.RateLimit.RequestsPerSecond = 1000
	cfg.RateLimit.Burst = 1000
	cfg.WebSocket.ReadBufferSize = 1024
	cfg.WebSocket.WriteBufferSize = 1024

	gw := New(cfg, registry, idx, ing, logger, func() {})
	return gw, registry
}

// newRealSetStoreFake satisfies walletindex's unexported setStore
// interface structurally via an in-memory map, mirroring the fake
// used in walletindex's own package tests.
func newRealSetStoreFake() *memSetStore {
	return &memSetStore{sets: make(map[string]map[string]struct{})}
}

func TestCreateThenGetRoomRoundTrips(t *testing.T) {
	gw, _ := newTestGateway(t)

	body, _ := json.Marshal(map[string]interface{}{"code": "ABC123"})
	req := httptest.NewRequest(http.MethodPost, "/rooms", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	gw.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/rooms/ABC123", nil)
	rec = httptest.NewRecorder()
	gw.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap room.RoomSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "ABC123", snap.Code)
	assert.Empty(t, snap.Wallets)
}

func TestGetRoomNotFoundForUnknownCode(t *testing.T) {
	gw, _ := newTestGateway(t)

	req := httptest.NewRequest(http.MethodGet, "/rooms/NOPE99", nil)
	rec := httptest.NewRecorder()
	gw.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddWalletRejectsInvalidRoomCode(t *testing.T) {
	gw, _ := newTestGateway(t)

	body, _ := json.Marshal(map[string]interface{}{"address": "0x1234567890123456789012345678901234567890"})
	req := httptest.NewRequest(http.MethodPost, "/rooms/bad_code/wallets", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	gw.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddWalletThenWebhookFansOutToRoom(t *testing.T) {
	gw, registry := newTestGateway(t)

	createBody, _ := json.Marshal(map[string]interface{}{
		"code":   "ROOM01",
		"config": map[string]interface{}{"threshold": 100.0},
	})
	req := httptest.NewRequest(http.MethodPost, "/rooms", bytes.NewReader(createBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	gw.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	addr := "0x1234567890123456789012345678901234567890"
	addBody, _ := json.Marshal(map[string]interface{}{"address": addr})
	req = httptest.NewRequest(http.MethodPost, "/rooms/ROOM01/wallets", bytes.NewReader(addBody))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	gw.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	actor, ok := registry.Get("ROOM01")
	require.True(t, ok)
	tracked, err := actor.RPCHasWallet(context.Background(), addr)
	require.NoError(t, err)
	assert.True(t, tracked)

	webhookBody, _ := json.Marshal(map[string]interface{}{"from": addr, "amountInUsd": 500.0})
	req = httptest.NewRequest(http.MethodPost, "/webhook/coinbase", bytes.NewReader(webhookBody))
	req.Header.Set("X-Webhook-Signature", sign("test-secret", webhookBody))
	rec = httptest.NewRecorder()
	gw.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var result ingress.ProcessResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "processed", result.Status)
	assert.Equal(t, 1, result.RoomsNotified)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	gw, _ := newTestGateway(t)

	body, _ := json.Marshal(map[string]interface{}{"from": "0xabc"})
	req := httptest.NewRequest(http.MethodPost, "/webhook/coinbase", bytes.NewReader(body))
	req.Header.Set("X-Webhook-Signature", "deadbeef")
	rec := httptest.NewRecorder()
	gw.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	gw, _ := newTestGateway(t)

	body, _ := json.Marshal(map[string]interface{}{"from": "0xabc"})
	req := httptest.NewRequest(http.MethodPost, "/webhook/coinbase", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	gw.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRemoveWalletNotFoundReturns404(t *testing.T) {
	gw, _ := newTestGateway(t)

	createBody, _ := json.Marshal(map[string]interface{}{"code": "ROOM02"})
	req := httptest.NewRequest(http.MethodPost, "/rooms", bytes.NewReader(createBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	gw.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/rooms/ROOM02/wallets/0x1234567890123456789012345678901234567890", nil)
	rec = httptest.NewRecorder()
	gw.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	gw, _ := newTestGateway(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	gw.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
