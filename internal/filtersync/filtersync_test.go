package filtersync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keentechcodes/swapwatch/internal/config"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

type fakeWalletUnion struct {
	wallets []string
	err     error
}

func (f *fakeWalletUnion) AllTrackedWallets(ctx context.Context) ([]string, error) {
	return f.wallets, f.err
}

func TestSyncSkipsSilentlyWhenCredentialsUnset(t *testing.T) {
	var called bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	s := New(config.FilterSyncConfig{BaseURL: server.URL}, &fakeWalletUnion{wallets: []string{"0xabc"}}, testLogger())
	s.Sync(context.Background())

	assert.False(t, called)
}

func TestSyncSkipsSilentlyWhenWalletSetEmpty(t *testing.T) {
	var called bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	s := New(config.FilterSyncConfig{BaseURL: server.URL, KeyName: "k", PrivateKey: "p"}, &fakeWalletUnion{}, testLogger())
	s.Sync(context.Background())

	assert.False(t, called)
}

func TestSyncPatchesUpstreamWithSortedUnion(t *testing.T) {
	var body patchBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := New(config.FilterSyncConfig{BaseURL: server.URL, KeyName: "k", PrivateKey: "p", Timeout: time.Second}, &fakeWalletUnion{wallets: []string{"0xdef", "0xabc"}}, testLogger())
	s.Sync(context.Background())

	assert.Equal(t, []string{"0xabc", "0xdef"}, body.Filters.Addresses)
}

func TestSyncLogsAndSwallowsUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	s := New(config.FilterSyncConfig{BaseURL: server.URL, KeyName: "k", PrivateKey: "p"}, &fakeWalletUnion{wallets: []string{"0xabc"}}, testLogger())

	assert.NotPanics(t, func() { s.Sync(context.Background()) })
}
