package wsmanager

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func dial(t *testing.T, mgr *Manager) (*websocket.Conn, func()) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		mgr.Track(conn)
	}))

	wsURL := "ws" + server.URL[len("http"):]
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	return clientConn, server.Close
}

func TestBroadcastDeliversToTrackedSession(t *testing.T) {
	mgr := NewManager(testLogger())
	clientConn, cleanup := dial(t, mgr)
	defer cleanup()
	defer clientConn.Close()

	require.Eventually(t, func() bool { return mgr.GetCount() == 1 }, time.Second, 10*time.Millisecond)

	mgr.Broadcast(Message{Type: "presence", Data: map[string]int{"count": 1}})

	clientConn.SetReadDeadline(time.Now().Add(time.Second))
	var got Message
	require.NoError(t, clientConn.ReadJSON(&got))
	require.Equal(t, "presence", got.Type)
}

func TestUntrackDropsFromCount(t *testing.T) {
	mgr := NewManager(testLogger())
	clientConn, cleanup := dial(t, mgr)
	defer cleanup()
	defer clientConn.Close()

	require.Eventually(t, func() bool { return mgr.GetCount() == 1 }, time.Second, 10*time.Millisecond)

	mgr.mu.RLock()
	var conn *websocket.Conn
	for c := range mgr.sessions {
		conn = c
	}
	mgr.mu.RUnlock()

	mgr.Untrack(conn)
	require.Equal(t, 0, mgr.GetCount())
}

func TestCloseAllClosesEverySession(t *testing.T) {
	mgr := NewManager(testLogger())
	clientConn, cleanup := dial(t, mgr)
	defer cleanup()
	defer clientConn.Close()

	require.Eventually(t, func() bool { return mgr.GetCount() == 1 }, time.Second, 10*time.Millisecond)

	closed := mgr.CloseAll(websocket.CloseNormalClosure, "room expired")
	require.Equal(t, 1, closed)
	require.Equal(t, 0, mgr.GetCount())
}
