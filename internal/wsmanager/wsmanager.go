// Package wsmanager tracks the live WebSocket sessions for a single
// room actor and broadcasts to them without ever blocking the actor
// on a slow client.
package wsmanager

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/keentechcodes/swapwatch/internal/metrics"
)

const sendBuffer = 256

// Message is the envelope for every outbound WebSocket frame, keyed
// by type per the wire format (swap, presence, wallet_added, ...).
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type session struct {
	id   string
	conn *websocket.Conn
	send chan Message
}

// Manager owns the set of accepted sessions for one room. It is not
// safe for use across rooms — the actor already serializes its
// callers, but each session's writePump goroutine calls Untrack
// directly, off the actor's mailbox, when a write fails, so the
// session map still needs its own mutex.
type Manager struct {
	mu       sync.RWMutex
	sessions map[*websocket.Conn]*session
	logger   *logrus.Logger
}

func NewManager(logger *logrus.Logger) *Manager {
	return &Manager{
		sessions: make(map[*websocket.Conn]*session),
		logger:   logger,
	}
}

// Track registers conn and starts its write pump. Call Untrack when
// the connection's read loop exits. The returned id correlates this
// session across log lines; it has no meaning to the client.
func (m *Manager) Track(conn *websocket.Conn) string {
	s := &session{id: uuid.NewString(), conn: conn, send: make(chan Message, sendBuffer)}

	m.mu.Lock()
	m.sessions[conn] = s
	m.mu.Unlock()
	metrics.WebSocketSessions.Inc()

	go m.writePump(s)
	return s.id
}

func (m *Manager) Untrack(conn *websocket.Conn) {
	m.mu.Lock()
	s, ok := m.sessions[conn]
	if ok {
		delete(m.sessions, conn)
	}
	m.mu.Unlock()

	if ok {
		close(s.send)
		metrics.WebSocketSessions.Dec()
	}
}

func (m *Manager) GetCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Broadcast enqueues msg on every session's outbound channel; each
// session's write pump serializes it separately, so msg is marshaled
// once per session, not once per broadcast. A full channel means the
// client is treated as dead: the message is dropped and the session
// is untracked, never blocked on.
func (m *Manager) Broadcast(msg Message) {
	var dead []*websocket.Conn
	m.mu.RLock()
	for conn, s := range m.sessions {
		select {
		case s.send <- msg:
		default:
			m.logger.WithField("session_id", s.id).WithField("remote", conn.RemoteAddr().String()).Warn("dropping broadcast to slow websocket client")
			dead = append(dead, conn)
		}
	}
	m.mu.RUnlock()

	for _, conn := range dead {
		m.Untrack(conn)
	}
}

// Send delivers msg to a single session. It reports whether the
// session accepted the message (false means untracked or full,
// dropped).
func (m *Manager) Send(conn *websocket.Conn, msg Message) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[conn]
	if !ok {
		return false
	}

	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

// CloseAll best-effort closes every session with the given close
// code and reason, then clears the session set. Returns the count
// closed.
func (m *Manager) CloseAll(code int, reason string) int {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[*websocket.Conn]*session)
	m.mu.Unlock()

	closeMsg := websocket.FormatCloseMessage(code, reason)
	for conn, s := range sessions {
		_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
		close(s.send)
		metrics.WebSocketSessions.Dec()
	}
	return len(sessions)
}

func (m *Manager) writePump(s *session) {
	defer s.conn.Close()

	for msg := range s.send {
		s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := s.conn.WriteJSON(msg); err != nil {
			m.logger.WithError(err).WithField("session_id", s.id).Debug("websocket write failed, dropping session")
			m.Untrack(s.conn)
			return
		}
	}

	s.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Marshal is exposed so callers that need the raw bytes (e.g. for
// logging) don't have to duplicate the envelope shape.
func Marshal(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
