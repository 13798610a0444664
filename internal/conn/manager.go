package conn

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Conn wraps one live websocket connection. Writes are serialized; gorilla
// connections do not allow concurrent writers.
type Conn struct {
	ws        *websocket.Conn
	sessionID string
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Send writes one discrete text message to the socket.
func (c *Conn) Send(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Close closes the underlying socket once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		if c.ws != nil {
			c.ws.Close()
		}
	})
}

// Manager tracks at most one live connection per session id. A new connection
// displaces the prior registration for that session and closes its socket,
// which ends the displaced handler's read loop and with it the event listener
// feeding that socket.
type Manager struct {
	mu    sync.Mutex
	conns map[string]*Conn
	log   zerolog.Logger
}

// NewManager creates an empty connection manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{conns: make(map[string]*Conn), log: log}
}

// Connect registers a connection for the session, displacing any prior one.
func (m *Manager) Connect(sessionID string, ws *websocket.Conn) *Conn {
	c := &Conn{ws: ws, sessionID: sessionID}
	m.mu.Lock()
	old := m.conns[sessionID]
	m.conns[sessionID] = c
	m.mu.Unlock()

	if old != nil {
		m.log.Warn().Str("session", sessionID).Msg("displacing existing connection")
		old.Close()
	}
	return c
}

// Disconnect removes the registration if c is still the registered connection
// for the session. A displaced connection disconnecting is a no-op.
func (m *Manager) Disconnect(sessionID string, c *Conn) {
	m.mu.Lock()
	if m.conns[sessionID] == c {
		delete(m.conns, sessionID)
	}
	m.mu.Unlock()
}

// Send delivers a payload to the session's live connection, if any. It is
// fire-and-forget: with no registered connection the message is dropped, not
// queued.
func (m *Manager) Send(sessionID string, payload []byte) bool {
	m.mu.Lock()
	c := m.conns[sessionID]
	m.mu.Unlock()
	if c == nil {
		return false
	}
	if err := c.Send(payload); err != nil {
		m.log.Warn().Str("session", sessionID).Err(err).Msg("send failed")
		return false
	}
	return true
}

// Active reports whether the session has a live connection.
func (m *Manager) Active(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conns[sessionID] != nil
}
