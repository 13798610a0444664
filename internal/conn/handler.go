package conn

import (
	"context"
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"souschef/internal/core"
	"souschef/internal/relay"
	"souschef/internal/storage"
)

// TurnRunner executes one user turn against a session. Errors are already
// surfaced on the event stream by the time it returns.
type TurnRunner interface {
	RunTurn(ctx context.Context, sessionID, message string) error
}

// inboundMessage is the only message type the UI layer sends.
type inboundMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Handler upgrades websocket connections and owns their lifecycle: one
// listener task per connection subscribed to the session's relay topic,
// cancelled when the socket closes.
type Handler struct {
	upgrader websocket.Upgrader
	manager  *Manager
	relay    *relay.Relay
	runner   TurnRunner
	store    storage.Store
	log      zerolog.Logger
}

// NewHandler wires the websocket endpoint.
func NewHandler(manager *Manager, r *relay.Relay, runner TurnRunner, store storage.Store, log zerolog.Logger) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		manager: manager,
		relay:   r,
		runner:  runner,
		store:   store,
		log:     log,
	}
}

// ServeHTTP handles GET /ws?session=<id>&mode=<guidance|authoring>. A missing
// session id starts a fresh session.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	mode := core.Mode(r.URL.Query().Get("mode"))
	if mode != core.ModeAuthoring {
		mode = core.ModeGuidance
	}

	if _, err := h.store.Get(r.Context(), sessionID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "session lookup failed", http.StatusInternalServerError)
			return
		}
		if err := h.store.Put(r.Context(), sessionID, storage.SessionPatch{Mode: &mode}); err != nil {
			http.Error(w, "session create failed", http.StatusInternalServerError)
			return
		}
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := h.manager.Connect(sessionID, ws)
	defer h.manager.Disconnect(sessionID, c)
	defer c.Close()

	sub, err := h.relay.Subscribe(ctx, sessionID)
	if err != nil {
		h.log.Error().Str("session", sessionID).Err(err).Msg("relay subscribe failed")
		return
	}
	defer sub.Close()

	// Listener bound to the connection's lifetime: each relay payload becomes
	// one discrete outbound message.
	go func() {
		for payload := range sub.Messages() {
			if err := c.Send(payload); err != nil {
				return
			}
		}
	}()

	h.log.Info().Str("session", sessionID).Str("mode", string(mode)).Msg("connection opened")
	h.readLoop(ctx, sessionID, ws)
	h.log.Info().Str("session", sessionID).Msg("connection closed")
}

// readLoop runs turns for inbound user messages. Turns run synchronously in
// the loop, so one connection never has overlapping executions.
func (h *Handler) readLoop(ctx context.Context, sessionID string, ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var msg inboundMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.log.Warn().Str("session", sessionID).Err(err).Msg("bad inbound message")
			continue
		}
		if msg.Type != "user_message" || msg.Content == "" {
			continue
		}

		if err := h.runner.RunTurn(ctx, sessionID, msg.Content); err != nil {
			h.log.Error().Str("session", sessionID).Err(err).Msg("turn failed")
		}
	}
}
