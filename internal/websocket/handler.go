package websocket

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// FUNCTIONAL DISCOVERY: Displays are classroom projectors on the local network
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// SessionChecker reports whether a session exists.
type SessionChecker interface {
	IsSessionActive(sessionID string) bool
}

// HandlerConfig holds heartbeat and write timing for display connections.
type HandlerConfig struct {
	PingInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultHandlerConfig returns a 30s ping with a 60s read deadline.
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// Handler upgrades display connections and keeps them alive
type Handler struct {
	registry *Registry
	sessions SessionChecker
	config   HandlerConfig
}

// NewHandler creates a WebSocket handler. Zero timings fall back to the defaults.
func NewHandler(registry *Registry, sessions SessionChecker, config HandlerConfig) *Handler {
	defaults := DefaultHandlerConfig()
	if config.PingInterval <= 0 {
		config.PingInterval = defaults.PingInterval
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	return &Handler{
		registry: registry,
		sessions: sessions,
		config:   config,
	}
}

// HandleWebSocket attaches a display to the session named by the session_id query parameter
// ARCHITECTURAL DISCOVERY: Validate before upgrading so bad requests get plain HTTP errors
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "Missing required query parameter: session_id", http.StatusBadRequest)
		return
	}
	if !h.sessions.IsSessionActive(sessionID) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	wsConn := NewConnection(conn, sessionID, h.config.WriteTimeout)
	if err := h.registry.RegisterConnection(wsConn); err != nil {
		log.Printf("Failed to register connection: %v", err)
		_ = wsConn.Close()
		return
	}

	if err := wsConn.WriteJSON(Event{
		Type: EventConnected,
		Data: map[string]string{
			"session_id":    sessionID,
			"connection_id": wsConn.ID(),
		},
		Timestamp: time.Now(),
	}); err != nil {
		log.Printf("Failed to send connected event: %v", err)
	}

	go h.handleConnection(wsConn)
}

// handleConnection runs the heartbeat and read pump until the display goes away
func (h *Handler) handleConnection(conn *Connection) {
	defer func() {
		h.registry.UnregisterConnection(conn)
		_ = conn.Close()
	}()

	if err := conn.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout)); err != nil {
		log.Printf("Failed to set read deadline: %v", err)
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	})

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(h.config.WriteTimeout)); err != nil {
					return
				}
			case <-conn.Done():
				return
			}
		}
	}()

	// Displays are receive-only; incoming frames only keep the read deadline fresh
	for {
		if _, _, err := conn.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
	}
}
