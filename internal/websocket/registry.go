package websocket

import (
	"sync"
)

// Registry tracks display connections per session
type Registry struct {
	mu       sync.RWMutex                      // TECHNICAL DISCOVERY: RWMutex, broadcasts only read
	sessions map[string]map[string]*Connection // sessionID -> connectionID -> Connection
}

// NewRegistry creates a new connection registry
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]map[string]*Connection),
	}
}

// RegisterConnection adds conn under its session.
func (r *Registry) RegisterConnection(conn *Connection) error {
	if conn == nil {
		return ErrNilConnection
	}
	if conn.SessionID() == "" {
		return ErrNoSession
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sessionID := conn.SessionID()
	if r.sessions[sessionID] == nil {
		r.sessions[sessionID] = make(map[string]*Connection)
	}
	r.sessions[sessionID][conn.ID()] = conn
	return nil
}

// UnregisterConnection removes conn. Idempotent.
func (r *Registry) UnregisterConnection(conn *Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sessionID := conn.SessionID()
	conns, exists := r.sessions[sessionID]
	if !exists {
		return
	}
	delete(conns, conn.ID())
	// TECHNICAL DISCOVERY: Drop empty session maps to avoid leaking ended sessions
	if len(conns) == 0 {
		delete(r.sessions, sessionID)
	}
}

// GetSessionConnections returns every display following sessionID.
func (r *Registry) GetSessionConnections(sessionID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.sessions[sessionID]
	connections := make([]*Connection, 0, len(conns))
	for _, conn := range conns {
		connections = append(connections, conn)
	}
	return connections
}

// CloseSession closes and forgets every display of sessionID.
func (r *Registry) CloseSession(sessionID string) int {
	r.mu.Lock()
	conns := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
	return len(conns)
}

// GetStats returns registry statistics for monitoring
func (r *Registry) GetStats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, conns := range r.sessions {
		total += len(conns)
	}
	return map[string]int{
		"total_connections": total,
		"active_sessions":   len(r.sessions),
	}
}
