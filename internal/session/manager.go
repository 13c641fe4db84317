package session

import (
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Manager keeps the sessions of every connected device in memory
type Manager struct {
	sessions map[string]*Session // sessionID -> Session
	mu       sync.RWMutex
}

// NewManager creates a new session manager
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// CreateSession starts a session with no active roster
func (m *Manager) CreateSession() *Session {
	session := New()

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	log.Printf("Created session: id=%s", session.ID)
	return session
}

// GetSession retrieves a session by ID
func (m *Manager) GetSession(sessionID string) (*Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, ErrInvalidSession
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// EndSession discards a session and its in-memory roster
func (m *Manager) EndSession(sessionID string) error {
	m.mu.Lock()
	session, exists := m.sessions[sessionID]
	if !exists {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	log.Printf("Ended session: id=%s class=%q", session.ID, session.ClassName())
	return nil
}

// ListSessions returns all sessions, oldest first
func (m *Manager) ListSessions() []*Session {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions
}

// SessionsForClass returns sessions whose active roster is className.
func (m *Manager) SessionsForClass(className string) []*Session {
	var matched []*Session
	for _, session := range m.ListSessions() {
		if session.ClassName() == className {
			matched = append(matched, session)
		}
	}
	return matched
}

// IsSessionActive checks if a session exists
func (m *Manager) IsSessionActive(sessionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.sessions[sessionID]
	return exists
}

// GetStats returns session manager statistics
func (m *Manager) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	withRoster := 0
	for _, session := range m.sessions {
		if session.HasRoster() {
			withRoster++
		}
	}

	return map[string]interface{}{
		"active_sessions":      len(m.sessions),
		"sessions_with_roster": withRoster,
	}
}
