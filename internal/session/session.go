package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"rollcall/pkg/types"
)

// Session is the state of one teacher's device: the active roster and its lucky number
// ARCHITECTURAL DISCOVERY: State lives in an explicit object handed to each roster
// operation instead of in globals, so several devices can work on different classes
type Session struct {
	ID        string
	CreatedAt time.Time

	mu          sync.RWMutex
	roster      *types.Roster
	luckyNumber int
}

// Snapshot is a point-in-time copy of a session safe to serialize.
type Snapshot struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	ClassName   string          `json:"class_name,omitempty"`
	LuckyNumber int             `json:"lucky_number"`
	Students    []types.Student `json:"students"`
}

// New returns a session with no active roster and no lucky number.
func New() *Session {
	return &Session{
		ID:          uuid.New().String(),
		CreatedAt:   time.Now(),
		luckyNumber: types.NoLuckyNumber,
	}
}

// ClassName returns the active class or "" when none is selected.
func (s *Session) ClassName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.roster == nil {
		return ""
	}
	return s.roster.ClassName
}

// HasRoster reports whether a roster is active.
func (s *Session) HasRoster() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roster != nil
}

// Roster returns a copy of the active roster, or nil.
func (s *Session) Roster() *types.Roster {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roster.Clone()
}

// SetRoster makes roster the active one. The lucky number is kept.
func (s *Session) SetRoster(roster *types.Roster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster = roster.Clone()
}

// ClearRoster drops the active roster.
func (s *Session) ClearRoster() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster = nil
}

// LuckyNumber returns the current lucky number or types.NoLuckyNumber.
func (s *Session) LuckyNumber() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.luckyNumber
}

// SetLuckyNumber overwrites the lucky number.
func (s *Session) SetLuckyNumber(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.luckyNumber = n
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		ID:          s.ID,
		CreatedAt:   s.CreatedAt,
		LuckyNumber: s.luckyNumber,
		Students:    []types.Student{},
	}
	if s.roster != nil {
		snap.ClassName = s.roster.ClassName
		snap.Students = s.roster.Clone().Students
	}
	return snap
}
