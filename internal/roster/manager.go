// Package roster implements roster persistence, import, membership changes
// and the random picker on top of a Storage backend.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"rollcall/internal/importer"
	"rollcall/internal/picker"
	"rollcall/internal/session"
	"rollcall/pkg/interfaces"
	"rollcall/pkg/types"
)

// PickResult reports a random draw.
type PickResult struct {
	Outcome picker.Outcome `json:"outcome"`
	Student *types.Student `json:"student,omitempty"`
}

// Manager runs every roster operation
// ARCHITECTURAL DISCOVERY: One mutex serializes all operations, so concurrent requests
// behave like a single event loop. Mutations work on a clone that is committed to the
// session only after the save succeeds
type Manager struct {
	store  interfaces.Storage
	picker *picker.Picker
	mu     sync.Mutex
}

// NewManager creates a roster manager. A nil picker uses the default random source.
func NewManager(store interfaces.Storage, p *picker.Picker) *Manager {
	if p == nil {
		p = picker.New()
	}
	return &Manager{
		store:  store,
		picker: p,
	}
}

// ListRosters returns the names of all persisted rosters, sorted.
func (m *Manager) ListRosters(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.List(ctx)
}

// LoadRoster reads and decodes the roster for className.
func (m *Manager) LoadRoster(ctx context.Context, className string) (*types.Roster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx, className)
}

func (m *Manager) load(ctx context.Context, className string) (*types.Roster, error) {
	if err := types.ValidateClassName(className); err != nil {
		return nil, err
	}

	data, err := m.store.Read(ctx, className)
	if err != nil {
		return nil, err
	}

	students, err := types.DecodeStudents(data)
	if err != nil {
		return nil, fmt.Errorf("%w: roster %q: %w", interfaces.ErrCorruptData, className, err)
	}

	return &types.Roster{ClassName: className, Students: students}, nil
}

// SaveRoster overwrites the persisted document for roster.ClassName.
func (m *Manager) SaveRoster(ctx context.Context, roster *types.Roster) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(ctx, roster)
}

func (m *Manager) save(ctx context.Context, roster *types.Roster) error {
	if roster == nil {
		return interfaces.ErrNoActiveRoster
	}
	if err := types.ValidateClassName(roster.ClassName); err != nil {
		return err
	}

	data, err := types.EncodeStudents(roster.Students)
	if err != nil {
		return fmt.Errorf("%w: encode roster %q: %w", interfaces.ErrIO, roster.ClassName, err)
	}
	if err := m.store.Write(ctx, roster.ClassName, data); err != nil {
		if errors.Is(err, interfaces.ErrIO) {
			return err
		}
		return fmt.Errorf("%w: save roster %q: %w", interfaces.ErrIO, roster.ClassName, err)
	}
	return nil
}

// Open loads className and makes it the session's active roster.
func (m *Manager) Open(ctx context.Context, sess *session.Session, className string) (*types.Roster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roster, err := m.load(ctx, className)
	if err != nil {
		return nil, err
	}
	sess.SetRoster(roster)

	log.Printf("Loaded roster: session=%s class=%q students=%d", sess.ID, className, roster.Len())
	return roster, nil
}

// ImportFromText parses raw and persists it as a new roster named className. When
// sess is not nil the imported roster becomes its active one.
func (m *Manager) ImportFromText(ctx context.Context, sess *session.Session, className, raw string) ([]types.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureAbsent(ctx, className); err != nil {
		return nil, err
	}

	roster := &types.Roster{
		ClassName: className,
		Students:  importer.ParseText(raw),
	}
	if err := m.save(ctx, roster); err != nil {
		return nil, err
	}
	if sess != nil {
		sess.SetRoster(roster)
	}

	log.Printf("Imported roster: class=%q students=%d", className, roster.Len())
	return roster.Clone().Students, nil
}

// CreateEmptyRoster persists an empty roster and makes it the session's active one.
func (m *Manager) CreateEmptyRoster(ctx context.Context, sess *session.Session, className string) (*types.Roster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureAbsent(ctx, className); err != nil {
		return nil, err
	}

	roster := types.NewRoster(className)
	if err := m.save(ctx, roster); err != nil {
		return nil, err
	}
	if sess != nil {
		sess.SetRoster(roster)
	}

	log.Printf("Created roster: class=%q", className)
	return roster, nil
}

func (m *Manager) ensureAbsent(ctx context.Context, className string) error {
	if err := types.ValidateClassName(className); err != nil {
		return err
	}
	exists, err := m.store.Exists(ctx, className)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: roster %q", interfaces.ErrAlreadyExists, className)
	}
	return nil
}

// DeleteRoster removes the persisted roster and clears it from any of the given
// sessions that have it active.
func (m *Manager) DeleteRoster(ctx context.Context, className string, sessions ...*session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := types.ValidateClassName(className); err != nil {
		return err
	}
	if err := m.store.Delete(ctx, className); err != nil {
		return err
	}

	for _, sess := range sessions {
		if sess != nil && sess.ClassName() == className {
			sess.ClearRoster()
		}
	}

	log.Printf("Deleted roster: class=%q", className)
	return nil
}

// AddStudent appends a present student numbered N+1 to the active roster.
func (m *Manager) AddStudent(ctx context.Context, sess *session.Session, name string) (types.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roster, err := m.active(ctx, sess)
	if err != nil {
		return types.Student{}, err
	}
	if err := types.ValidateStudentName(name); err != nil {
		return types.Student{}, err
	}

	student := types.Student{
		StudentNumber: roster.Len() + 1,
		Name:          name,
		IsPresent:     true,
	}
	roster.Students = append(roster.Students, student)

	if err := m.commit(ctx, sess, roster); err != nil {
		return types.Student{}, err
	}
	return student, nil
}

// RemoveStudent drops the student with studentNumber and renumbers the rest 1..N.
func (m *Manager) RemoveStudent(ctx context.Context, sess *session.Session, studentNumber int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	roster, err := m.active(ctx, sess)
	if err != nil {
		return err
	}

	idx := roster.IndexOf(studentNumber)
	if idx < 0 {
		return fmt.Errorf("%w: student %d in roster %q", interfaces.ErrNotFound, studentNumber, roster.ClassName)
	}
	roster.Students = append(roster.Students[:idx], roster.Students[idx+1:]...)
	roster.Renumber()

	return m.commit(ctx, sess, roster)
}

// PickRandom runs one picker round on the active roster and persists the new cooldowns.
// No active roster reports NoStudents, like an empty one.
func (m *Manager) PickRandom(ctx context.Context, sess *session.Session) (PickResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roster, err := m.active(ctx, sess)
	if errors.Is(err, interfaces.ErrNoActiveRoster) {
		return PickResult{Outcome: picker.NoStudents}, nil
	}
	if err != nil {
		return PickResult{}, err
	}

	res := m.picker.Pick(roster.Students, sess.LuckyNumber())
	if res.Outcome == picker.NoStudents {
		return PickResult{Outcome: picker.NoStudents}, nil
	}

	if err := m.commit(ctx, sess, roster); err != nil {
		return PickResult{}, err
	}

	result := PickResult{Outcome: res.Outcome}
	if res.Outcome == picker.Picked {
		student := res.Student
		result.Student = &student
		log.Printf("Picked student: session=%s class=%q number=%d", sess.ID, roster.ClassName, student.StudentNumber)
	}
	return result, nil
}

// RollLuckyNumber stores a uniform number in [1, N] on the session.
func (m *Manager) RollLuckyNumber(ctx context.Context, sess *session.Session) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roster, err := m.active(ctx, sess)
	if err != nil {
		return 0, err
	}
	if roster.Len() == 0 {
		return 0, fmt.Errorf("%w: %q", interfaces.ErrEmptyRoster, roster.ClassName)
	}

	n := m.picker.Roll(roster.Len())
	sess.SetLuckyNumber(n)
	return n, nil
}

// Refresh re-reads the session's active roster from storage and returns it.
func (m *Manager) Refresh(ctx context.Context, sess *session.Session) (*types.Roster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active(ctx, sess)
}

// HealthCheck checks the storage backend.
func (m *Manager) HealthCheck(ctx context.Context) error {
	return m.store.HealthCheck(ctx)
}

// active reloads the session's roster from storage and returns it as a working copy
// ARCHITECTURAL DISCOVERY: The stored document is the single source of truth. Several
// sessions may have the same class open, so a session's cached copy is only a view
// and is refreshed here. A class deleted through another session is dropped.
func (m *Manager) active(ctx context.Context, sess *session.Session) (*types.Roster, error) {
	if sess == nil {
		return nil, interfaces.ErrNoActiveRoster
	}
	className := sess.ClassName()
	if className == "" {
		return nil, interfaces.ErrNoActiveRoster
	}

	roster, err := m.load(ctx, className)
	if errors.Is(err, interfaces.ErrNotFound) {
		sess.ClearRoster()
		return nil, fmt.Errorf("%w: class %q was deleted", interfaces.ErrNoActiveRoster, className)
	}
	if err != nil {
		return nil, err
	}
	sess.SetRoster(roster)
	return roster, nil
}

// commit persists roster and then makes it the session's active roster.
func (m *Manager) commit(ctx context.Context, sess *session.Session, roster *types.Roster) error {
	if err := m.save(ctx, roster); err != nil {
		log.Printf("Failed to save roster %q: %v", roster.ClassName, err)
		return err
	}
	sess.SetRoster(roster)
	return nil
}
