package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	dbconfig "rollcall/pkg/database"
	"rollcall/pkg/interfaces"
)

// SQLiteStore keeps roster documents in a single SQLite table
type SQLiteStore struct {
	db           *sql.DB
	config       *dbconfig.Config
	writeChannel chan writeOperation // TECHNICAL: Single-writer pattern for SQLite
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex
	retryDelay   time.Duration
}

type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewSQLiteStore opens the database, applies migrations and validates the schema
func NewSQLiteStore(config *dbconfig.Config) (*SQLiteStore, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	db, err := sql.Open("sqlite3", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", interfaces.ErrIO, err)
	}

	db.SetMaxOpenConns(config.MaxConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := dbconfig.ApplySQLiteOptimizations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply SQLite optimizations: %w", err)
	}
	if err := dbconfig.NewDefaultMigrationManager(db).ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := dbconfig.NewSchemaValidator(db).Validate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	store := &SQLiteStore{
		db:           db,
		config:       config,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
		retryDelay:   time.Second,
	}

	// ARCHITECTURAL DISCOVERY: One goroutine owns every write so SQLite never sees
	// two writers at once
	store.wg.Add(1)
	go store.writeLoop()

	return store, nil
}

func (s *SQLiteStore) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case op := <-s.writeChannel:
			err := op.operation(s.db)
			if err != nil && !isDomainError(err) {
				log.Printf("Roster write failed, retrying in %v: %v", s.retryDelay, err)
				time.Sleep(s.retryDelay)
				err = op.operation(s.db)
				if err != nil {
					log.Printf("Roster write failed after retry: %v", err)
				}
			}
			op.result <- err

		case <-s.shutdown:
			log.Println("Roster store write loop shutting down")
			return
		}
	}
}

// isDomainError reports errors that a retry cannot fix.
func isDomainError(err error) bool {
	return errors.Is(err, interfaces.ErrNotFound) || errors.Is(err, interfaces.ErrAlreadyExists)
}

func (s *SQLiteStore) executeWrite(ctx context.Context, operation func(*sql.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("%w: roster store is closed", interfaces.ErrIO)
	}
	s.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case s.writeChannel <- writeOperation{operation: operation, result: result}:
	case <-time.After(s.config.WriteTimeout):
		return fmt.Errorf("%w: write operation timeout", interfaces.ErrIO)
	case <-s.shutdown:
		return fmt.Errorf("%w: roster store is shutting down", interfaces.ErrIO)
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-s.shutdown:
		return fmt.Errorf("%w: roster store closed before the write ran", interfaces.ErrIO)
	}
}

// List returns stored class names sorted.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT class_name FROM rosters ORDER BY class_name")
	if err != nil {
		return nil, fmt.Errorf("%w: list rosters: %w", interfaces.ErrIO, err)
	}
	defer func() { _ = rows.Close() }()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: scan roster name: %w", interfaces.ErrIO, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list rosters: %w", interfaces.ErrIO, err)
	}
	return names, nil
}

// Exists reports whether className has a document.
func (s *SQLiteStore) Exists(ctx context.Context, className string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rosters WHERE class_name = ?", className).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("%w: check roster %s: %w", interfaces.ErrIO, className, err)
	}
	return count > 0, nil
}

// Read returns the document for className.
func (s *SQLiteStore) Read(ctx context.Context, className string) ([]byte, error) {
	var document string
	err := s.db.QueryRowContext(ctx, "SELECT document FROM rosters WHERE class_name = ?", className).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: roster %q", interfaces.ErrNotFound, className)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read roster %s: %w", interfaces.ErrIO, className, err)
	}
	return []byte(document), nil
}

// Write upserts the document for className.
func (s *SQLiteStore) Write(ctx context.Context, className string, data []byte) error {
	err := s.executeWrite(ctx, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO rosters (class_name, document, updated_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(class_name) DO UPDATE SET
				document = excluded.document,
				updated_at = excluded.updated_at
		`, className, string(data))
		return err
	})
	if err != nil && !errors.Is(err, interfaces.ErrIO) {
		return fmt.Errorf("%w: write roster %s: %w", interfaces.ErrIO, className, err)
	}
	return err
}

// Delete removes the document for className.
func (s *SQLiteStore) Delete(ctx context.Context, className string) error {
	err := s.executeWrite(ctx, func(db *sql.DB) error {
		result, err := db.ExecContext(ctx, "DELETE FROM rosters WHERE class_name = ?", className)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: roster %q", interfaces.ErrNotFound, className)
		}
		return nil
	})
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) && !errors.Is(err, interfaces.ErrIO) {
		return fmt.Errorf("%w: delete roster %s: %w", interfaces.ErrIO, className, err)
	}
	return err
}

// HealthCheck pings the database and touches the rosters table.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: database ping failed: %w", interfaces.ErrIO, err)
	}
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rosters").Scan(&count); err != nil {
		return fmt.Errorf("%w: database read test failed: %w", interfaces.ErrIO, err)
	}
	return nil
}

// Close stops the writer and closes the database. Safe to call twice.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdown)
	s.wg.Wait()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
