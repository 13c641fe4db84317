package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rollcall/pkg/interfaces"
)

// DocumentExt is the extension of roster documents inside a FileStore directory.
const DocumentExt = ".json"

// FileStore keeps one JSON document per class in a directory
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("roster directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create roster directory %s: %w", interfaces.ErrIO, dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) ensureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create roster directory %s: %w", interfaces.ErrIO, s.dir, err)
	}
	return nil
}

// path returns the file holding className
// FUNCTIONAL DISCOVERY: The extension match is case-insensitive so "3A.JSON" copied
// from another device is read, updated and deleted in place. The canonical ".json"
// name wins when both exist; a class with no file maps to the canonical name.
func (s *FileStore) path(className string) (string, error) {
	canonical := filepath.Join(s.dir, className+DocumentExt)
	if _, err := os.Lstat(canonical); err == nil {
		return canonical, nil
	}

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return canonical, nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: read roster directory: %w", interfaces.ErrIO, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := classNameOf(entry.Name()); ok && name == className {
			return filepath.Join(s.dir, entry.Name()), nil
		}
	}
	return canonical, nil
}

// classNameOf strips a case-insensitive ".json" extension from a file name.
func classNameOf(fileName string) (string, bool) {
	ext := filepath.Ext(fileName)
	if !strings.EqualFold(ext, DocumentExt) {
		return "", false
	}
	return strings.TrimSuffix(fileName, ext), true
}

// List returns the class names of every roster document, sorted and without
// duplicates. The directory is recreated if it has gone missing.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read roster directory: %w", interfaces.ErrIO, err)
	}

	seen := make(map[string]bool, len(entries))
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := classNameOf(entry.Name())
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether className has a document.
func (s *FileStore) Exists(ctx context.Context, className string) (bool, error) {
	path, err := s.path(className)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: stat %s: %w", interfaces.ErrIO, className, err)
}

// Read returns the raw document for className.
func (s *FileStore) Read(ctx context.Context, className string) ([]byte, error) {
	path, err := s.path(className)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: roster %q", interfaces.ErrNotFound, className)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", interfaces.ErrIO, className, err)
	}
	return data, nil
}

// Write replaces the document atomically via a temp file and rename
func (s *FileStore) Write(ctx context.Context, className string, data []byte) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	path, err := s.path(className)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+className+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file for %s: %w", interfaces.ErrIO, className, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write %s: %w", interfaces.ErrIO, className, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: sync %s: %w", interfaces.ErrIO, className, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", interfaces.ErrIO, className, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: replace %s: %w", interfaces.ErrIO, className, err)
	}
	return nil
}

// Delete removes the document for className.
func (s *FileStore) Delete(ctx context.Context, className string) error {
	path, err := s.path(className)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: roster %q", interfaces.ErrNotFound, className)
	}
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", interfaces.ErrIO, className, err)
	}
	return nil
}

// HealthCheck verifies the directory is still there.
func (s *FileStore) HealthCheck(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("%w: roster directory: %w", interfaces.ErrIO, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", interfaces.ErrIO, s.dir)
	}
	return nil
}

// Close is a no-op for the directory backend.
func (s *FileStore) Close() error {
	return nil
}
