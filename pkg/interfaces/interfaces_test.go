package interfaces_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"rollcall/pkg/interfaces"
)

// Mock implementations for testing

type mockStorage struct{}

func (m *mockStorage) List(ctx context.Context) ([]string, error)                     { return nil, nil }
func (m *mockStorage) Exists(ctx context.Context, className string) (bool, error)      { return false, nil }
func (m *mockStorage) Read(ctx context.Context, className string) ([]byte, error)      { return nil, nil }
func (m *mockStorage) Write(ctx context.Context, className string, data []byte) error { return nil }
func (m *mockStorage) Delete(ctx context.Context, className string) error             { return nil }
func (m *mockStorage) HealthCheck(ctx context.Context) error                          { return nil }
func (m *mockStorage) Close() error                                                   { return nil }

type mockUI struct{}

func (m *mockUI) Notify(ctx context.Context, title, message string) error { return nil }
func (m *mockUI) ChooseOne(ctx context.Context, title string, options []string) (string, bool, error) {
	return "", false, nil
}
func (m *mockUI) PromptText(ctx context.Context, title, message string) (string, bool, error) {
	return "", false, nil
}

// Architectural Validation Tests

func TestInterfaces_ArchitecturalCompliance(t *testing.T) {
	var _ interfaces.Storage = &mockStorage{}
	var _ interfaces.UI = &mockUI{}
	var _ interfaces.Notifier = &mockUI{}
}

func TestStorage_InterfaceContract(t *testing.T) {
	var store interfaces.Storage = &mockStorage{}
	ctx := context.Background()

	_, _ = store.List(ctx)
	_, _ = store.Exists(ctx, "3A")
	_, _ = store.Read(ctx, "3A")
	_ = store.Write(ctx, "3A", []byte("[]"))
	_ = store.Delete(ctx, "3A")
	_ = store.HealthCheck(ctx)
	_ = store.Close()
}

// Functional Validation Tests - error kinds survive wrapping

func TestErrors_WrappedKindsAreDetectable(t *testing.T) {
	kinds := []error{
		interfaces.ErrNotFound,
		interfaces.ErrAlreadyExists,
		interfaces.ErrCorruptData,
		interfaces.ErrIO,
		interfaces.ErrNoActiveRoster,
		interfaces.ErrEmptyRoster,
	}

	for _, kind := range kinds {
		t.Run(kind.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("%w: roster %q", kind, "3A")
			if !errors.Is(wrapped, kind) {
				t.Errorf("errors.Is lost %v after wrapping", kind)
			}
			for _, other := range kinds {
				if other != kind && errors.Is(wrapped, other) {
					t.Errorf("%v should not match %v", wrapped, other)
				}
			}
		})
	}
}
