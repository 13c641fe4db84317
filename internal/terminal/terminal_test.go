package terminal

import (
	"bytes"
	"context"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/controller"
	"rollcall/internal/picker"
	"rollcall/internal/roster"
	"rollcall/internal/session"
	"rollcall/internal/storage"
	"rollcall/pkg/interfaces"
)

var _ interfaces.UI = &UI{}

func TestUI_ChooseOne(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"by number", "2\n", "B", true},
		{"by name", "C\n", "C", true},
		{"retry after bad answer", "9\nA\n", "A", true},
		{"empty cancels", "\n", "", false},
		{"eof cancels", "", "", false},
		{"last line without newline", "1", "A", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			ui := NewUI(strings.NewReader(tt.input), &out)

			got, ok, err := ui.ChooseOne(context.Background(), "Pick", []string{"A", "B", "C"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
			assert.Contains(t, out.String(), "2) B")
		})
	}
}

func TestUI_PromptTextAndNotify(t *testing.T) {
	var out bytes.Buffer
	ui := NewUI(strings.NewReader("  Ala  \n"), &out)
	ctx := context.Background()

	text, ok, err := ui.PromptText(ctx, "Add student", "Name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Ala", text)

	_, ok, err = ui.PromptText(ctx, "Add student", "Name")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ui.Notify(ctx, "Picked student", "Ala"))
	assert.Contains(t, out.String(), "[Picked student] Ala\n")
}

func TestUI_CancelledContext(t *testing.T) {
	ui := NewUI(strings.NewReader("x\n"), &bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := ui.PromptText(ctx, "t", "m")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUI_CancelUnblocksPendingRead(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	ui := NewUI(r, &bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, _, err := ui.PromptText(ctx, "Add student", "Name")
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("PromptText did not return after cancel")
	}
}

func TestUI_LinesSurviveAcrossPrompts(t *testing.T) {
	r, w := io.Pipe()
	ui := NewUI(r, &bytes.Buffer{})
	ctx := context.Background()

	go func() {
		_, _ = io.WriteString(w, "open 3A\nAla\n")
		_ = w.Close()
	}()

	line, ok, err := ui.ReadCommand(ctx, "> ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "open 3A", line)

	text, ok, err := ui.PromptText(ctx, "Add student", "Name")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ala", text)

	_, ok, err = ui.ReadCommand(ctx, "> ")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShell_InterruptIsCleanExit(t *testing.T) {
	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "Classes"))
	require.NoError(t, err)

	r, w := io.Pipe()
	defer w.Close()
	ui := NewUI(r, &bytes.Buffer{})
	rosters := roster.NewManager(store, picker.New())
	c := controller.New(rosters, session.New(), ui)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewShell(ui, c, rosters).Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("shell did not stop after cancel")
	}
}

func runShell(t *testing.T, input string) (string, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "Classes")
	store, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	var out bytes.Buffer
	ui := NewUI(strings.NewReader(input), &out)
	rosters := roster.NewManager(store, picker.NewWithRandom(rand.New(rand.NewPCG(1, 1))))
	c := controller.New(rosters, session.New(), ui)

	require.NoError(t, NewShell(ui, c, rosters).Run(context.Background()))
	return out.String(), dir
}

func TestShell_FullSession(t *testing.T) {
	input := strings.Join([]string{
		"3A", // startup: no classes, create one
		"add",
		"Ala",
		"add",
		"Bob",
		"show",
		"remove 1",
		"show",
		"pick",
		"lucky",
		"list",
		"quit",
	}, "\n") + "\n"

	out, dir := runShell(t, input)

	assert.Contains(t, out, controller.MsgNoClassFound)
	assert.Contains(t, out, "3A (2 students)")
	assert.Contains(t, out, "  1 + Ala")
	assert.Contains(t, out, "3A (1 students)")
	assert.Contains(t, out, "  1 + Bob")
	assert.Contains(t, out, "[Picked student] Bob")
	assert.Contains(t, out, "[Lucky number] Lucky number: 1")
	assert.Contains(t, out, "rollcall:3A> ")

	data, err := os.ReadFile(filepath.Join(dir, "3A.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"studentNumber":1,"name":"Bob","isPresent":true,"timesSinceLastPicked":3}]`, string(data))
}

func TestShell_ImportAndDelete(t *testing.T) {
	src := filepath.Join(t.TempDir(), "History.txt")
	require.NoError(t, os.WriteFile(src, []byte("Ala,+\nBob,-\n"), 0o644))

	input := strings.Join([]string{
		"", // startup: cancel class creation
		"import " + src,
		"show",
		"delete",
		"show",
		"bogus",
		"remove x",
	}, "\n") + "\n"

	out, dir := runShell(t, input)

	assert.Contains(t, out, "History (2 students)")
	assert.Contains(t, out, "  2 - Bob")
	assert.Contains(t, out, "[Success] Class 'History' was deleted.")
	assert.Contains(t, out, controller.MsgNoClassSelected)
	assert.Contains(t, out, `unknown command "bogus"`)
	assert.Contains(t, out, "usage: remove <number>")
	assert.NoFileExists(t, filepath.Join(dir, "History.json"))
}
