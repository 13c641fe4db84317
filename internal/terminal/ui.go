// Package terminal provides a line-based UI and command shell over stdin/stdout.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// UI implements interfaces.UI on a reader and writer
type UI struct {
	in  *bufio.Reader
	out io.Writer
	mu  sync.Mutex

	// TECHNICAL DISCOVERY: A read from a terminal cannot be interrupted, so one
	// goroutine owns the reader and hands lines over; prompts wait on ctx too
	readOnce sync.Once
	lines    chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// NewUI creates a terminal UI.
func NewUI(in io.Reader, out io.Writer) *UI {
	return &UI{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan lineResult),
	}
}

// Notify prints a titled message.
func (u *UI) Notify(ctx context.Context, title, message string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, err := fmt.Fprintf(u.out, "[%s] %s\n", title, message)
	return err
}

// ChooseOne lists options and reads a number or an exact option name.
// An empty answer or end of input cancels.
func (u *UI) ChooseOne(ctx context.Context, title string, options []string) (string, bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	fmt.Fprintf(u.out, "%s\n", title)
	for i, option := range options {
		fmt.Fprintf(u.out, "  %d) %s\n", i+1, option)
	}

	for {
		fmt.Fprint(u.out, "choice (empty to cancel): ")
		line, ok, err := u.readLine(ctx)
		if err != nil || !ok || line == "" {
			return "", false, err
		}

		if n, convErr := strconv.Atoi(line); convErr == nil && n >= 1 && n <= len(options) {
			return options[n-1], true, nil
		}
		for _, option := range options {
			if option == line {
				return option, true, nil
			}
		}
		fmt.Fprintf(u.out, "unknown choice %q\n", line)
	}
}

// PromptText reads one line. End of input cancels.
func (u *UI) PromptText(ctx context.Context, title, message string) (string, bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	fmt.Fprintf(u.out, "%s\n%s: ", title, message)
	return u.readLine(ctx)
}

// ReadCommand prints prompt and reads the next shell line.
func (u *UI) ReadCommand(ctx context.Context, prompt string) (string, bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	fmt.Fprint(u.out, prompt)
	return u.readLine(ctx)
}

// Printf writes formatted output.
func (u *UI) Printf(format string, args ...interface{}) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintf(u.out, format, args...)
}

// readLoop feeds lines until the reader fails or ends.
func (u *UI) readLoop() {
	defer close(u.lines)
	for {
		line, err := u.in.ReadString('\n')
		u.lines <- lineResult{line: line, err: err}
		if err != nil {
			return
		}
	}
}

// readLine returns the trimmed line; ok is false at end of input. It returns
// ctx.Err() as soon as ctx is done, even while the reader is blocked.
func (u *UI) readLine(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	u.readOnce.Do(func() { go u.readLoop() })

	var res lineResult
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case r, open := <-u.lines:
		if !open {
			return "", false, nil
		}
		res = r
	}

	if errors.Is(res.err, io.EOF) {
		if res.line == "" {
			return "", false, nil
		}
	} else if res.err != nil {
		return "", false, res.err
	}
	return strings.TrimSpace(res.line), true, nil
}
