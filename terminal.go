package repl

import (
	"bufio"
	"io"
	"os"
	"runtime"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-tty"
	"golang.org/x/term"
)

// terminalInterface abstracts the input side of the terminal surface.
//
// Implementations:
//   - realTerminal: go-tty input with golang.org/x/term raw mode
//   - lineTerminal: plain rune reader for piped or redirected stdin
//   - mockTerminal: scripted input for tests
type terminalInterface interface {
	SetRaw() error                // Enter raw mode for immediate key processing
	Restore() error               // Restore original terminal settings
	ReadRune() (rune, int, error) // Read a single Unicode character from input
	Close() error                 // Clean up resources and prevent fd leaks
}

// realTerminal implements terminalInterface using go-tty for input and
// golang.org/x/term for raw mode management.
//
// The 'closed' flag prevents a Windows panic on double Close, and the
// original terminal state is captured on every SetRaw so Restore always
// returns to a known baseline.
type realTerminal struct {
	tty           *tty.TTY    // TTY handle from go-tty for cross-platform terminal operations
	closed        bool        // Track if terminal is already closed to prevent double-close panic on Windows
	stdinFd       int         // File descriptor for stdin for raw mode management
	originalState *term.State // Original terminal state to restore on exit
}

func newRealTerminal() (*realTerminal, error) {
	t, err := tty.Open()
	if err != nil {
		return nil, err
	}
	return &realTerminal{
		tty:     t,
		stdinFd: int(os.Stdin.Fd()),
	}, nil
}

func (t *realTerminal) SetRaw() error {
	if term.IsTerminal(t.stdinFd) {
		state, err := term.GetState(t.stdinFd)
		if err != nil {
			return err
		}
		t.originalState = state

		if _, err := term.MakeRaw(t.stdinFd); err != nil {
			return err
		}
	}
	return nil
}

func (t *realTerminal) Restore() error {
	if t.originalState != nil && term.IsTerminal(t.stdinFd) {
		err := term.Restore(t.stdinFd, t.originalState)
		// Reset the state so that SetRaw can capture a fresh baseline next time
		t.originalState = nil
		return err
	}
	return nil
}

func (t *realTerminal) ReadRune() (rune, int, error) {
	r, err := t.tty.ReadRune()
	if err != nil {
		return 0, 0, err
	}
	return r, 1, nil
}

func (t *realTerminal) Close() error {
	// Prevent double-close which causes panic on Windows
	if t.closed {
		return nil
	}
	if t.tty != nil {
		err := t.tty.Close()
		t.closed = true
		return err
	}
	return nil
}

// lineTerminal reads keys from a non-interactive input such as a pipe. The
// input is already line-buffered by whatever produced it, so raw mode is a
// no-op and newlines decode as Enter. "\r\n" and a lone "\r" are read as a
// single "\n".
type lineTerminal struct {
	reader  *bufio.Reader
	closer  io.Closer
	afterCR bool // the previous rune was '\r'
}

func newLineTerminal(in io.Reader) *lineTerminal {
	lt := &lineTerminal{reader: bufio.NewReader(in)}
	if c, ok := in.(io.Closer); ok {
		lt.closer = c
	}
	return lt
}

func (t *lineTerminal) SetRaw() error  { return nil }
func (t *lineTerminal) Restore() error { return nil }

func (t *lineTerminal) ReadRune() (rune, int, error) {
	r, size, err := t.reader.ReadRune()
	if err != nil {
		return r, size, err
	}
	if t.afterCR && r == '\n' {
		r, size, err = t.reader.ReadRune()
		if err != nil {
			t.afterCR = false
			return r, size, err
		}
	}
	t.afterCR = r == '\r'
	if r == '\r' {
		return '\n', size, nil
	}
	return r, size, nil
}

func (t *lineTerminal) Close() error {
	if t.closer == nil {
		return nil
	}
	err := t.closer.Close()
	t.closer = nil
	return err
}

// isInteractive reports whether f is a terminal, including Cygwin/MSYS
// pseudo terminals on Windows.
func isInteractive(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// openTerminal picks the terminal implementation for the current process.
// The returned bool reports whether the terminal runs in raw mode, which
// requires "\r\n" line endings.
func openTerminal() (terminalInterface, bool, error) {
	if !isInteractive(os.Stdin) {
		return newLineTerminal(os.Stdin), false, nil
	}
	t, err := newRealTerminal()
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// stdoutWriter returns a color-capable stdout.
func stdoutWriter() io.Writer {
	if runtime.GOOS == "windows" {
		// Use colorable for Windows ANSI color support
		return colorable.NewColorableStdout()
	}
	return os.Stdout
}
