package repl

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"golang.org/x/term"
)

func TestMockTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "simple input", input: "hello"},
		{name: "empty input", input: ""},
		{name: "unicode input", input: "こんにちは"},
		{name: "control characters", input: "a\x7f\r\x03\x1b[A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mock := newMockTerminal(tt.input)

			if err := mock.SetRaw(); err != nil {
				t.Errorf("SetRaw() error = %v", err)
			}
			if !mock.rawMode {
				t.Error("Expected rawMode to be true after SetRaw()")
			}

			for i, expectedRune := range []rune(tt.input) {
				r, size, err := mock.ReadRune()
				if err != nil {
					t.Errorf("ReadRune() at position %d error = %v", i, err)
				}
				if r != expectedRune {
					t.Errorf("Expected rune %q, got %q at position %d", expectedRune, r, i)
				}
				if size != 1 {
					t.Errorf("Expected size 1, got %d at position %d", size, i)
				}
			}

			// Test EOF after input is consumed
			if _, _, err := mock.ReadRune(); !errors.Is(err, io.EOF) {
				t.Errorf("Expected EOF after consuming all input, got %v", err)
			}

			if err := mock.Restore(); err != nil {
				t.Errorf("Restore() error = %v", err)
			}
			if mock.rawMode {
				t.Error("Expected rawMode to be false after Restore()")
			}

			if err := mock.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
			if !mock.closed {
				t.Error("Expected closed to be true after Close()")
			}
		})
	}
}

func TestLineTerminal(t *testing.T) {
	t.Parallel()

	lt := newLineTerminal(strings.NewReader("1+1\nλ"))

	// Raw mode is meaningless for piped input
	if err := lt.SetRaw(); err != nil {
		t.Errorf("SetRaw() error = %v", err)
	}

	var got []rune
	for {
		r, _, err := lt.ReadRune()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadRune() error = %v", err)
		}
		got = append(got, r)
	}
	if string(got) != "1+1\nλ" {
		t.Errorf("Expected %q, got %q", "1+1\nλ", string(got))
	}

	if err := lt.Restore(); err != nil {
		t.Errorf("Restore() error = %v", err)
	}
	if err := lt.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestLineTerminalLineEndings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lf", input: "a\nb\n", want: "a\nb\n"},
		{name: "crlf", input: "a\r\nb\r\n", want: "a\nb\n"},
		{name: "lone cr", input: "a\rb\r", want: "a\nb\n"},
		{name: "blank crlf line", input: "a\r\n\r\nb", want: "a\n\nb"},
		{name: "cr then lf line", input: "a\r\r\n", want: "a\n\n"},
		{name: "trailing cr", input: "a\r", want: "a\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			lt := newLineTerminal(strings.NewReader(tt.input))

			var got []rune
			for {
				r, _, err := lt.ReadRune()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					t.Fatalf("ReadRune() error = %v", err)
				}
				got = append(got, r)
			}
			if string(got) != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, string(got))
			}
		})
	}
}

type closeCounter struct {
	io.Reader
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func TestLineTerminalClose(t *testing.T) {
	t.Parallel()

	in := &closeCounter{Reader: strings.NewReader("")}
	lt := newLineTerminal(in)

	if err := lt.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := lt.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if in.closed != 1 {
		t.Errorf("Expected the input to be closed once, got %d", in.closed)
	}
}

func TestTerminalInterface(t *testing.T) {
	t.Parallel()

	var _ terminalInterface = (*mockTerminal)(nil)
	var _ terminalInterface = (*lineTerminal)(nil)
	var _ terminalInterface = (*realTerminal)(nil)
}

func TestIsInteractive(t *testing.T) {
	t.Parallel()

	f, err := os.CreateTemp(t.TempDir(), "not-a-tty")
	if err != nil {
		t.Fatalf("CreateTemp() error = %v", err)
	}
	defer f.Close()

	if isInteractive(f) {
		t.Error("Expected a regular file not to be interactive")
	}

	// Invalid descriptors are never terminals
	if term.IsTerminal(-1) {
		t.Error("Expected IsTerminal(-1) to return false")
	}
}

func TestRealTerminalCloseWithoutTTY(t *testing.T) {
	t.Parallel()

	terminal := &realTerminal{}

	// Close should handle nil tty gracefully and return nil
	if err := terminal.Close(); err != nil {
		t.Errorf("Close() with nil tty should not error, got: %v", err)
	}
	if err := terminal.Restore(); err != nil {
		t.Errorf("Restore() without SetRaw should not error, got: %v", err)
	}
}

func TestRealTerminalMultipleSetRawRestore(t *testing.T) {
	if os.Getenv("GITHUB_ACTIONS") == "" {
		t.Skip("Skipping real terminal test in local development")
	}

	terminal, err := newRealTerminal()
	if err != nil {
		t.Skipf("Cannot create real terminal in this environment: %v", err)
	}
	defer terminal.Close()

	for i := range 3 {
		if err := terminal.SetRaw(); err != nil {
			t.Skipf("SetRaw() cycle %d failed: %v (may be expected in CI)", i, err)
		}
		if err := terminal.Restore(); err != nil {
			t.Errorf("Restore() cycle %d failed: %v", i, err)
			return
		}
	}

	// Double close must not panic
	if err := terminal.Close(); err != nil {
		t.Errorf("First close failed: %v", err)
	}
	if err := terminal.Close(); err != nil {
		t.Errorf("Second close should not fail: %v", err)
	}
}

func TestStdoutWriter(t *testing.T) {
	t.Parallel()

	if stdoutWriter() == nil {
		t.Error("Expected non-nil stdout writer")
	}
}
