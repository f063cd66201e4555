package repl

import "io"

// mockTerminal implements terminalInterface for testing.
//
// It replays a pre-configured rune sequence and then reports io.EOF, and it
// tracks raw mode so tests can verify that Run restores the terminal.
type mockTerminal struct {
	input    []rune // Pre-configured input sequence for testing
	inputPos int    // Current position in the input sequence
	rawMode  bool   // Track raw mode state for test verification
	closed   bool
}

func newMockTerminal(input string) *mockTerminal {
	return &mockTerminal{
		input: []rune(input),
	}
}

func (m *mockTerminal) SetRaw() error {
	m.rawMode = true
	return nil
}

func (m *mockTerminal) Restore() error {
	m.rawMode = false
	return nil
}

func (m *mockTerminal) ReadRune() (rune, int, error) {
	if m.inputPos >= len(m.input) {
		return 0, 0, io.EOF
	}
	r := m.input[m.inputPos]
	m.inputPos++
	return r, 1, nil
}

func (m *mockTerminal) Close() error {
	m.closed = true
	return nil
}
