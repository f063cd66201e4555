package repl

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChar(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Key{Action: ActionInsert, Rune: 'a'}, Char('a'))
	assert.Equal(t, Key{Action: ActionInsert, Rune: ' '}, Char(' '))
	assert.Equal(t, Key{Action: ActionInsert, Rune: 'λ'}, Char('λ'))
	assert.Equal(t, Key{}, Char('\x01'), "Expected control characters to decode as ActionNone")
}

func TestKeys(t *testing.T) {
	t.Parallel()

	keys := Keys("if λ")
	require.Len(t, keys, 4)
	for i, r := range []rune("if λ") {
		assert.Equal(t, Char(r), keys[i])
	}
	assert.Empty(t, Keys(""))
}

func TestKeyActionString(t *testing.T) {
	t.Parallel()

	tests := map[KeyAction]string{
		ActionNone:        "none",
		ActionInsert:      "insert",
		ActionSubmit:      "submit",
		ActionBackspace:   "backspace",
		ActionInterrupt:   "interrupt",
		ActionEOF:         "eof",
		ActionHistoryPrev: "history-prev",
		ActionHistoryNext: "history-next",
		KeyAction(99):     "none",
	}
	for action, want := range tests {
		assert.Equal(t, want, action.String())
	}
}

func TestDefaultKeyMapDecode(t *testing.T) {
	t.Parallel()

	km := NewDefaultKeyMap()

	tests := []struct {
		name string
		r    rune
		want Key
	}{
		{name: "carriage return", r: '\r', want: KeyEnter},
		{name: "line feed", r: '\n', want: KeyEnter},
		{name: "DEL", r: '\x7f', want: KeyBackspace},
		{name: "BS", r: '\b', want: KeyBackspace},
		{name: "Ctrl+C", r: '\x03', want: KeyInterrupt},
		{name: "Ctrl+D", r: '\x04', want: KeyEOF},
		{name: "Tab is dropped", r: '\t', want: Key{}},
		{name: "Ctrl+A is dropped", r: '\x01', want: Key{}},
		{name: "printable", r: 'x', want: Char('x')},
		{name: "space", r: ' ', want: Char(' ')},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, km.Decode(tt.r))
		})
	}
}

func TestKeyMapBind(t *testing.T) {
	t.Parallel()

	km := NewDefaultKeyMap()
	km.Bind('\x15', ActionInterrupt) // Ctrl+U
	km.BindSequence("[5~", ActionHistoryPrev)

	assert.Equal(t, KeyInterrupt, km.Decode('\x15'))
	assert.Equal(t, KeyUp, km.DecodeSequence("[5~"))
	assert.Equal(t, KeyUp, km.DecodeSequence("[A"))
	assert.Equal(t, KeyDown, km.DecodeSequence("OB"))
	assert.Equal(t, Key{}, km.DecodeSequence("[C"), "Expected unbound sequences to be dropped")

	var nilMap *KeyMap
	assert.Equal(t, ActionNone, nilMap.GetAction('\r'))
	assert.Equal(t, ActionNone, nilMap.GetSequenceAction("[A"))
}

func TestKeyReader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []Key
	}{
		{
			name:  "text and enter",
			input: "ab\r",
			want:  []Key{Char('a'), Char('b'), KeyEnter},
		},
		{
			name:  "arrow keys",
			input: "\x1b[A\x1b[B\x1bOA",
			want:  []Key{KeyUp, KeyDown, KeyUp},
		},
		{
			name:  "unbound sequences are dropped",
			input: "\x1b[C\x1b[3~x",
			want:  []Key{{}, {}, Char('x')},
		},
		{
			name:  "alt+key does not swallow the next key",
			input: "\x1bfx",
			want:  []Key{{}, Char('x')},
		},
		{
			name:  "modified arrow",
			input: "\x1b[1;5Ay",
			want:  []Key{{}, Char('y')},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kr := &keyReader{terminal: newMockTerminal(tt.input), keyMap: NewDefaultKeyMap()}

			var got []Key
			for {
				k, err := kr.ReadKey()
				if errors.Is(err, io.EOF) {
					break
				}
				require.NoError(t, err)
				got = append(got, k)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeyReaderTruncatedSequence(t *testing.T) {
	t.Parallel()

	kr := &keyReader{terminal: newMockTerminal("\x1b["), keyMap: NewDefaultKeyMap()}
	_, err := kr.ReadKey()
	assert.ErrorIs(t, err, io.EOF)
}
