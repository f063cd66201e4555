package repl

import "strings"

// KeyAction represents the logical meaning of a decoded key.
type KeyAction int

// Key action constants. ActionInsert carries a printable rune; every other
// action is a control key.
const (
	ActionNone KeyAction = iota
	ActionInsert
	ActionSubmit
	ActionBackspace
	ActionInterrupt
	ActionEOF
	ActionHistoryPrev
	ActionHistoryNext
)

// String returns a short name for the action, used in log attributes.
func (a KeyAction) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionSubmit:
		return "submit"
	case ActionBackspace:
		return "backspace"
	case ActionInterrupt:
		return "interrupt"
	case ActionEOF:
		return "eof"
	case ActionHistoryPrev:
		return "history-prev"
	case ActionHistoryNext:
		return "history-next"
	default:
		return "none"
	}
}

// Key is a single decoded logical key. Rune is only meaningful for
// ActionInsert.
type Key struct {
	Action KeyAction
	Rune   rune
}

// Predefined keys for the control identities.
var (
	KeyEnter     = Key{Action: ActionSubmit}
	KeyBackspace = Key{Action: ActionBackspace}
	KeyInterrupt = Key{Action: ActionInterrupt}
	KeyEOF       = Key{Action: ActionEOF}
	KeyUp        = Key{Action: ActionHistoryPrev}
	KeyDown      = Key{Action: ActionHistoryNext}
)

// Char returns the key for a printable character. Runes below space are
// decoded as ActionNone so they are dropped by the session.
func Char(r rune) Key {
	if r < ' ' {
		return Key{}
	}
	return Key{Action: ActionInsert, Rune: r}
}

// Keys converts a string into a sequence of printable keys. It is a
// convenience for scripting sessions in tests and examples.
func Keys(s string) []Key {
	keys := make([]Key, 0, len(s))
	for _, r := range s {
		keys = append(keys, Char(r))
	}
	return keys
}

// KeyMap holds the key binding configuration.
type KeyMap struct {
	bindings  map[rune]KeyAction
	sequences map[string]KeyAction
}

// NewDefaultKeyMap creates the default key bindings for a session.
//
// Default key bindings:
//   - Enter/Return (\r, \n): Submit the line
//   - Backspace (\x7f, \b): Erase the last character
//   - Ctrl+C: Discard the current command
//   - Ctrl+D: End the session on an empty prompt
//   - Up/Down arrows: Recall history entries
//
// Every other control character and escape sequence is dropped.
func NewDefaultKeyMap() *KeyMap {
	km := &KeyMap{
		bindings:  make(map[rune]KeyAction),
		sequences: make(map[string]KeyAction),
	}

	km.bindings['\r'] = ActionSubmit
	km.bindings['\n'] = ActionSubmit
	km.bindings['\x7f'] = ActionBackspace
	km.bindings['\b'] = ActionBackspace
	km.bindings['\x03'] = ActionInterrupt // Ctrl+C
	km.bindings['\x04'] = ActionEOF       // Ctrl+D

	km.sequences["[A"] = ActionHistoryPrev
	km.sequences["[B"] = ActionHistoryNext
	km.sequences["OA"] = ActionHistoryPrev // application cursor mode
	km.sequences["OB"] = ActionHistoryNext

	return km
}

// Bind adds or updates a key binding for a single character.
//
// Example:
//
//	keyMap := repl.NewDefaultKeyMap()
//	// Treat Ctrl+U as an interrupt
//	keyMap.Bind('\x15', repl.ActionInterrupt)
func (km *KeyMap) Bind(key rune, action KeyAction) {
	km.bindings[key] = action
}

// BindSequence adds or updates an escape sequence binding. The sequence
// should not include the initial ESC character.
func (km *KeyMap) BindSequence(seq string, action KeyAction) {
	km.sequences[seq] = action
}

// GetAction returns the action for a key, or ActionNone if not bound
func (km *KeyMap) GetAction(key rune) KeyAction {
	if km == nil || km.bindings == nil {
		return ActionNone
	}
	if action, exists := km.bindings[key]; exists {
		return action
	}
	return ActionNone
}

// GetSequenceAction returns the action for an escape sequence, or ActionNone if not bound
func (km *KeyMap) GetSequenceAction(seq string) KeyAction {
	if km == nil || km.sequences == nil {
		return ActionNone
	}
	if action, exists := km.sequences[seq]; exists {
		return action
	}
	return ActionNone
}

// Decode turns a single rune into a Key. Bound runes win over printable
// insertion, so DEL (0x7f) is a backspace rather than a character.
func (km *KeyMap) Decode(r rune) Key {
	if action := km.GetAction(r); action != ActionNone {
		return Key{Action: action}
	}
	return Char(r)
}

// DecodeSequence turns an escape sequence (without the leading ESC) into a
// Key. Unbound sequences decode as ActionNone.
func (km *KeyMap) DecodeSequence(seq string) Key {
	return Key{Action: km.GetSequenceAction(seq)}
}

// keyReader decodes runes from a terminal into keys.
type keyReader struct {
	terminal terminalInterface
	keyMap   *KeyMap
}

// ReadKey blocks until one key has been decoded. Unknown escape sequences are
// returned as ActionNone keys.
func (kr *keyReader) ReadKey() (Key, error) {
	r, _, err := kr.terminal.ReadRune()
	if err != nil {
		return Key{}, err
	}
	if r != '\x1b' {
		return kr.keyMap.Decode(r), nil
	}
	seq, err := kr.readEscapeSequence()
	if err != nil {
		return Key{}, err
	}
	return kr.keyMap.DecodeSequence(seq), nil
}

func (kr *keyReader) readEscapeSequence() (string, error) {
	seq := make([]rune, 0, 10)
	for range 10 { // Limit to prevent infinite loop
		r, _, err := kr.terminal.ReadRune()
		if err != nil {
			return "", err
		}
		seq = append(seq, r)

		s := string(seq)
		if len(seq) == 1 && r != '[' && r != 'O' {
			return s, nil // Alt+key
		}
		if len(seq) == 2 && (seq[0] == '[' || seq[0] == 'O') && (r < '0' || r > '9') && r != ';' {
			return s, nil
		}
		if strings.HasSuffix(s, "~") && len(s) >= 3 {
			return s, nil
		}
		if len(seq) >= 3 && (r < '0' || r > '9') && r != ';' {
			return s, nil
		}
	}
	return string(seq), nil
}
