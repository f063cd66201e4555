package lisp

// Incomplete reports whether text stops inside a string literal or inside an
// unclosed list, vector or frame, so that more input could finish it.
// Comments run from ';' to the end of the line.
func Incomplete(text string) bool {
	depth := 0
	inString, escaped, inComment := false, false, false

	for _, r := range text {
		switch {
		case inComment:
			if r == '\n' {
				inComment = false
			}
		case inString:
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
		case r == ';':
			inComment = true
		case r == '"':
			inString = true
		case r == '(' || r == '[' || r == '{':
			depth++
		case r == ')' || r == ']' || r == '}':
			depth--
			if depth < 0 {
				// A stray closer cannot be fixed by more input
				return false
			}
		}
	}
	return inString || depth > 0
}
