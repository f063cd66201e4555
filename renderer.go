package repl

import (
	"fmt"
	"io"
	"strings"
)

// eraseSequence moves the cursor back one column, blanks the cell and moves
// back again.
const eraseSequence = "\b \b"

// renderer performs every terminal write of a session.
//
// The renderer owns the three write primitives of the terminal surface:
//   - write: raw text with no implicit line ending
//   - writeLine: text followed by the configured line ending
//   - erase: the visual backspace sequence
//
// Colors are applied only when a color scheme is configured, so with the
// defaults the byte stream holds exactly the prompts and echoed text.
// The first write error is latched and later writes are skipped.
type renderer struct {
	output      io.Writer    // Target output writer (typically stdout or colorable wrapper)
	colorScheme *ColorScheme // nil renders plain text
	lineEnding  string       // "\n", or "\r\n" for raw-mode terminals
	err         error        // First write error
}

func newRenderer(output io.Writer, colorScheme *ColorScheme, lineEnding string) *renderer {
	if lineEnding == "" {
		lineEnding = "\n"
	}
	return &renderer{
		output:      output,
		colorScheme: colorScheme,
		lineEnding:  lineEnding,
	}
}

func (r *renderer) write(s string) {
	if r.err != nil || s == "" {
		return
	}
	if _, err := io.WriteString(r.output, s); err != nil {
		r.err = fmt.Errorf("failed to write to terminal: %w", err)
	}
}

func (r *renderer) writeLine(s string) {
	r.write(s + r.lineEnding)
}

// newline writes a bare line ending.
func (r *renderer) newline() {
	r.write(r.lineEnding)
}

// colored wraps s in the ANSI codes of c when colors are enabled.
func (r *renderer) colored(c *Color, s string) string {
	if r.colorScheme == nil || c == nil {
		return s
	}
	return c.ToANSI() + s + Reset()
}

// prompt writes the prompt for the given mode.
func (r *renderer) prompt(mode PromptMode, text string) {
	var c *Color
	if r.colorScheme != nil {
		c = &r.colorScheme.Prompt
		if mode == ModeContinuation {
			c = &r.colorScheme.Continuation
		}
	}
	r.write(r.colored(c, text))
}

// echo writes typed characters back to the terminal.
func (r *renderer) echo(s string) {
	var c *Color
	if r.colorScheme != nil {
		c = &r.colorScheme.Input
	}
	r.write(r.colored(c, s))
}

// erase removes n characters before the cursor.
func (r *renderer) erase(n int) {
	if n <= 0 {
		return
	}
	r.write(strings.Repeat(eraseSequence, n))
}

func (r *renderer) outputLine(s string) {
	var c *Color
	if r.colorScheme != nil {
		c = &r.colorScheme.Output
	}
	r.writeLine(r.colored(c, s))
}

func (r *renderer) errorLine(prefix, message string) {
	var c *Color
	if r.colorScheme != nil {
		c = &r.colorScheme.Error
	}
	r.writeLine(r.colored(c, prefix+message))
}
