// Package repl provides an interactive read-eval-print session controller.
//
// A Session sits between a character terminal and a language evaluator. It
// turns keystrokes into logical input lines, folds them into a multi-line
// command, hands the command to an Evaluator, and renders the evaluator's
// responses (output lines, errors, prompts) back to the terminal.
//
// Key Features:
//
//   - Primary and continuation prompts for multi-line commands
//   - A four-event evaluator protocol that works with synchronous and
//     asynchronous evaluators alike
//   - Guarded submissions: keys typed while the evaluator is busy are queued
//     or rejected
//   - Command history in memory, in a rotated text file or in a bbolt database
//   - Optional color themes, configurable key bindings and YAML config files
//   - Structured session events through the observability package
//
// Quick Start:
//
//	package main
//
//	import (
//		"context"
//		"errors"
//		"log"
//		"strings"
//
//		"github.com/nao1215/repl"
//	)
//
//	func main() {
//		ev := repl.EvaluatorFunc(func(ctx context.Context, text string, hint bool, h repl.Handler) error {
//			if strings.TrimSpace(text) != "" {
//				h.OutputLine(strings.ToUpper(text))
//			}
//			h.SessionReset()
//			return nil
//		})
//
//		s, err := repl.New(ev)
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer s.Close()
//
//		if err := s.Run(); err != nil && !errors.Is(err, repl.ErrEOF) {
//			log.Fatal(err)
//		}
//	}
//
// Evaluator Protocol:
//
// Every Enter submits the whole accumulated command together with a hint
// that reports whether the last line was non-empty. For each submission the
// evaluator reports zero or more OutputLine calls, at most one
// EvaluationError, and then exactly one of:
//
//   - ContinuationRequested: the command is incomplete; the session appends a
//     newline to it and writes the continuation prompt ": "
//   - SessionReset: the command is finished; the session clears it and writes
//     the primary prompt "> "
//
// The Handler passed to Submit is safe for concurrent use. Responses are
// applied by the goroutine that drives the session, either inside HandleKey
// for synchronous evaluators or by Run as they arrive.
//
// Key Bindings:
//
//   - Enter: Submit the line
//   - Backspace: Erase the last character
//   - Ctrl+C: Discard the current command
//   - Ctrl+D: End the session on an empty primary prompt
//   - Up/Down arrows: Recall history entries
//
// Error Handling:
//
//   - repl.ErrEOF: Ctrl+D on an empty prompt or end of input
//   - repl.ErrSubmissionPending: key rejected by PendingReject
//   - repl.ErrEvaluatorClosed: AsyncEvaluator used after Close
//   - context.Canceled / context.DeadlineExceeded: from RunWithContext
//
// Thread Safety:
//
// A Session is not safe for concurrent use. Drive it from a single goroutine
// and let evaluators respond through the Handler they are given.
//
// Resource Management:
//
// Always call Close when done with a session. Close saves the history and
// releases the terminal, and it is safe to call multiple times.
package repl
