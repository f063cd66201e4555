// Package main demonstrates basic usage of the repl library.
//
// The evaluator echoes each command back in upper case. A line ending in a
// backslash continues on the next line.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/nao1215/repl"
)

func main() {
	fmt.Println("Basic REPL Example")
	fmt.Println("End a line with '\\' to continue it")
	fmt.Println("Press Ctrl+D to exit")
	fmt.Println()

	s, err := repl.New(repl.EvaluatorFunc(echo))
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	if err := s.Run(); err != nil && !errors.Is(err, repl.ErrEOF) {
		log.Fatal(err)
	}
	fmt.Println("\nGoodbye!")
}

func echo(_ context.Context, text string, hint bool, h repl.Handler) error {
	if hint && strings.HasSuffix(text, "\\") {
		h.ContinuationRequested()
		return nil
	}

	command := strings.TrimSpace(strings.ReplaceAll(text, "\\\n", " "))
	switch {
	case command == "":
	case strings.HasSuffix(command, "\\"):
		h.EvaluationError("line continuation without a following line")
	default:
		h.OutputLine(strings.ToUpper(command))
	}
	h.SessionReset()
	return nil
}
