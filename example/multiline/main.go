// Package main demonstrates multi-line commands with the repl library.
//
// Lines are collected until an empty line is entered, then the whole block
// is reported with line numbers.
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
	fmt.Println("Multiline Input Example")
	fmt.Println("Enter text:")
	fmt.Println("  - Each non-empty line continues the block")
	fmt.Println("  - An empty line submits the block")
	fmt.Println("Press Ctrl+D to exit")
	fmt.Println()

	s, err := repl.New(repl.EvaluatorFunc(block),
		repl.WithPrompt("multi> "),
		repl.WithContinuationPrompt("  ... "),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	if err := s.Run(); err != nil && !errors.Is(err, repl.ErrEOF) {
		log.Fatal(err)
	}
	fmt.Println("\nGoodbye!")
}

// block asks for more input while the last line is non-empty.
func block(_ context.Context, text string, hint bool, h repl.Handler) error {
	if hint {
		h.ContinuationRequested()
		return nil
	}

	text = strings.TrimRight(text, "\n")
	if text == "" {
		h.SessionReset()
		return nil
	}

	lines := strings.Split(text, "\n")
	h.OutputLine("--- Your input ---")
	for i, line := range lines {
		h.OutputLine(fmt.Sprintf("%3d: %s", i+1, line))
	}
	h.OutputLine(fmt.Sprintf("Total lines: %d", len(lines)))
	h.OutputLine(fmt.Sprintf("Total characters: %d", len(text)))
	h.OutputLine("--- End of input ---")
	h.SessionReset()
	return nil
}
