// Package main demonstrates history management features of the repl library.
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
	fmt.Println("History Example with File Persistence")
	fmt.Println("Use Up/Down arrow keys to navigate history")
	fmt.Println("Type 'history' to see command history")
	fmt.Println("Press Ctrl+D to exit")
	fmt.Printf("History is automatically saved to %s\n", repl.GetDefaultHistoryFile())
	fmt.Println()

	var s *repl.Session
	ev := repl.EvaluatorFunc(func(_ context.Context, text string, _ bool, h repl.Handler) error {
		switch command := strings.TrimSpace(text); command {
		case "":
		case "history":
			for i, entry := range s.History() {
				h.OutputLine(fmt.Sprintf("  %3d: %s", i+1, entry))
			}
		default:
			h.OutputLine("Executed: " + command)
		}
		h.SessionReset()
		return nil
	})

	// Entries are loaded from the file when the session starts and saved
	// again on Close. Paths may be absolute, relative or start with "~/".
	var err error
	s, err = repl.New(ev,
		repl.WithPrompt("history> "),
		repl.WithFileHistory(repl.GetDefaultHistoryFile(), 1000),
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
