// Package main runs a golisp REPL on top of the repl library.
//
// Expressions may span several lines; the continuation prompt is shown until
// the parentheses balance. Session events are logged to a file and history is
// kept in a bbolt database.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/nao1215/repl"
	"github.com/nao1215/repl/lisp"
	"github.com/nao1215/repl/observability"
)

func main() {
	configFile := flag.String("config", "", "YAML config file")
	initFile := flag.String("init", "", "lisp file evaluated before the first prompt")
	logFile := flag.String("log", "repl.log", "file that receives session events")
	historyFile := flag.String("history", "~/.config/repl/lisp_history.db", "bbolt history database, unless the config file sets one")
	verbose := flag.Bool("verbose", false, "also log output lines, continuations and queued keys")
	flag.Parse()

	if err := run(*configFile, *initFile, *logFile, *historyFile, *verbose); err != nil {
		log.Fatal(err)
	}
	fmt.Println("\nGoodbye!")
}

func run(configFile, initFile, logFile, historyFile string, verbose bool) error {
	cfg := repl.DefaultConfig()
	if configFile != "" {
		loaded, err := repl.LoadConfig(configFile)
		if err != nil {
			return err
		}
		cfg = *loaded
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	minLevel := observability.LevelInfo
	if verbose {
		minLevel = observability.LevelVerbose
	}
	observer := observability.Filter(minLevel, observability.NewSlogObserver(logger))

	ev, err := lisp.New("repl")
	if err != nil {
		return err
	}
	if initFile != "" {
		if err := ev.LoadFile(initFile); err != nil {
			return err
		}
	}
	async := repl.NewAsyncEvaluator(ev)
	defer async.Close()

	fmt.Println("golisp REPL")
	fmt.Println("Press Ctrl+C to discard an expression, Ctrl+D to exit")
	fmt.Println()

	// A history section in the config file replaces the -history default
	s, err := repl.New(async,
		repl.WithBoltHistory(historyFile, 1000),
		cfg.Options(),
		repl.WithObserver(observer),
	)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Run(); err != nil && !errors.Is(err, repl.ErrEOF) {
		return err
	}
	return nil
}
