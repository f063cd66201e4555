package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/repl/observability"
)

var (
	// ErrEOF is returned when the user presses Ctrl+D on an empty prompt or
	// the input ends
	ErrEOF = errors.New("EOF")
	// ErrSubmissionPending is returned for keys rejected while a submission
	// is waiting for its evaluator
	ErrSubmissionPending = errors.New("submission pending")
	// ErrEvaluatorClosed is returned by AsyncEvaluator.Submit after Close
	ErrEvaluatorClosed = errors.New("evaluator closed")
	// ErrNoInput is returned by Run when the session has no key source
	ErrNoInput = errors.New("session has no input")
)

// lineSeparator is appended to the accumulation buffer between continuation
// rounds.
const lineSeparator = "\n"

// PromptMode is the phase of the current command.
type PromptMode int

const (
	// ModePrimary is a fresh command.
	ModePrimary PromptMode = iota
	// ModeContinuation is the middle of a multi-line command.
	ModeContinuation
)

func (m PromptMode) String() string {
	if m == ModeContinuation {
		return "continuation"
	}
	return "primary"
}

// Session turns keystrokes into evaluator submissions and evaluator
// responses into terminal output.
//
// A Session is driven by one goroutine: either the caller of HandleKey and
// Flush, or Run. Evaluators never see the Session itself. They receive a
// goroutine-safe Handler whose events are applied by the driving goroutine,
// so they may respond from inside Submit or from any other goroutine.
type Session struct {
	id             string
	config         Config
	evaluator      Evaluator
	renderer       *renderer
	observer       observability.Observer
	keyMap         *KeyMap
	historyManager *HistoryManager
	terminal       terminalInterface // nil when keys only arrive through HandleKey
	inbox          *inbox

	mode    PromptMode
	buffer  string // accumulation buffer
	line    []rune // line buffer
	pending bool   // a submission is waiting for its evaluator
	queued  []Key  // keys held while pending

	flushing     bool
	historyIndex int    // == historyManager.Len() when not browsing
	savedLine    string // line being edited before browsing started

	// The key reader outlives a single Run, so a key read after a cancelled
	// Run is delivered to the next one.
	readerOnce sync.Once
	keys       chan Key
	readErr    chan error
	inputErr   error // read error already received, io.EOF once input ended
	closed     chan struct{}
	closeOnce  sync.Once
}

// New creates a session on the process terminal and stdout.
//
// When stdin is a terminal it is read through go-tty in raw mode and lines
// end with "\r\n". Otherwise stdin is read in line mode. Call Close when the
// session is no longer needed.
//
// Example:
//
//	s, err := repl.New(evaluator, repl.WithTheme("dracula"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer s.Close()
//
//	if err := s.Run(); err != nil && !errors.Is(err, repl.ErrEOF) {
//		log.Fatal(err)
//	}
func New(ev Evaluator, options ...Option) (*Session, error) {
	config := DefaultConfig()
	for _, option := range options {
		option(&config)
	}

	terminal, raw, err := openTerminal()
	if err != nil {
		return nil, fmt.Errorf("failed to create terminal: %w", err)
	}
	if raw && config.LineEnding == "" {
		config.LineEnding = "\r\n"
	}

	s, err := newSession(terminal, stdoutWriter(), ev, config)
	if err != nil {
		terminal.Close()
		return nil, err
	}
	return s, nil
}

// NewSession creates a session writing to output. Keys are fed with
// HandleKey, or read by Run when WithInput is given. The primary prompt is
// written before NewSession returns.
func NewSession(output io.Writer, ev Evaluator, options ...Option) (*Session, error) {
	config := DefaultConfig()
	for _, option := range options {
		option(&config)
	}

	var terminal terminalInterface
	if config.Input != nil {
		terminal = newLineTerminal(config.Input)
	}
	return newSession(terminal, output, ev, config)
}

func newSession(terminal terminalInterface, output io.Writer, ev Evaluator, config Config) (*Session, error) {
	if ev == nil {
		return nil, errors.New("evaluator is required")
	}
	if output == nil {
		return nil, errors.New("output is required")
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	historyManager := NewHistoryManager(config.HistoryConfig)
	if err := historyManager.LoadHistory(); err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	s := &Session{
		id:             uuid.Must(uuid.NewV7()).String(),
		config:         config,
		evaluator:      ev,
		renderer:       newRenderer(output, config.ColorScheme, config.LineEnding),
		observer:       config.Observer,
		keyMap:         config.KeyMap,
		historyManager: historyManager,
		terminal:       terminal,
		inbox:          newInbox(),
		closed:         make(chan struct{}),
	}

	s.emit(EventStart, observability.LevelInfo, map[string]any{
		"pending_policy": string(config.PendingPolicy),
		"history":        historyManager.Len(),
	})
	s.reset()
	return s, nil
}

// HandleKey processes one decoded key.
//
// Responses that a synchronous evaluator produced inside Submit are applied
// before HandleKey returns. While a submission is pending the key is queued
// or, with PendingReject, dropped with ErrSubmissionPending. Ctrl+D on an
// empty primary prompt returns ErrEOF.
func (s *Session) HandleKey(k Key) error {
	if err := s.Flush(); err != nil {
		return err
	}
	if s.pending {
		return s.hold(k)
	}
	if err := s.handleKey(k); err != nil {
		return err
	}
	return s.Flush()
}

// Flush applies every evaluator response received so far and replays keys
// queued while a submission was pending. It returns the first terminal write
// error, or ErrEOF when a replayed key ends the session.
func (s *Session) Flush() error {
	if s.flushing {
		return nil
	}
	s.flushing = true
	defer func() { s.flushing = false }()

	for {
		events := s.inbox.drain()
		for _, ev := range events {
			ev.Apply(s)
		}

		if s.pending || len(s.queued) == 0 {
			if len(events) == 0 {
				return s.renderer.err
			}
			continue
		}

		k := s.queued[0]
		s.queued = s.queued[1:]
		if err := s.handleKey(k); err != nil {
			return err
		}
	}
}

func (s *Session) hold(k Key) error {
	if k.Action == ActionNone {
		return nil
	}
	if s.config.PendingPolicy == PendingReject {
		s.emit(EventKeyRejected, observability.LevelWarning, map[string]any{"action": k.Action.String()})
		return ErrSubmissionPending
	}
	s.queued = append(s.queued, k)
	s.emit(EventKeyQueued, observability.LevelVerbose, map[string]any{
		"action": k.Action.String(),
		"queued": len(s.queued),
	})
	return nil
}

func (s *Session) handleKey(k Key) error {
	switch k.Action {
	case ActionSubmit:
		s.submit()
	case ActionBackspace:
		s.backspace()
	case ActionInsert:
		s.insert(k.Rune)
	case ActionInterrupt:
		s.interrupt()
	case ActionEOF:
		if s.mode == ModePrimary && s.buffer == "" && len(s.line) == 0 {
			return ErrEOF
		}
	case ActionHistoryPrev:
		s.recall(-1)
	case ActionHistoryNext:
		s.recall(1)
	}
	return nil
}

// submit folds the line buffer into the accumulation buffer and hands the
// result to the evaluator.
func (s *Session) submit() {
	s.renderer.newline()

	line := string(s.line)
	hint := len(s.line) > 0
	s.buffer += line
	s.line = s.line[:0]

	if hint {
		if err := s.historyManager.AddEntry(line); err != nil {
			s.emit(EventHistoryFailed, observability.LevelWarning, map[string]any{"error": err.Error()})
		}
	}
	s.historyIndex = s.historyManager.Len()
	s.savedLine = ""

	s.pending = true
	s.emit(EventSubmit, observability.LevelInfo, map[string]any{
		"text": s.buffer,
		"hint": hint,
	})

	if err := s.evaluator.Submit(s.config.Context, s.buffer, hint, s.inbox); err != nil {
		s.emit(EventSubmitFailed, observability.LevelError, map[string]any{"error": err.Error()})
		s.inbox.EvaluationError(err.Error())
		s.inbox.SessionReset()
	}
}

func (s *Session) backspace() {
	if len(s.line) == 0 {
		return
	}
	s.renderer.erase(1)
	s.line = s.line[:len(s.line)-1]
}

func (s *Session) insert(r rune) {
	if r < ' ' {
		return
	}
	s.renderer.echo(string(r))
	s.line = append(s.line, r)
}

// interrupt discards the command being typed.
func (s *Session) interrupt() {
	s.renderer.write("^C")
	s.renderer.newline()
	s.emit(EventInterrupt, observability.LevelInfo, map[string]any{
		"discarded": s.buffer + string(s.line),
	})
	s.reset()
}

// recall replaces the line buffer with the history entry delta steps away.
// Stepping past the newest entry brings back the line that was being typed.
func (s *Session) recall(delta int) {
	n := s.historyManager.Len()
	idx := s.historyIndex + delta
	if n == 0 || idx < 0 || idx > n {
		return
	}
	if s.historyIndex == n {
		s.savedLine = string(s.line)
	}

	text := s.savedLine
	if idx < n {
		text, _ = s.historyManager.Entry(idx)
	}
	s.historyIndex = idx

	s.renderer.erase(len(s.line))
	s.line = append(s.line[:0], []rune(text)...)
	s.renderer.echo(text)
}

// ContinuationRequested keeps the accumulated command and asks for another
// line with the continuation prompt.
//
// The Handler methods of Session must be called from the goroutine driving
// the session. Evaluators are handed a separate goroutine-safe Handler.
func (s *Session) ContinuationRequested() {
	s.buffer += lineSeparator
	s.line = s.line[:0]
	s.mode = ModeContinuation
	s.renderer.prompt(ModeContinuation, s.config.ContinuationPrompt)
	s.pending = false
	s.emit(EventContinue, observability.LevelVerbose, map[string]any{"buffer": s.buffer})
}

// SessionReset writes the primary prompt and starts a fresh command.
func (s *Session) SessionReset() {
	s.reset()
	s.pending = false
	s.emit(EventReset, observability.LevelVerbose, nil)
}

// OutputLine writes one line of evaluator output.
func (s *Session) OutputLine(text string) {
	s.renderer.outputLine(text)
	s.emit(EventOutput, observability.LevelVerbose, map[string]any{"text": text})
}

// EvaluationError writes the error prefix followed by message.
func (s *Session) EvaluationError(message string) {
	s.renderer.errorLine(s.config.ErrorPrefix, message)
	s.emit(EventError, observability.LevelWarning, map[string]any{"message": message})
}

func (s *Session) reset() {
	s.renderer.prompt(ModePrimary, s.config.Prompt)
	s.buffer = ""
	s.line = s.line[:0]
	s.mode = ModePrimary
	s.historyIndex = s.historyManager.Len()
	s.savedLine = ""
}

// Run reads keys from the session's input until the input ends, Ctrl+D is
// pressed on an empty prompt, or a terminal write fails.
//
// This is a convenience method that calls RunWithContext with a background
// context. On end of input Run waits for a pending submission to resolve and
// then returns ErrEOF.
func (s *Session) Run() error {
	return s.RunWithContext(context.Background())
}

// RunWithContext is Run with cancellation. A cancelled context returns
// ctx.Err(); a submission already issued is not aborted. Input not yet
// handled is kept for the next Run.
func (s *Session) RunWithContext(ctx context.Context) error {
	if s.terminal == nil {
		return ErrNoInput
	}
	if err := s.terminal.SetRaw(); err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer func() {
		if err := s.terminal.Restore(); err != nil {
			s.emit(EventTerminalFailed, observability.LevelWarning, map[string]any{"error": err.Error()})
		}
	}()

	s.startReader()
	readErr := s.readErr
	inputDone := false
	if s.inputErr != nil {
		if !errors.Is(s.inputErr, io.EOF) {
			return fmt.Errorf("failed to read input: %w", s.inputErr)
		}
		inputDone = true
		readErr = nil
	}

	if err := s.Flush(); err != nil {
		return s.runError(err)
	}

	for {
		if inputDone && !s.pending && len(s.queued) == 0 {
			return ErrEOF
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case k := <-s.keys:
			if err := s.HandleKey(k); err != nil && !errors.Is(err, ErrSubmissionPending) {
				return s.runError(err)
			}

		case err := <-readErr:
			s.inputErr = err
			if !errors.Is(err, io.EOF) {
				return fmt.Errorf("failed to read input: %w", err)
			}
			inputDone = true
			readErr = nil
			if err := s.Flush(); err != nil {
				return s.runError(err)
			}

		case <-s.inbox.notify:
			if err := s.Flush(); err != nil {
				return s.runError(err)
			}
		}
	}
}

// startReader starts the goroutine that decodes keys from the terminal. It
// runs until the input fails or the session is closed.
func (s *Session) startReader() {
	s.readerOnce.Do(func() {
		s.keys = make(chan Key)
		s.readErr = make(chan error, 1)
		reader := &keyReader{terminal: s.terminal, keyMap: s.keyMap}
		go func() {
			for {
				k, err := reader.ReadKey()
				if err != nil {
					s.readErr <- err
					return
				}
				select {
				case s.keys <- k:
				case <-s.closed:
					return
				}
			}
		}()
	})
}

func (s *Session) runError(err error) error {
	if errors.Is(err, ErrEOF) {
		return ErrEOF
	}
	return fmt.Errorf("session stopped: %w", err)
}

// Close saves the history and releases the terminal. It is safe to call
// Close multiple times.
func (s *Session) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })

	var errs []error
	if err := s.historyManager.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to save history: %w", err))
	}
	if s.terminal != nil {
		if err := s.terminal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close terminal: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ID returns the session identifier attached to every observed event.
func (s *Session) ID() string {
	return s.id
}

// Mode returns the current prompt mode.
func (s *Session) Mode() PromptMode {
	return s.mode
}

// Buffer returns the accumulated text of the current command.
func (s *Session) Buffer() string {
	return s.buffer
}

// Line returns the line being edited.
func (s *Session) Line() string {
	return string(s.line)
}

// Pending reports whether a submission is waiting for its evaluator.
func (s *Session) Pending() bool {
	return s.pending
}

// History returns a copy of the recorded lines, oldest first.
func (s *Session) History() []string {
	return s.historyManager.GetHistory()
}

// Err returns the first terminal write error, if any.
func (s *Session) Err() error {
	return s.renderer.err
}

func (s *Session) emit(eventType observability.EventType, level observability.Level, data map[string]any) {
	s.observer.OnEvent(s.config.Context, observability.Event{
		Type:    eventType,
		Level:   level,
		Time:    time.Now(),
		Session: s.id,
		Mode:    s.mode.String(),
		Data:    data,
	})
}
