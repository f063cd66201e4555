package repl

import (
	"bytes"
	"context"
	"sync"
)

// Handler receives the responses an evaluator produces for one submission.
//
// For every submission an evaluator calls OutputLine zero or more times,
// EvaluationError at most once, and then exactly one of ContinuationRequested
// or SessionReset, which resolves the submission.
type Handler interface {
	// ContinuationRequested asks for more input before the accumulated text
	// can be evaluated.
	ContinuationRequested()
	// SessionReset ends the current command and starts a fresh one.
	SessionReset()
	// OutputLine reports one line of evaluator output.
	OutputLine(text string)
	// EvaluationError reports that the evaluator rejected or failed on the
	// submitted text.
	EvaluationError(message string)
}

// Evaluator is the language service a session submits input to.
//
// text is the whole accumulated command. hint reports whether the last typed
// line was non-empty; it is advisory and the evaluator alone decides whether
// text is complete. h may be called synchronously before Submit returns or
// later from another goroutine. A non-nil error means the submission could
// not be issued at all.
type Evaluator interface {
	Submit(ctx context.Context, text string, hint bool, h Handler) error
}

// EvaluatorFunc adapts an ordinary function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, text string, hint bool, h Handler) error

// Submit calls f(ctx, text, hint, h).
func (f EvaluatorFunc) Submit(ctx context.Context, text string, hint bool, h Handler) error {
	return f(ctx, text, hint, h)
}

// EventKind identifies one of the four evaluator responses.
type EventKind int

// Evaluator response kinds.
const (
	KindOutputLine EventKind = iota
	KindEvaluationError
	KindContinuationRequested
	KindSessionReset
)

// String returns the name of the event kind.
func (k EventKind) String() string {
	switch k {
	case KindOutputLine:
		return "output-line"
	case KindEvaluationError:
		return "evaluation-error"
	case KindContinuationRequested:
		return "continuation-requested"
	case KindSessionReset:
		return "session-reset"
	default:
		return "unknown"
	}
}

// Event is one evaluator response as a value. Text holds the output line or
// the error message.
type Event struct {
	Kind EventKind
	Text string
}

// Resolves reports whether the event ends a submission.
func (e Event) Resolves() bool {
	return e.Kind == KindContinuationRequested || e.Kind == KindSessionReset
}

// Apply delivers the event to h.
func (e Event) Apply(h Handler) {
	switch e.Kind {
	case KindOutputLine:
		h.OutputLine(e.Text)
	case KindEvaluationError:
		h.EvaluationError(e.Text)
	case KindContinuationRequested:
		h.ContinuationRequested()
	case KindSessionReset:
		h.SessionReset()
	}
}

// inbox is the Handler a session hands to its evaluator. It queues events
// in arrival order so that they are applied on the session's own goroutine.
// It is safe for concurrent use.
type inbox struct {
	mu     sync.Mutex
	events []Event
	notify chan struct{}
}

func newInbox() *inbox {
	return &inbox{notify: make(chan struct{}, 1)}
}

func (in *inbox) publish(ev Event) {
	in.mu.Lock()
	in.events = append(in.events, ev)
	in.mu.Unlock()

	select {
	case in.notify <- struct{}{}:
	default:
	}
}

// drain removes and returns every queued event.
func (in *inbox) drain() []Event {
	in.mu.Lock()
	defer in.mu.Unlock()
	events := in.events
	in.events = nil
	return events
}

func (in *inbox) ContinuationRequested() {
	in.publish(Event{Kind: KindContinuationRequested})
}

func (in *inbox) SessionReset() {
	in.publish(Event{Kind: KindSessionReset})
}

func (in *inbox) OutputLine(text string) {
	in.publish(Event{Kind: KindOutputLine, Text: text})
}

func (in *inbox) EvaluationError(message string) {
	in.publish(Event{Kind: KindEvaluationError, Text: message})
}

// AsyncEvaluator runs another Evaluator on a worker goroutine. Submit only
// enqueues the request, so responses always arrive after Submit returns.
// Requests are processed one at a time in submission order.
type AsyncEvaluator struct {
	inner     Evaluator
	requests  chan asyncRequest
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

type asyncRequest struct {
	ctx     context.Context
	text    string
	hint    bool
	handler Handler
}

// NewAsyncEvaluator starts a worker that forwards submissions to inner.
// Call Close to stop the worker.
func NewAsyncEvaluator(inner Evaluator) *AsyncEvaluator {
	a := &AsyncEvaluator{
		inner:    inner,
		requests: make(chan asyncRequest, 16),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go a.loop()
	return a
}

// Submit enqueues the request. It returns ErrEvaluatorClosed after Close.
func (a *AsyncEvaluator) Submit(ctx context.Context, text string, hint bool, h Handler) error {
	select {
	case <-a.done:
		return ErrEvaluatorClosed
	default:
	}

	select {
	case a.requests <- asyncRequest{ctx: ctx, text: text, hint: hint, handler: h}:
		return nil
	case <-a.done:
		return ErrEvaluatorClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker and waits for the request in progress to finish.
// Queued requests that have not started are dropped. Close is safe to call
// multiple times.
func (a *AsyncEvaluator) Close() error {
	a.closeOnce.Do(func() {
		close(a.done)
	})
	<-a.stopped
	return nil
}

func (a *AsyncEvaluator) loop() {
	defer close(a.stopped)
	for {
		select {
		case <-a.done:
			return
		case req := <-a.requests:
			if err := a.inner.Submit(req.ctx, req.text, req.hint, req.handler); err != nil {
				req.handler.EvaluationError(err.Error())
				req.handler.SessionReset()
			}
		}
	}
}

// LineWriter is an io.Writer that reports each complete line written to it
// as an OutputLine. Evaluators use it to route their textual output to a
// session. The trailing partial line is held until a newline or Flush.
type LineWriter struct {
	handler Handler
	line    bytes.Buffer
}

// NewLineWriter returns a LineWriter reporting to h.
func NewLineWriter(h Handler) *LineWriter {
	return &LineWriter{handler: h}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		if b == '\n' {
			w.handler.OutputLine(w.line.String())
			w.line.Reset()
			continue
		}
		w.line.WriteByte(b)
	}
	return len(p), nil
}

// Flush reports any buffered partial line.
func (w *LineWriter) Flush() {
	if w.line.Len() == 0 {
		return
	}
	w.handler.OutputLine(w.line.String())
	w.line.Reset()
}
