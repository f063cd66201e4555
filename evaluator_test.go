package repl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler collects events in the order they arrive.
type recordingHandler struct {
	mu     sync.Mutex
	events []Event
}

func (h *recordingHandler) ContinuationRequested() {
	h.add(Event{Kind: KindContinuationRequested})
}

func (h *recordingHandler) SessionReset() {
	h.add(Event{Kind: KindSessionReset})
}

func (h *recordingHandler) OutputLine(text string) {
	h.add(Event{Kind: KindOutputLine, Text: text})
}

func (h *recordingHandler) EvaluationError(message string) {
	h.add(Event{Kind: KindEvaluationError, Text: message})
}

func (h *recordingHandler) add(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

func (h *recordingHandler) snapshot() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event{}, h.events...)
}

func TestEventKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "output-line", KindOutputLine.String())
	assert.Equal(t, "evaluation-error", KindEvaluationError.String())
	assert.Equal(t, "continuation-requested", KindContinuationRequested.String())
	assert.Equal(t, "session-reset", KindSessionReset.String())
	assert.Equal(t, "unknown", EventKind(42).String())
}

func TestEventApply(t *testing.T) {
	t.Parallel()

	events := []Event{
		{Kind: KindOutputLine, Text: "2"},
		{Kind: KindEvaluationError, Text: "bad"},
		{Kind: KindContinuationRequested},
		{Kind: KindSessionReset},
	}

	h := &recordingHandler{}
	for _, ev := range events {
		ev.Apply(h)
	}
	if diff := cmp.Diff(events, h.snapshot()); diff != "" {
		t.Errorf("applied events (-want +got):\n%s", diff)
	}

	assert.False(t, events[0].Resolves())
	assert.False(t, events[1].Resolves())
	assert.True(t, events[2].Resolves())
	assert.True(t, events[3].Resolves())
}

func TestInbox(t *testing.T) {
	t.Parallel()

	in := newInbox()
	var h Handler = in

	h.OutputLine("a")
	h.EvaluationError("b")
	h.SessionReset()

	// A single pending notification covers any number of events
	select {
	case <-in.notify:
	default:
		t.Fatal("Expected a notification")
	}
	select {
	case <-in.notify:
		t.Fatal("Expected notifications to coalesce")
	default:
	}

	want := []Event{
		{Kind: KindOutputLine, Text: "a"},
		{Kind: KindEvaluationError, Text: "b"},
		{Kind: KindSessionReset},
	}
	if diff := cmp.Diff(want, in.drain()); diff != "" {
		t.Errorf("drained events (-want +got):\n%s", diff)
	}
	assert.Empty(t, in.drain())
}

func TestInboxConcurrentPublish(t *testing.T) {
	t.Parallel()

	in := newInbox()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				in.OutputLine(fmt.Sprintf("%d-%d", i, j))
			}
		}()
	}
	wg.Wait()

	assert.Len(t, in.drain(), 400)
}

func TestEvaluatorFunc(t *testing.T) {
	t.Parallel()

	var gotText string
	var gotHint bool
	ev := EvaluatorFunc(func(_ context.Context, text string, hint bool, h Handler) error {
		gotText, gotHint = text, hint
		h.SessionReset()
		return nil
	})

	h := &recordingHandler{}
	require.NoError(t, ev.Submit(context.Background(), "1+1", true, h))
	assert.Equal(t, "1+1", gotText)
	assert.True(t, gotHint)
	assert.Equal(t, []Event{{Kind: KindSessionReset}}, h.snapshot())
}

func TestAsyncEvaluator(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	inner := EvaluatorFunc(func(_ context.Context, text string, _ bool, h Handler) error {
		<-release
		h.OutputLine(text)
		h.SessionReset()
		return nil
	})
	async := NewAsyncEvaluator(inner)
	defer async.Close()

	h := &recordingHandler{}
	require.NoError(t, async.Submit(context.Background(), "first", true, h))
	require.NoError(t, async.Submit(context.Background(), "second", true, h))

	// Nothing is delivered before the worker runs
	assert.Empty(t, h.snapshot())

	close(release)
	want := []Event{
		{Kind: KindOutputLine, Text: "first"},
		{Kind: KindSessionReset},
		{Kind: KindOutputLine, Text: "second"},
		{Kind: KindSessionReset},
	}
	require.Eventually(t, func() bool { return len(h.snapshot()) == len(want) }, time.Second, time.Millisecond)
	if diff := cmp.Diff(want, h.snapshot()); diff != "" {
		t.Errorf("async events (-want +got):\n%s", diff)
	}
}

func TestAsyncEvaluatorInnerError(t *testing.T) {
	t.Parallel()

	inner := EvaluatorFunc(func(context.Context, string, bool, Handler) error {
		return errors.New("engine offline")
	})
	async := NewAsyncEvaluator(inner)
	defer async.Close()

	h := &recordingHandler{}
	require.NoError(t, async.Submit(context.Background(), "x", true, h))

	want := []Event{
		{Kind: KindEvaluationError, Text: "engine offline"},
		{Kind: KindSessionReset},
	}
	require.Eventually(t, func() bool { return len(h.snapshot()) == len(want) }, time.Second, time.Millisecond)
	assert.Equal(t, want, h.snapshot())
}

func TestAsyncEvaluatorClose(t *testing.T) {
	t.Parallel()

	async := NewAsyncEvaluator(EvaluatorFunc(func(_ context.Context, _ string, _ bool, h Handler) error {
		h.SessionReset()
		return nil
	}))

	require.NoError(t, async.Close())
	require.NoError(t, async.Close(), "Close should be idempotent")

	err := async.Submit(context.Background(), "x", true, &recordingHandler{})
	assert.ErrorIs(t, err, ErrEvaluatorClosed)
}

func TestAsyncEvaluatorCanceledContext(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	async := NewAsyncEvaluator(EvaluatorFunc(func(context.Context, string, bool, Handler) error {
		<-block
		return nil
	}))
	defer func() {
		close(block)
		async.Close()
	}()

	h := &recordingHandler{}
	// Fill the worker and the request buffer
	for range 17 {
		require.NoError(t, async.Submit(context.Background(), "x", true, h))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := async.Submit(ctx, "x", true, h)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLineWriter(t *testing.T) {
	t.Parallel()

	h := &recordingHandler{}
	w := NewLineWriter(h)

	n, err := fmt.Fprint(w, "one\ntw")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	_, err = fmt.Fprint(w, "o\n\nthree")
	require.NoError(t, err)

	assert.Equal(t, []Event{
		{Kind: KindOutputLine, Text: "one"},
		{Kind: KindOutputLine, Text: "two"},
		{Kind: KindOutputLine, Text: ""},
	}, h.snapshot())

	w.Flush()
	w.Flush() // nothing left
	assert.Equal(t, Event{Kind: KindOutputLine, Text: "three"}, h.snapshot()[3])
	assert.Len(t, h.snapshot(), 4)
}
