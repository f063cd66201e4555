// Package observability carries structured session events to logging
// backends.
//
// A session reports every state change as an Event. Observers decide what
// to do with it: SlogObserver writes it to a slog.Logger, Filter drops events
// below a level, Observers fans out to several observers and Recorder keeps
// events in memory.
package observability

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// Level is the severity of an event. The values follow OpenTelemetry
// SeverityNumber ranges.
type Level int

const (
	LevelVerbose Level = 5  // DEBUG: output lines, continuations, queued keys
	LevelInfo    Level = 9  // INFO: session start, submissions, interrupts
	LevelWarning Level = 13 // WARN: evaluation errors, rejected keys
	LevelError   Level = 17 // ERROR: failed submissions
)

// String returns the severity text for the level.
func (l Level) String() string {
	switch {
	case l <= 4:
		return "TRACE"
	case l <= 8:
		return "DEBUG"
	case l <= 12:
		return "INFO"
	case l <= 16:
		return "WARN"
	case l <= 20:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// SlogLevel returns the slog level a SlogObserver logs l at.
func (l Level) SlogLevel() slog.Level {
	switch {
	case l <= 8:
		return slog.LevelDebug
	case l <= 12:
		return slog.LevelInfo
	case l <= 16:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// EventType identifies the kind of event, e.g. "session.submit".
type EventType string

// Event is one state change of a session.
type Event struct {
	Type    EventType
	Level   Level
	Time    time.Time
	Session string         // id of the emitting session
	Mode    string         // prompt mode when the event was emitted, "primary" or "continuation"
	Data    map[string]any // flat attributes, e.g. the submitted text
}

// Attrs returns the session, the mode and Data as slog attributes. Data keys
// are sorted so log lines are stable.
func (e Event) Attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(e.Data)+2)
	if e.Session != "" {
		attrs = append(attrs, slog.String("session", e.Session))
	}
	if e.Mode != "" {
		attrs = append(attrs, slog.String("mode", e.Mode))
	}

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, e.Data[k]))
	}
	return attrs
}

// Observer receives session events. OnEvent is called on the goroutine that
// drives the session and should not block.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// ObserverFunc adapts an ordinary function to the Observer interface.
type ObserverFunc func(ctx context.Context, event Event)

// OnEvent calls f(ctx, event).
func (f ObserverFunc) OnEvent(ctx context.Context, event Event) {
	f(ctx, event)
}

// Discard is an Observer that drops every event. Sessions use it when no
// observer is configured.
var Discard Observer = ObserverFunc(func(context.Context, Event) {})

// Observers fans events out to every non-nil observer in order.
type Observers []Observer

func (o Observers) OnEvent(ctx context.Context, event Event) {
	for _, obs := range o {
		if obs != nil {
			obs.OnEvent(ctx, event)
		}
	}
}

// Filter returns an Observer that forwards events at minLevel or above to
// next.
func Filter(minLevel Level, next Observer) Observer {
	return ObserverFunc(func(ctx context.Context, event Event) {
		if event.Level >= minLevel {
			next.OnEvent(ctx, event)
		}
	})
}
