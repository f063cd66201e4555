package repl

import "github.com/nao1215/repl/observability"

// Session event types reported to the configured observer.
const (
	EventStart          observability.EventType = "session.start"
	EventSubmit         observability.EventType = "session.submit"
	EventSubmitFailed   observability.EventType = "session.submit.failed"
	EventContinue       observability.EventType = "session.continue"
	EventReset          observability.EventType = "session.reset"
	EventOutput         observability.EventType = "session.output"
	EventError          observability.EventType = "session.error"
	EventKeyQueued      observability.EventType = "session.key.queued"
	EventKeyRejected    observability.EventType = "session.key.rejected"
	EventInterrupt      observability.EventType = "session.interrupt"
	EventHistoryFailed  observability.EventType = "session.history.failed"
	EventTerminalFailed observability.EventType = "session.terminal.failed"
)
