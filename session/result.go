package session

import (
	"time"

	"github.com/mineclover/context-action-sub008/handler"
	"github.com/mineclover/context-action-sub008/id"
)

// Status is the terminal disposition of a dispatch.
type Status string

const (
	// StatusCompleted means every selected handler ran to completion
	// (or was skipped by its condition).
	StatusCompleted Status = "completed"

	// StatusAborted means a handler called Abort, or the caller cancelled
	// the dispatch context while handlers were running.
	StatusAborted Status = "aborted"

	// StatusErrored means a handler returned an error that was not marked
	// non-fatal.
	StatusErrored Status = "errored"

	// StatusCancelled means the dispatch context was already cancelled
	// before any handler started.
	StatusCancelled Status = "cancelled"

	// StatusSuperseded means a guarded dispatch was replaced by a newer
	// submission inside the same debounce window.
	StatusSuperseded Status = "superseded"

	// StatusDropped means a guarded dispatch was rejected by a throttle
	// window, or discarded when the guard shut down.
	StatusDropped Status = "dropped"
)

// Terminal reports whether s is a final disposition. Every Status value
// is terminal; the method exists so call sites read clearly.
func (s Status) Terminal() bool {
	return s != ""
}

// Result is the outcome of one dispatch session.
type Result struct {
	// ID uniquely identifies the dispatch.
	ID id.DispatchID

	// Action is the dispatched action name.
	Action string

	// Mode is the execution mode the session ran under.
	Mode Mode

	// Status is the terminal disposition.
	Status Status

	// Reason is the abort reason when Status is StatusAborted.
	Reason string

	// Err is the first fatal handler error when Status is StatusErrored.
	Err error

	// Outcomes holds per-handler outcomes in completion-report order.
	// Nil when the dispatch ran with WithoutResults.
	Outcomes []handler.Outcome

	// Elapsed is the wall-clock session duration.
	Elapsed time.Duration
}

// Completed reports whether the session finished without abort or error.
func (r *Result) Completed() bool {
	return r.Status == StatusCompleted
}

// Aborted reports whether the session was aborted, either by a handler
// or by external cancellation mid-flight.
func (r *Result) Aborted() bool {
	return r.Status == StatusAborted
}

// Failed reports whether the session ended with a fatal handler error.
func (r *Result) Failed() bool {
	return r.Status == StatusErrored
}

// Outcome returns the recorded outcome for the given handler ID.
func (r *Result) Outcome(handlerID string) (handler.Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.HandlerID == handlerID {
			return o, true
		}
	}
	return handler.Outcome{}, false
}

// Values returns the non-skipped, non-errored handler values in
// completion-report order.
func (r *Result) Values() []any {
	var vals []any
	for _, o := range r.Outcomes {
		if o.Skipped || o.Err != nil {
			continue
		}
		vals = append(vals, o.Value)
	}
	return vals
}
