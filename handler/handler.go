// Package handler defines the handler registration table for the action
// pipeline — registrations with priority ordering, the controller surface
// handed to each handler, and typed definitions erased at registration time.
package handler

import "context"

// Func is a type-erased action handler. It receives the session's current
// payload and a Controller scoped to the dispatch session. The returned
// value is recorded as the handler's outcome unless the handler called
// Controller.SetResult, which takes precedence.
type Func func(ctx context.Context, payload any, pc Controller) (any, error)

// Condition is a pre-invocation predicate over the current payload.
// When it returns false the handler is skipped for that dispatch: the
// skip is recorded as an outcome but does not consume a Once registration.
type Condition func(payload any) bool

// Controller is the per-session control surface handed to each handler.
// All methods become no-ops once the session reaches a terminal state,
// so late callbacks from cancelled handlers are harmless.
type Controller interface {
	// Abort marks the session aborted with a human-readable reason.
	// Handlers that have not started are skipped.
	Abort(reason string)

	// ModifyPayload replaces the payload seen by handlers that have not
	// yet started in this session. It never changes a handler in flight.
	ModifyPayload(payload any)

	// SetResult records this handler's outcome value, overriding the
	// handler's return value.
	SetResult(value any)

	// Results returns the outcomes accumulated so far in this session.
	Results() []Outcome

	// JumpToPriority skips all pending handlers with priority strictly
	// between the current handler's priority and the target, resuming at
	// the first handler at or below the target.
	JumpToPriority(priority int)
}

// Outcome is the per-handler result recorded in a dispatch session.
// Exactly one of Value, Err, or Skipped is meaningful.
type Outcome struct {
	// HandlerID identifies the registration that produced this outcome.
	HandlerID string

	// Value is the handler's result on normal completion.
	Value any

	// Err is set when the handler returned or panicked with an error.
	Err error

	// Skipped is true when the handler's condition rejected the payload
	// or a priority jump passed over the handler. Handlers left pending
	// when a session aborts or errors are not recorded at all.
	Skipped bool
}

// Invocation describes one handler execution step. It is the unit the
// middleware chain wraps.
type Invocation struct {
	// Action is the dispatched action name.
	Action string

	// Reg is the registration being invoked.
	Reg *Registration

	// Payload is the payload visible to this handler.
	Payload any

	// Attempt is the 1-indexed execution attempt (retries increment it).
	Attempt int
}
