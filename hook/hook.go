// Package hook defines the lifecycle hook system for the action pipeline.
//
// Hooks are notified of pipeline events — dispatch start and completion,
// handler outcomes, guard suppressions — and can react to them: recording
// metrics, writing audit logs, driving debug tooling. Each lifecycle event
// is a separate interface so hooks opt in only to the events they care
// about. The [Registry] fans out each event to all registered hooks that
// implement the corresponding interface; hook errors are logged and never
// propagated into the dispatch path.
package hook

import (
	"context"
	"time"

	"github.com/mineclover/context-action-sub008/handler"
	"github.com/mineclover/context-action-sub008/id"
)

// Hook is the base interface all hooks must implement.
type Hook interface {
	// Name returns a unique human-readable name for the hook.
	Name() string
}

// ──────────────────────────────────────────────────
// Dispatch lifecycle
// ──────────────────────────────────────────────────

// DispatchStarted is called when a dispatch session begins executing.
type DispatchStarted interface {
	OnDispatchStarted(ctx context.Context, did id.DispatchID, action string) error
}

// DispatchCompleted is called after a dispatch session reaches a terminal
// state, whatever that state is. Aborted sessions additionally receive
// DispatchAborted first.
type DispatchCompleted interface {
	OnDispatchCompleted(ctx context.Context, did id.DispatchID, action string, elapsed time.Duration) error
}

// DispatchAborted is called when a session is aborted, by a handler or by
// external cancellation.
type DispatchAborted interface {
	OnDispatchAborted(ctx context.Context, did id.DispatchID, action string, reason string) error
}

// ──────────────────────────────────────────────────
// Handler lifecycle
// ──────────────────────────────────────────────────

// HandlerCompleted is called after a handler invocation returns without error.
type HandlerCompleted interface {
	OnHandlerCompleted(ctx context.Context, action string, reg *handler.Registration, elapsed time.Duration) error
}

// HandlerFailed is called when a handler invocation returns an error,
// after any configured retries are exhausted.
type HandlerFailed interface {
	OnHandlerFailed(ctx context.Context, action string, reg *handler.Registration, err error) error
}

// HandlerSkipped is called when a handler's condition rejects the payload
// or a priority jump passes over the handler.
type HandlerSkipped interface {
	OnHandlerSkipped(ctx context.Context, action string, reg *handler.Registration) error
}

// ──────────────────────────────────────────────────
// Other events
// ──────────────────────────────────────────────────

// GuardSuppressed is called when an action guard supersedes or drops a
// dispatch request instead of running it.
type GuardSuppressed interface {
	OnGuardSuppressed(ctx context.Context, action string, key string, strategy string) error
}

// Shutdown is called when the pipeline is closing.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
