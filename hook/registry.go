package hook

import (
	"context"
	"log/slog"
	"time"

	"github.com/mineclover/context-action-sub008/handler"
	"github.com/mineclover/context-action-sub008/id"
)

// Named entry types pair an event implementation with the hook name
// captured at registration time. This avoids type-asserting back to
// Hook inside the emit methods.
type dispatchStartedEntry struct {
	name string
	hook DispatchStarted
}

type dispatchCompletedEntry struct {
	name string
	hook DispatchCompleted
}

type dispatchAbortedEntry struct {
	name string
	hook DispatchAborted
}

type handlerCompletedEntry struct {
	name string
	hook HandlerCompleted
}

type handlerFailedEntry struct {
	name string
	hook HandlerFailed
}

type handlerSkippedEntry struct {
	name string
	hook HandlerSkipped
}

type guardSuppressedEntry struct {
	name string
	hook GuardSuppressed
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered hooks and dispatches lifecycle events to
// them. It type-caches hooks at registration time so emit calls iterate
// only over hooks that implement the relevant event interface.
//
// All hooks must be registered before the pipeline starts dispatching;
// Register is not synchronized against concurrent emits.
type Registry struct {
	hooks  []Hook
	logger *slog.Logger

	// Type-cached slices for each lifecycle event.
	dispatchStarted   []dispatchStartedEntry
	dispatchCompleted []dispatchCompletedEntry
	dispatchAborted   []dispatchAbortedEntry
	handlerCompleted  []handlerCompletedEntry
	handlerFailed     []handlerFailedEntry
	handlerSkipped    []handlerSkippedEntry
	guardSuppressed   []guardSuppressedEntry
	shutdown          []shutdownEntry
}

// NewRegistry creates a hook registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a hook and type-asserts it into all applicable event
// caches. Hooks are notified in registration order.
func (r *Registry) Register(h Hook) {
	r.hooks = append(r.hooks, h)
	name := h.Name()

	if e, ok := h.(DispatchStarted); ok {
		r.dispatchStarted = append(r.dispatchStarted, dispatchStartedEntry{name, e})
	}
	if e, ok := h.(DispatchCompleted); ok {
		r.dispatchCompleted = append(r.dispatchCompleted, dispatchCompletedEntry{name, e})
	}
	if e, ok := h.(DispatchAborted); ok {
		r.dispatchAborted = append(r.dispatchAborted, dispatchAbortedEntry{name, e})
	}
	if e, ok := h.(HandlerCompleted); ok {
		r.handlerCompleted = append(r.handlerCompleted, handlerCompletedEntry{name, e})
	}
	if e, ok := h.(HandlerFailed); ok {
		r.handlerFailed = append(r.handlerFailed, handlerFailedEntry{name, e})
	}
	if e, ok := h.(HandlerSkipped); ok {
		r.handlerSkipped = append(r.handlerSkipped, handlerSkippedEntry{name, e})
	}
	if e, ok := h.(GuardSuppressed); ok {
		r.guardSuppressed = append(r.guardSuppressed, guardSuppressedEntry{name, e})
	}
	if e, ok := h.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, e})
	}
}

// Hooks returns all registered hooks.
func (r *Registry) Hooks() []Hook { return r.hooks }

// ──────────────────────────────────────────────────
// Dispatch event emitters
// ──────────────────────────────────────────────────

// EmitDispatchStarted notifies all hooks that implement DispatchStarted.
func (r *Registry) EmitDispatchStarted(ctx context.Context, did id.DispatchID, action string) {
	for _, e := range r.dispatchStarted {
		if err := e.hook.OnDispatchStarted(ctx, did, action); err != nil {
			r.logHookError("OnDispatchStarted", e.name, err)
		}
	}
}

// EmitDispatchCompleted notifies all hooks that implement DispatchCompleted.
func (r *Registry) EmitDispatchCompleted(ctx context.Context, did id.DispatchID, action string, elapsed time.Duration) {
	for _, e := range r.dispatchCompleted {
		if err := e.hook.OnDispatchCompleted(ctx, did, action, elapsed); err != nil {
			r.logHookError("OnDispatchCompleted", e.name, err)
		}
	}
}

// EmitDispatchAborted notifies all hooks that implement DispatchAborted.
func (r *Registry) EmitDispatchAborted(ctx context.Context, did id.DispatchID, action string, reason string) {
	for _, e := range r.dispatchAborted {
		if err := e.hook.OnDispatchAborted(ctx, did, action, reason); err != nil {
			r.logHookError("OnDispatchAborted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Handler event emitters
// ──────────────────────────────────────────────────

// EmitHandlerCompleted notifies all hooks that implement HandlerCompleted.
func (r *Registry) EmitHandlerCompleted(ctx context.Context, action string, reg *handler.Registration, elapsed time.Duration) {
	for _, e := range r.handlerCompleted {
		if err := e.hook.OnHandlerCompleted(ctx, action, reg, elapsed); err != nil {
			r.logHookError("OnHandlerCompleted", e.name, err)
		}
	}
}

// EmitHandlerFailed notifies all hooks that implement HandlerFailed.
func (r *Registry) EmitHandlerFailed(ctx context.Context, action string, reg *handler.Registration, handlerErr error) {
	for _, e := range r.handlerFailed {
		if err := e.hook.OnHandlerFailed(ctx, action, reg, handlerErr); err != nil {
			r.logHookError("OnHandlerFailed", e.name, err)
		}
	}
}

// EmitHandlerSkipped notifies all hooks that implement HandlerSkipped.
func (r *Registry) EmitHandlerSkipped(ctx context.Context, action string, reg *handler.Registration) {
	for _, e := range r.handlerSkipped {
		if err := e.hook.OnHandlerSkipped(ctx, action, reg); err != nil {
			r.logHookError("OnHandlerSkipped", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Other event emitters
// ──────────────────────────────────────────────────

// EmitGuardSuppressed notifies all hooks that implement GuardSuppressed.
func (r *Registry) EmitGuardSuppressed(ctx context.Context, action, key, strategy string) {
	for _, e := range r.guardSuppressed {
		if err := e.hook.OnGuardSuppressed(ctx, action, key, strategy); err != nil {
			r.logHookError("OnGuardSuppressed", e.name, err)
		}
	}
}

// EmitShutdown notifies all hooks that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not block dispatch.
func (r *Registry) logHookError(event, hookName string, err error) {
	r.logger.Warn("hook error",
		slog.String("event", event),
		slog.String("hook", hookName),
		slog.String("error", err.Error()),
	)
}
