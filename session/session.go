// Package session implements the dispatch session: one execution of an
// action's handler snapshot under a chosen mode. The session owns the
// state machine (running, then aborted, errored, completed, or cancelled),
// the payload visible to pending handlers, the accumulated per-handler
// outcomes, and the controller surface handed to each handler.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mineclover/context-action-sub008/backoff"
	"github.com/mineclover/context-action-sub008/handler"
	"github.com/mineclover/context-action-sub008/hook"
	"github.com/mineclover/context-action-sub008/id"
	"github.com/mineclover/context-action-sub008/middleware"
)

// Config carries everything a session needs to run. The pipeline builds
// one per dispatch; sessions are single-use.
type Config struct {
	// Action is the dispatched action name.
	Action string

	// Payload is the initial payload.
	Payload any

	// Snapshot is the ordered registration list captured at dispatch
	// start. Registration changes after the snapshot do not affect this
	// session.
	Snapshot []*handler.Registration

	// Table is the live handler table, used to consume Once registrations.
	Table *handler.Table

	// Middleware is the composed chain wrapped around each invocation.
	Middleware middleware.Middleware

	// Hooks receives lifecycle events. Must be non-nil.
	Hooks *hook.Registry

	// Logger is the session logger. Must be non-nil.
	Logger *slog.Logger

	// Backoff paces handler retries. Must be non-nil.
	Backoff backoff.Strategy

	// Options are the per-dispatch options.
	Options Options
}

// Session is one execution of an action dispatch. It is created by the
// pipeline, run exactly once, and then discarded.
type Session struct {
	id      id.DispatchID
	action  string
	mode    Mode
	snap    []*handler.Registration
	table   *handler.Table
	mw      middleware.Middleware
	hooks   *hook.Registry
	logger  *slog.Logger
	backoff backoff.Strategy
	collect bool

	mu          sync.Mutex
	payload     any
	outcomes    []handler.Outcome
	aborted     bool
	abortReason string
	failure     error
	jumpFrom    int
	jumpTo      int
	jumping     bool
	terminated  bool

	// settle receives the winning settlement in race mode. Nil otherwise.
	settle chan settlement
}

// settlement is a race-mode completion report: either a handler function
// returning, or the handler settling early through its controller.
type settlement struct {
	reg      *handler.Registration
	out      handler.Outcome
	elapsed  time.Duration
	fromCtrl bool
}

// New creates a session from cfg. It does not start execution.
func New(cfg Config) *Session {
	return &Session{
		id:      id.NewDispatchID(),
		action:  cfg.Action,
		mode:    cfg.Options.Mode,
		snap:    cfg.Snapshot,
		table:   cfg.Table,
		mw:      cfg.Middleware,
		hooks:   cfg.Hooks,
		logger:  cfg.Logger,
		backoff: cfg.Backoff,
		collect: cfg.Options.CollectResults,
		payload: cfg.Payload,
	}
}

// ID returns the session's dispatch ID.
func (s *Session) ID() id.DispatchID { return s.id }

// Run executes the session to its terminal state and returns the result.
// It must be called exactly once.
func (s *Session) Run(ctx context.Context) *Result {
	start := time.Now()

	// A context that is dead before any handler starts means the caller
	// gave up before the work began. Nothing ran, so no lifecycle events.
	if ctx.Err() != nil {
		s.mu.Lock()
		s.terminated = true
		s.mu.Unlock()
		return &Result{
			ID:      s.id,
			Action:  s.action,
			Mode:    s.mode,
			Status:  StatusCancelled,
			Elapsed: time.Since(start),
		}
	}

	ctx = WithDispatchID(ctx, s.id)
	s.hooks.EmitDispatchStarted(ctx, s.id, s.action)
	s.logger.Debug("dispatch started",
		slog.String("dispatch_id", s.id.String()),
		slog.String("action", s.action),
		slog.String("mode", string(s.mode)),
		slog.Int("handlers", len(s.snap)),
	)

	switch s.mode {
	case ModeParallel:
		s.runParallel(ctx)
	case ModeRace:
		s.runRace(ctx)
	default:
		s.runSequential(ctx)
	}

	return s.finish(ctx, s.resolve(), start)
}

// resolve derives the terminal result from accumulated session state.
func (s *Session) resolve() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminated = true

	res := &Result{Outcomes: s.outcomes}
	switch {
	case s.aborted:
		res.Status = StatusAborted
		res.Reason = s.abortReason
	case s.failure != nil:
		res.Status = StatusErrored
		res.Err = s.failure
	default:
		res.Status = StatusCompleted
	}
	return res
}

// finish stamps the result, emits terminal hooks, and logs.
func (s *Session) finish(ctx context.Context, res *Result, start time.Time) *Result {
	res.ID = s.id
	res.Action = s.action
	res.Mode = s.mode
	res.Elapsed = time.Since(start)

	if res.Status == StatusAborted {
		s.hooks.EmitDispatchAborted(ctx, s.id, s.action, res.Reason)
	}
	s.hooks.EmitDispatchCompleted(ctx, s.id, s.action, res.Elapsed)

	s.logger.Debug("dispatch finished",
		slog.String("dispatch_id", s.id.String()),
		slog.String("action", s.action),
		slog.String("status", string(res.Status)),
		slog.Duration("elapsed", res.Elapsed),
	)
	return res
}

// invoke runs one handler and folds its outcome into session state:
// the outcome is recorded, lifecycle hooks fire, and a fatal error is
// latched. Race mode bypasses this and folds outcomes itself, because
// there only the winning settlement may touch session state.
func (s *Session) invoke(ctx context.Context, reg *handler.Registration) handler.Outcome {
	payload := s.currentPayload()
	if reg.Condition != nil && !reg.Condition(payload) {
		return s.skip(ctx, reg)
	}

	ctrl := &controller{s: s, reg: reg}
	out, elapsed := s.execute(ctx, reg, ctrl, payload)

	if out.Err != nil {
		s.hooks.EmitHandlerFailed(ctx, s.action, reg, out.Err)
		switch {
		case ctx.Err() != nil:
			// The dispatch context died while the handler ran, and a
			// cooperating handler surfaces that by returning the context
			// error. That is external cancellation, not a handler
			// failure. Note ctx here is the session context: an error
			// from a per-handler Timeout deadline cancels only the
			// middleware's child context and still counts as a failure.
			s.abortExternal()
		case !reg.NonFatal:
			s.fail(out.Err)
		}
	} else {
		s.hooks.EmitHandlerCompleted(ctx, s.action, reg, elapsed)
	}
	s.record(out)
	return out
}

// execute runs one handler through the middleware chain with retries.
// It consumes Once registrations but does not record the outcome or
// touch session state beyond what the handler does through ctrl.
func (s *Session) execute(ctx context.Context, reg *handler.Registration, ctrl *controller, payload any) (handler.Outcome, time.Duration) {
	// A Once registration is consumed when it is actually invoked, not
	// when it is merely selected. Condition skips do not consume it.
	if reg.Once {
		s.table.Unregister(s.action, reg.ID)
	}

	var (
		value   any
		err     error
		elapsed time.Duration
	)
	for attempt := 1; ; attempt++ {
		inv := &handler.Invocation{
			Action:  s.action,
			Reg:     reg,
			Payload: payload,
			Attempt: attempt,
		}
		began := time.Now()
		value, err = s.mw(ctx, inv, func(ctx context.Context) (any, error) {
			return reg.Fn(ctx, payload, ctrl)
		})
		elapsed = time.Since(began)

		if err == nil || attempt > reg.MaxRetries || ctx.Err() != nil {
			break
		}

		delay := s.backoff.Delay(attempt)
		s.logger.Debug("handler retry scheduled",
			slog.String("action", s.action),
			slog.String("handler_id", reg.ID),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}

	out := handler.Outcome{HandlerID: reg.ID}
	if err != nil {
		out.Err = err
	} else {
		out.Value = value
		if v, ok := ctrl.explicit(); ok {
			out.Value = v
		}
	}
	return out, elapsed
}

// skip records a skipped outcome for reg without consuming it.
func (s *Session) skip(ctx context.Context, reg *handler.Registration) handler.Outcome {
	out := handler.Outcome{HandlerID: reg.ID, Skipped: true}
	s.record(out)
	s.hooks.EmitHandlerSkipped(ctx, s.action, reg)
	return out
}

// ──────────────────────────────────────────────────
// State accessors
// ──────────────────────────────────────────────────

func (s *Session) currentPayload() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payload
}

func (s *Session) record(out handler.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated || !s.collect {
		return
	}
	s.outcomes = append(s.outcomes, out)
}

// halted reports whether the session should stop starting new handlers.
func (s *Session) halted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted || s.failure != nil
}

// fail records the first fatal handler error. Later fatal errors are
// kept only in the outcome list.
func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated || s.failure != nil || s.aborted {
		return
	}
	s.failure = err
}

// abort marks the session aborted with the first reason given. A fatal
// error that already latched keeps the session in the errored state.
func (s *Session) abort(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated || s.aborted || s.failure != nil {
		return
	}
	s.aborted = true
	s.abortReason = reason
}

// abortExternal converts a mid-flight context cancellation into an abort.
func (s *Session) abortExternal() {
	s.abort("external cancellation")
}

// terminate closes the session to further state mutation. Outcomes from
// handlers still running, such as race losers, are discarded from here on.
func (s *Session) terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminated = true
	s.settle = nil
}

// shouldJumpSkip reports whether reg falls strictly between the jump
// origin and target and must therefore be skipped. Reaching a handler at
// or below the target clears the jump.
func (s *Session) shouldJumpSkip(priority int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.jumping {
		return false
	}
	if priority > s.jumpTo && priority < s.jumpFrom {
		return true
	}
	if priority <= s.jumpTo {
		s.jumping = false
	}
	return false
}
