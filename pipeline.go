package action

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/mineclover/context-action-sub008/backoff"
	"github.com/mineclover/context-action-sub008/guard"
	"github.com/mineclover/context-action-sub008/handler"
	"github.com/mineclover/context-action-sub008/hook"
	"github.com/mineclover/context-action-sub008/id"
	"github.com/mineclover/context-action-sub008/middleware"
	"github.com/mineclover/context-action-sub008/session"
)

// instrumentationName is the scope name used for injected providers.
const instrumentationName = "github.com/mineclover/context-action-sub008"

// Pipeline is the central coordinator for action dispatch: the handler
// table, the middleware chain wrapped around every handler invocation,
// lifecycle hooks, and per-action guards.
//
// Create one with New() and functional options. A Pipeline is safe for
// concurrent use; registration and dispatch may interleave freely
// because every dispatch runs against an immutable snapshot of the
// handler table.
type Pipeline struct {
	id      id.PipelineID
	config  Config
	logger  *slog.Logger
	table   *handler.Table
	hooks   *hook.Registry
	chain   middleware.Middleware
	backoff backoff.Strategy

	// Option staging, consumed at the end of New.
	pendingHooks []hook.Hook
	userMW       []middleware.Middleware
	tracer       trace.Tracer
	meter        metric.Meter

	mu     sync.Mutex
	guards map[string]*guard.Guard
	closed bool

	// inflight tracks asynchronous dispatches for Close to drain.
	inflight sync.WaitGroup
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		id:      id.NewPipelineID(),
		config:  DefaultConfig(),
		logger:  slog.Default(),
		table:   handler.NewTable(),
		backoff: backoff.DefaultStrategy(),
		guards:  make(map[string]*guard.Guard),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	p.hooks = hook.NewRegistry(p.logger)
	for _, h := range p.pendingHooks {
		p.hooks.Register(h)
	}
	p.pendingHooks = nil

	p.chain = p.buildChain()
	return p, nil
}

// buildChain composes the per-invocation middleware chain. Recover is
// outermost so it also catches panics in other middleware; Timeout is
// innermost so the handler-level deadline excludes middleware overhead.
// User middleware runs between Logging and Timeout.
func (p *Pipeline) buildChain() middleware.Middleware {
	tracing := middleware.Tracing()
	if p.tracer != nil {
		tracing = middleware.TracingWithTracer(p.tracer)
	}
	metrics := middleware.Metrics()
	if p.meter != nil {
		metrics = middleware.MetricsWithMeter(p.meter)
	}

	mws := []middleware.Middleware{
		middleware.Recover(p.logger),
		tracing,
		metrics,
		middleware.Logging(p.logger),
	}
	mws = append(mws, p.userMW...)
	mws = append(mws, middleware.Timeout(p.logger))
	return middleware.Chain(mws...)
}

// ID returns the pipeline's ID.
func (p *Pipeline) ID() id.PipelineID { return p.id }

// Logger returns the pipeline's logger.
func (p *Pipeline) Logger() *slog.Logger { return p.logger }

// Config returns a copy of the pipeline's configuration.
func (p *Pipeline) Config() Config { return p.config }

// Hooks returns the pipeline's hook registry.
func (p *Pipeline) Hooks() *hook.Registry { return p.hooks }

// ──────────────────────────────────────────────────
// Registration
// ──────────────────────────────────────────────────

// Register adds a handler for the given action and returns its
// registration. A duplicate ID on the same action replaces the prior
// entry. Registration during an in-flight dispatch never affects that
// dispatch; it is visible to the next one.
func (p *Pipeline) Register(action string, fn handler.Func, opts ...handler.Option) (*handler.Registration, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	reg := p.table.Register(action, fn, opts...)
	p.logger.Debug("handler registered",
		slog.String("action", action),
		slog.String("handler_id", reg.ID),
		slog.Int("priority", reg.Priority),
	)
	return reg, nil
}

// Unregister removes the handler with the given registration ID from the
// action. It reports whether a handler was removed.
func (p *Pipeline) Unregister(action, regID string) bool {
	return p.table.Unregister(action, regID)
}

// HasHandlers reports whether any handler is registered for the action.
func (p *Pipeline) HasHandlers(action string) bool { return p.table.Has(action) }

// HandlerCount returns the number of handlers registered for the action.
func (p *Pipeline) HandlerCount(action string) int { return p.table.Count(action) }

// ClearAction removes all handlers for the action.
func (p *Pipeline) ClearAction(action string) { p.table.Clear(action) }

// ClearAll removes every handler for every action.
func (p *Pipeline) ClearAll() { p.table.ClearAll() }

// Actions returns all action names with at least one registered handler.
func (p *Pipeline) Actions() []string { return p.table.Actions() }

// ──────────────────────────────────────────────────
// Dispatch
// ──────────────────────────────────────────────────

// Dispatch runs the action's handlers with the payload and blocks until
// the session reaches a terminal state. A dispatch with no registered
// handlers completes trivially. When a guard is attached to the action,
// the call blocks until the guard releases or suppresses the submission;
// a suppressed submission yields a result with StatusSuperseded or
// StatusDropped and no outcomes.
func (p *Pipeline) Dispatch(ctx context.Context, action string, payload any, opts ...session.Option) (*session.Result, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.mu.Unlock()
	return p.dispatch(ctx, action, payload, opts)
}

// dispatch routes a request through the action's guard, if any, and
// otherwise straight into a session. It skips the closed check so that
// asynchronous dispatches admitted before Close can still finish.
func (p *Pipeline) dispatch(ctx context.Context, action string, payload any, opts []session.Option) (*session.Result, error) {
	p.mu.Lock()
	g := p.guards[action]
	p.mu.Unlock()

	o := p.sessionOptions(opts)
	if g != nil {
		out, err := g.Submit(ctx, o.CallerKey, payload).Wait(ctx)
		if err != nil {
			return nil, err
		}
		if out.Result != nil {
			return out.Result, nil
		}
		return &session.Result{Action: action, Mode: o.Mode, Status: out.Status}, nil
	}
	return p.runSession(ctx, action, payload, o), nil
}

// DispatchAsync starts the dispatch in its own goroutine and returns a
// handle that resolves when the session terminates. Close drains handles
// created before it was called.
func (p *Pipeline) DispatchAsync(ctx context.Context, action string, payload any, opts ...session.Option) (*Handle, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.inflight.Add(1)
	p.mu.Unlock()

	h := newHandle()
	go func() {
		defer p.inflight.Done()
		res, err := p.dispatch(ctx, action, payload, opts)
		h.resolve(res, err)
	}()
	return h, nil
}

// sessionOptions folds pipeline defaults under the per-dispatch options.
func (p *Pipeline) sessionOptions(opts []session.Option) session.Options {
	o := session.DefaultOptions()
	o.Mode = p.config.DefaultMode
	o.CollectResults = p.config.CollectResults
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// runSession executes one dispatch against a snapshot of the table.
func (p *Pipeline) runSession(ctx context.Context, action string, payload any, o session.Options) *session.Result {
	sess := session.New(session.Config{
		Action:     action,
		Payload:    payload,
		Snapshot:   p.table.Snapshot(action),
		Table:      p.table,
		Middleware: p.chain,
		Hooks:      p.hooks,
		Logger:     p.logger,
		Backoff:    p.backoff,
		Options:    o,
	})
	return sess.Run(ctx)
}

// ──────────────────────────────────────────────────
// Guards
// ──────────────────────────────────────────────────

// AttachGuard places a guard in front of the action. Guarded dispatches
// run under the pipeline's default session options; the dispatch call's
// caller key selects the guard window. Attaching to an already guarded
// action is an error.
func (p *Pipeline) AttachGuard(action string, cfg guard.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if _, ok := p.guards[action]; ok {
		return ErrGuardExists
	}

	run := func(ctx context.Context, payload any) *session.Result {
		return p.runSession(ctx, action, payload, p.sessionOptions(nil))
	}
	p.guards[action] = guard.New(cfg, run,
		guard.WithLogger(p.logger),
		guard.WithSuppressedFunc(func(key string, strategy guard.Strategy) {
			p.hooks.EmitGuardSuppressed(context.Background(), action, key, string(strategy))
		}),
	)
	p.logger.Debug("guard attached",
		slog.String("action", action),
		slog.String("strategy", string(cfg.Strategy)),
		slog.Duration("window", cfg.Window),
	)
	return nil
}

// DetachGuard removes and shuts down the action's guard. Pending
// submissions resolve as dropped.
func (p *Pipeline) DetachGuard(action string) error {
	p.mu.Lock()
	g, ok := p.guards[action]
	delete(p.guards, action)
	p.mu.Unlock()
	if !ok {
		return ErrGuardNotFound
	}
	g.Close()
	return nil
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Close shuts the pipeline down: guards stop accepting submissions,
// in-flight asynchronous dispatches are drained up to the shutdown
// timeout, and shutdown hooks fire. Dispatch calls after Close return
// ErrClosed. Close is idempotent.
func (p *Pipeline) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	guards := make([]*guard.Guard, 0, len(p.guards))
	for _, g := range p.guards {
		guards = append(guards, g)
	}
	p.guards = make(map[string]*guard.Guard)
	p.mu.Unlock()

	for _, g := range guards {
		g.Close()
	}

	drained := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.config.ShutdownTimeout):
		return ErrShutdownTimeout
	}

	p.hooks.EmitShutdown(ctx)
	p.logger.Debug("pipeline closed", slog.String("pipeline_id", p.id.String()))
	return nil
}
