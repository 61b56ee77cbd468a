// Package guard implements action guards: rate shaping applied between a
// dispatch request and its execution. A debounce guard coalesces bursts of
// submissions into one trailing-edge run with the latest payload; a
// throttle guard admits at most one run per window, dropping or queueing
// the rest. Guard state is tracked per caller key, so independent callers
// never share a window.
package guard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mineclover/context-action-sub008/session"
)

// Strategy selects the guard's shaping behavior.
type Strategy string

const (
	// StrategyDebounce coalesces submissions: the run fires one window
	// after the last submission, with that submission's payload. Earlier
	// submissions in the window resolve as superseded.
	StrategyDebounce Strategy = "debounce"

	// StrategyThrottle admits the first submission in each window
	// immediately. Later submissions in the window are dropped or queued
	// according to Policy.
	StrategyThrottle Strategy = "throttle"
)

// Policy says what a throttle guard does with a submission that arrives
// inside a closed window.
type Policy string

const (
	// PolicyDrop rejects the submission; its ticket resolves as dropped.
	PolicyDrop Policy = "drop"

	// PolicyQueue holds the submission until the window reopens, then
	// runs it. Queued submissions still honor their own context.
	PolicyQueue Policy = "queue"
)

// Config describes one guard.
type Config struct {
	// Strategy is the shaping behavior. Required.
	Strategy Strategy

	// Window is the debounce quiet period or the throttle interval.
	// Required, must be positive.
	Window time.Duration

	// Policy applies to throttle guards only. Defaults to PolicyDrop.
	Policy Policy
}

// RunFunc executes the guarded dispatch once the guard releases it.
type RunFunc func(ctx context.Context, payload any) *session.Result

// SuppressedFunc is notified when a guard supersedes or drops a
// submission instead of running it.
type SuppressedFunc func(key string, strategy Strategy)

// Outcome is the resolution of one guarded submission.
type Outcome struct {
	// Status is session.StatusSuperseded or session.StatusDropped when
	// the guard suppressed the submission, otherwise the status of the
	// dispatch that ran.
	Status session.Status

	// Result is the dispatch result when the submission actually ran.
	// Nil for suppressed submissions.
	Result *session.Result
}

// Ticket tracks one submission through the guard. Every ticket resolves
// exactly once, including on guard shutdown.
type Ticket struct {
	once sync.Once
	ch   chan Outcome
}

func newTicket() *Ticket {
	return &Ticket{ch: make(chan Outcome, 1)}
}

func (t *Ticket) resolve(o Outcome) {
	t.once.Do(func() { t.ch <- o })
}

// Outcome returns a channel that delivers the submission's resolution.
func (t *Ticket) Outcome() <-chan Outcome {
	return t.ch
}

// Wait blocks until the ticket resolves or ctx is done.
func (t *Ticket) Wait(ctx context.Context) (Outcome, error) {
	select {
	case o := <-t.ch:
		return o, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// keyState is the per-caller-key window state.
type keyState struct {
	// Debounce: the pending trailing-edge submission.
	timer   *time.Timer
	pending *Ticket
	ctx     context.Context
	payload any

	// Throttle: one token per window.
	limiter *rate.Limiter
}

// Guard applies one Config to submissions for one action.
type Guard struct {
	cfg        Config
	run        RunFunc
	logger     *slog.Logger
	suppressed SuppressedFunc

	life     context.Context
	lifeStop context.CancelFunc

	mu     sync.Mutex
	keys   map[string]*keyState
	closed bool
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the guard logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// WithSuppressedFunc sets the suppression callback.
func WithSuppressedFunc(fn SuppressedFunc) Option {
	return func(g *Guard) { g.suppressed = fn }
}

// New creates a guard that releases submissions into run.
func New(cfg Config, run RunFunc, opts ...Option) *Guard {
	if cfg.Policy == "" {
		cfg.Policy = PolicyDrop
	}
	life, stop := context.WithCancel(context.Background())
	g := &Guard{
		cfg:      cfg,
		run:      run,
		logger:   slog.Default(),
		life:     life,
		lifeStop: stop,
		keys:     make(map[string]*keyState),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Submit offers a payload to the guard under the given caller key and
// returns a ticket that resolves when the submission runs or is
// suppressed. Submit never blocks on the window.
func (g *Guard) Submit(ctx context.Context, key string, payload any) *Ticket {
	t := newTicket()

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		t.resolve(Outcome{Status: session.StatusDropped})
		return t
	}

	switch g.cfg.Strategy {
	case StrategyThrottle:
		g.submitThrottle(ctx, key, payload, t)
	default:
		g.submitDebounce(ctx, key, payload, t)
	}
	return t
}

// submitDebounce replaces the key's pending submission and restarts the
// quiet-period timer. Called with g.mu held; releases it.
func (g *Guard) submitDebounce(ctx context.Context, key string, payload any, t *Ticket) {
	ks := g.keys[key]
	if ks == nil {
		ks = &keyState{}
		g.keys[key] = ks
	}

	superseded := ks.pending
	ks.pending = t
	ks.ctx = ctx
	ks.payload = payload

	if ks.timer == nil {
		ks.timer = time.AfterFunc(g.cfg.Window, func() { g.fire(key) })
	} else {
		ks.timer.Reset(g.cfg.Window)
	}
	g.mu.Unlock()

	if superseded != nil {
		superseded.resolve(Outcome{Status: session.StatusSuperseded})
		g.notifySuppressed(key)
	}
}

// fire runs the trailing-edge debounce submission for key.
func (g *Guard) fire(key string) {
	g.mu.Lock()
	ks := g.keys[key]
	if ks == nil || ks.pending == nil || g.closed {
		g.mu.Unlock()
		return
	}
	t := ks.pending
	ctx := ks.ctx
	payload := ks.payload
	delete(g.keys, key)
	g.mu.Unlock()

	res := g.run(ctx, payload)
	t.resolve(Outcome{Status: res.Status, Result: res})
}

// submitThrottle admits, drops, or queues the submission against the
// key's window. Called with g.mu held; releases it.
func (g *Guard) submitThrottle(ctx context.Context, key string, payload any, t *Ticket) {
	ks := g.keys[key]
	if ks == nil {
		ks = &keyState{limiter: rate.NewLimiter(rate.Every(g.cfg.Window), 1)}
		g.keys[key] = ks
	}
	limiter := ks.limiter

	if limiter.Allow() {
		g.mu.Unlock()
		go g.release(ctx, payload, t)
		return
	}

	if g.cfg.Policy == PolicyDrop {
		g.mu.Unlock()
		t.resolve(Outcome{Status: session.StatusDropped})
		g.notifySuppressed(key)
		return
	}

	g.mu.Unlock()
	go func() {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(g.life, cancel)
		defer stop()

		if err := limiter.Wait(wctx); err != nil {
			t.resolve(Outcome{Status: session.StatusDropped})
			g.notifySuppressed(key)
			return
		}
		g.release(ctx, payload, t)
	}()
}

// release runs the dispatch and resolves the ticket with its result.
func (g *Guard) release(ctx context.Context, payload any, t *Ticket) {
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if closed {
		t.resolve(Outcome{Status: session.StatusDropped})
		return
	}
	res := g.run(ctx, payload)
	t.resolve(Outcome{Status: res.Status, Result: res})
}

func (g *Guard) notifySuppressed(key string) {
	if g.suppressed != nil {
		g.suppressed(key, g.cfg.Strategy)
	}
	g.logger.Debug("guarded dispatch suppressed",
		slog.String("key", key),
		slog.String("strategy", string(g.cfg.Strategy)),
	)
}

// Close shuts the guard down. Pending debounce submissions and queued
// throttle submissions resolve as dropped; nothing runs after Close
// returns.
func (g *Guard) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	var pending []*Ticket
	for key, ks := range g.keys {
		if ks.timer != nil {
			ks.timer.Stop()
		}
		if ks.pending != nil {
			pending = append(pending, ks.pending)
		}
		delete(g.keys, key)
	}
	g.mu.Unlock()

	g.lifeStop()
	for _, t := range pending {
		t.resolve(Outcome{Status: session.StatusDropped})
	}
}
