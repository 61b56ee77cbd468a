package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mineclover/context-action-sub008/backoff"
	"github.com/mineclover/context-action-sub008/handler"
	"github.com/mineclover/context-action-sub008/hook"
	"github.com/mineclover/context-action-sub008/middleware"
)

func newTestSession(table *handler.Table, action string, payload any, opts ...Option) *Session {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := slog.New(slog.DiscardHandler)
	return New(Config{
		Action:     action,
		Payload:    payload,
		Snapshot:   table.Snapshot(action),
		Table:      table,
		Middleware: middleware.Chain(),
		Hooks:      hook.NewRegistry(logger),
		Logger:     logger,
		Backoff:    backoff.NewConstant(time.Millisecond),
		Options:    o,
	})
}

// ──────────────────────────────────────────────────
// Sequential mode
// ──────────────────────────────────────────────────

func TestSequential_PriorityOrder(t *testing.T) {
	table := handler.NewTable()
	var order []string
	add := func(name string, priority int) {
		table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
			order = append(order, name)
			return name, nil
		}, handler.WithID(name), handler.WithPriority(priority))
	}
	add("validate", 20)
	add("persist", 10)
	add("notify", 0)

	res := newTestSession(table, "save", nil).Run(context.Background())

	if res.Status != StatusCompleted {
		t.Fatalf("Status = %q, want %q", res.Status, StatusCompleted)
	}
	want := []string{"validate", "persist", "notify"}
	if len(order) != len(want) {
		t.Fatalf("ran %d handlers, want %d", len(order), len(want))
	}
	for i, name := range want {
		if order[i] != name {
			t.Errorf("order[%d] = %q, want %q", i, order[i], name)
		}
	}
	if len(res.Outcomes) != 3 {
		t.Fatalf("len(Outcomes) = %d, want 3", len(res.Outcomes))
	}
	if res.Outcomes[0].Value != "validate" {
		t.Errorf("Outcomes[0].Value = %v, want %q", res.Outcomes[0].Value, "validate")
	}
}

func TestSequential_Abort(t *testing.T) {
	table := handler.NewTable()
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		pc.Abort("payload rejected")
		return nil, nil
	}, handler.WithID("gate"), handler.WithPriority(10))

	ran := false
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		ran = true
		return nil, nil
	}, handler.WithID("persist"), handler.WithPriority(0))

	res := newTestSession(table, "save", nil).Run(context.Background())

	if res.Status != StatusAborted {
		t.Fatalf("Status = %q, want %q", res.Status, StatusAborted)
	}
	if res.Reason != "payload rejected" {
		t.Errorf("Reason = %q, want %q", res.Reason, "payload rejected")
	}
	if ran {
		t.Error("handler after abort should not run")
	}
	// The aborting handler's own outcome is still recorded.
	if len(res.Outcomes) != 1 {
		t.Errorf("len(Outcomes) = %d, want 1", len(res.Outcomes))
	}
}

func TestSequential_ModifyPayload(t *testing.T) {
	table := handler.NewTable()
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		pc.ModifyPayload(payload.(string) + "-enriched")
		return nil, nil
	}, handler.WithID("enrich"), handler.WithPriority(10))

	var seen string
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		seen = payload.(string)
		return nil, nil
	}, handler.WithID("persist"), handler.WithPriority(0))

	res := newTestSession(table, "save", "doc").Run(context.Background())

	if res.Status != StatusCompleted {
		t.Fatalf("Status = %q, want %q", res.Status, StatusCompleted)
	}
	if seen != "doc-enriched" {
		t.Errorf("later handler saw payload %q, want %q", seen, "doc-enriched")
	}
}

func TestSequential_SetResultOverridesReturn(t *testing.T) {
	table := handler.NewTable()
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		pc.SetResult("explicit")
		return "returned", nil
	}, handler.WithID("h"))

	res := newTestSession(table, "save", nil).Run(context.Background())

	out, ok := res.Outcome("h")
	if !ok {
		t.Fatal("outcome for h not recorded")
	}
	if out.Value != "explicit" {
		t.Errorf("Value = %v, want %q", out.Value, "explicit")
	}
}

func TestSequential_ControllerResults(t *testing.T) {
	table := handler.NewTable()
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		return "first", nil
	}, handler.WithID("a"), handler.WithPriority(10))

	var observed []handler.Outcome
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		observed = pc.Results()
		return nil, nil
	}, handler.WithID("b"), handler.WithPriority(0))

	newTestSession(table, "save", nil).Run(context.Background())

	if len(observed) != 1 {
		t.Fatalf("Results() returned %d outcomes, want 1", len(observed))
	}
	if observed[0].Value != "first" {
		t.Errorf("Results()[0].Value = %v, want %q", observed[0].Value, "first")
	}
}

func TestSequential_JumpToPriority(t *testing.T) {
	table := handler.NewTable()
	var order []string
	add := func(name string, priority int, fn handler.Func) {
		table.Register("save", fn, handler.WithID(name), handler.WithPriority(priority))
	}
	add("jumper", 30, func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		order = append(order, "jumper")
		pc.JumpToPriority(10)
		return nil, nil
	})
	add("skipped", 20, func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		order = append(order, "skipped")
		return nil, nil
	})
	add("target", 10, func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		order = append(order, "target")
		return nil, nil
	})
	add("after", 0, func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		order = append(order, "after")
		return nil, nil
	})

	res := newTestSession(table, "save", nil).Run(context.Background())

	want := []string{"jumper", "target", "after"}
	if len(order) != len(want) {
		t.Fatalf("ran %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("ran %v, want %v", order, want)
		}
	}
	out, ok := res.Outcome("skipped")
	if !ok {
		t.Fatal("skipped handler outcome not recorded")
	}
	if !out.Skipped {
		t.Error("jumped-over handler should be recorded as skipped")
	}
}

func TestSequential_ConditionSkip(t *testing.T) {
	table := handler.NewTable()
	ran := false
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		ran = true
		return nil, nil
	}, handler.WithID("premium-only"), handler.WithCondition(func(payload any) bool {
		return payload == "premium"
	}))

	res := newTestSession(table, "save", "basic").Run(context.Background())

	if ran {
		t.Error("handler ran despite failing condition")
	}
	out, _ := res.Outcome("premium-only")
	if !out.Skipped {
		t.Error("condition-rejected handler should be recorded as skipped")
	}
	if res.Status != StatusCompleted {
		t.Errorf("Status = %q, want %q", res.Status, StatusCompleted)
	}
}

func TestSequential_OnceConsumedOnInvocation(t *testing.T) {
	table := handler.NewTable()
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		return nil, nil
	}, handler.WithID("migrate"), handler.WithOnce())

	newTestSession(table, "save", nil).Run(context.Background())

	if table.Count("save") != 0 {
		t.Error("once handler should be unregistered after invocation")
	}
}

func TestSequential_OnceNotConsumedByConditionSkip(t *testing.T) {
	table := handler.NewTable()
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		return nil, nil
	}, handler.WithID("migrate"), handler.WithOnce(), handler.WithCondition(func(payload any) bool {
		return false
	}))

	newTestSession(table, "save", nil).Run(context.Background())

	if table.Count("save") != 1 {
		t.Error("condition skip should not consume a once handler")
	}
}

func TestSequential_FatalError(t *testing.T) {
	errBoom := errors.New("boom")
	table := handler.NewTable()
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		return nil, errBoom
	}, handler.WithID("broken"), handler.WithPriority(10))

	ran := false
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		ran = true
		return nil, nil
	}, handler.WithID("after"), handler.WithPriority(0))

	res := newTestSession(table, "save", nil).Run(context.Background())

	if res.Status != StatusErrored {
		t.Fatalf("Status = %q, want %q", res.Status, StatusErrored)
	}
	if !errors.Is(res.Err, errBoom) {
		t.Errorf("Err = %v, want %v", res.Err, errBoom)
	}
	if ran {
		t.Error("handler after fatal error should not run")
	}
}

func TestSequential_NonFatalErrorContinues(t *testing.T) {
	table := handler.NewTable()
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		return nil, errors.New("best effort failed")
	}, handler.WithID("optional"), handler.WithPriority(10), handler.WithNonFatal())

	ran := false
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		ran = true
		return nil, nil
	}, handler.WithID("after"), handler.WithPriority(0))

	res := newTestSession(table, "save", nil).Run(context.Background())

	if res.Status != StatusCompleted {
		t.Fatalf("Status = %q, want %q", res.Status, StatusCompleted)
	}
	if !ran {
		t.Error("handler after non-fatal error should still run")
	}
	out, _ := res.Outcome("optional")
	if out.Err == nil {
		t.Error("non-fatal error should still be recorded in the outcome")
	}
}

func TestSequential_Retries(t *testing.T) {
	var attempts atomic.Int32
	table := handler.NewTable()
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		if attempts.Add(1) < 3 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}, handler.WithID("flaky"), handler.WithMaxRetries(3))

	res := newTestSession(table, "save", nil).Run(context.Background())

	if res.Status != StatusCompleted {
		t.Fatalf("Status = %q, want %q", res.Status, StatusCompleted)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestSequential_RetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	table := handler.NewTable()
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		attempts.Add(1)
		return nil, errors.New("permanent")
	}, handler.WithID("broken"), handler.WithMaxRetries(2))

	res := newTestSession(table, "save", nil).Run(context.Background())

	if res.Status != StatusErrored {
		t.Fatalf("Status = %q, want %q", res.Status, StatusErrored)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3 (initial + 2 retries)", got)
	}
}

// ──────────────────────────────────────────────────
// Cancellation
// ──────────────────────────────────────────────────

func TestRun_CancelledBeforeStart(t *testing.T) {
	table := handler.NewTable()
	ran := false
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		ran = true
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestSession(table, "save", nil).Run(ctx)

	if res.Status != StatusCancelled {
		t.Fatalf("Status = %q, want %q", res.Status, StatusCancelled)
	}
	if ran {
		t.Error("no handler should run when the context is already dead")
	}
}

func TestRun_CancelledMidFlight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	table := handler.NewTable()
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		cancel()
		return nil, nil
	}, handler.WithID("first"), handler.WithPriority(10))

	ran := false
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		ran = true
		return nil, nil
	}, handler.WithID("second"), handler.WithPriority(0))

	res := newTestSession(table, "save", nil).Run(ctx)

	if res.Status != StatusAborted {
		t.Fatalf("Status = %q, want %q", res.Status, StatusAborted)
	}
	if res.Reason != "external cancellation" {
		t.Errorf("Reason = %q, want %q", res.Reason, "external cancellation")
	}
	if ran {
		t.Error("handler after mid-flight cancellation should not run")
	}
}

func TestRun_CancelledMidFlight_CooperativeHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	table := handler.NewTable()
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		// The cooperative pattern: the handler observes the context
		// dying mid-run and returns its error.
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}, handler.WithID("cooperative"), handler.WithPriority(10))

	ran := false
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		ran = true
		return nil, nil
	}, handler.WithID("second"), handler.WithPriority(0))

	res := newTestSession(table, "save", nil).Run(ctx)

	if res.Status != StatusAborted {
		t.Fatalf("Status = %q, want %q", res.Status, StatusAborted)
	}
	if res.Reason != "external cancellation" {
		t.Errorf("Reason = %q, want %q", res.Reason, "external cancellation")
	}
	if res.Err != nil {
		t.Errorf("Err = %v, want nil", res.Err)
	}
	if ran {
		t.Error("handler after mid-flight cancellation should not run")
	}
	// The cooperating handler's own outcome still carries its error.
	out, ok := res.Outcome("cooperative")
	if !ok {
		t.Fatal("cooperating handler outcome not recorded")
	}
	if !errors.Is(out.Err, context.Canceled) {
		t.Errorf("outcome Err = %v, want context.Canceled", out.Err)
	}
}

func TestRun_HandlerTimeoutStaysHandlerError(t *testing.T) {
	table := handler.NewTable()
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, handler.WithID("slow"), handler.WithTimeout(5*time.Millisecond))

	logger := slog.New(slog.DiscardHandler)
	sess := New(Config{
		Action:     "save",
		Snapshot:   table.Snapshot("save"),
		Table:      table,
		Middleware: middleware.Chain(middleware.Timeout(logger)),
		Hooks:      hook.NewRegistry(logger),
		Logger:     logger,
		Backoff:    backoff.NewConstant(time.Millisecond),
		Options:    DefaultOptions(),
	})
	res := sess.Run(context.Background())

	// A per-handler deadline cancels only the middleware's child
	// context; the session context stays live, so this is a handler
	// failure, not an external cancellation.
	if res.Status != StatusErrored {
		t.Fatalf("Status = %q, want %q", res.Status, StatusErrored)
	}
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Errorf("Err = %v, want context.DeadlineExceeded", res.Err)
	}
}

// ──────────────────────────────────────────────────
// Parallel mode
// ──────────────────────────────────────────────────

func TestParallel_TierOrdering(t *testing.T) {
	table := handler.NewTable()
	var mu sync.Mutex
	var order []string
	add := func(name string, priority int) {
		table.Register("index", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil, nil
		}, handler.WithID(name), handler.WithPriority(priority))
	}
	add("tier2-a", 20)
	add("tier2-b", 20)
	add("tier1", 10)

	res := newTestSession(table, "index", nil, WithMode(ModeParallel)).Run(context.Background())

	if res.Status != StatusCompleted {
		t.Fatalf("Status = %q, want %q", res.Status, StatusCompleted)
	}
	if len(order) != 3 {
		t.Fatalf("ran %d handlers, want 3", len(order))
	}
	// tier1 must come after both tier2 handlers, whatever their
	// interleaving was.
	if order[2] != "tier1" {
		t.Errorf("order = %v, want tier1 last", order)
	}
}

func TestParallel_BlockingRunsFirst(t *testing.T) {
	table := handler.NewTable()
	var mu sync.Mutex
	var order []string

	table.Register("index", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		mu.Lock()
		order = append(order, "concurrent")
		mu.Unlock()
		return nil, nil
	}, handler.WithID("concurrent"), handler.WithPriority(10))

	table.Register("index", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		mu.Lock()
		order = append(order, "blocking")
		mu.Unlock()
		return nil, nil
	}, handler.WithID("blocking"), handler.WithPriority(10), handler.WithBlocking())

	res := newTestSession(table, "index", nil, WithMode(ModeParallel)).Run(context.Background())

	if res.Status != StatusCompleted {
		t.Fatalf("Status = %q, want %q", res.Status, StatusCompleted)
	}
	if len(order) != 2 || order[0] != "blocking" {
		t.Errorf("order = %v, want blocking first", order)
	}
}

func TestParallel_AbortStopsNextTier(t *testing.T) {
	table := handler.NewTable()
	table.Register("index", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		pc.Abort("not indexable")
		return nil, nil
	}, handler.WithID("gate"), handler.WithPriority(20))

	ran := false
	table.Register("index", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		ran = true
		return nil, nil
	}, handler.WithID("writer"), handler.WithPriority(10))

	res := newTestSession(table, "index", nil, WithMode(ModeParallel)).Run(context.Background())

	if res.Status != StatusAborted {
		t.Fatalf("Status = %q, want %q", res.Status, StatusAborted)
	}
	if ran {
		t.Error("lower tier should not start after abort")
	}
}

func TestParallel_StartedSiblingsFinishOnError(t *testing.T) {
	errBoom := errors.New("boom")
	table := handler.NewTable()

	siblingDone := make(chan struct{})
	table.Register("index", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		return nil, errBoom
	}, handler.WithID("broken"), handler.WithPriority(10))

	table.Register("index", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		defer close(siblingDone)
		time.Sleep(20 * time.Millisecond)
		return "done", nil
	}, handler.WithID("slow"), handler.WithPriority(10))

	res := newTestSession(table, "index", nil, WithMode(ModeParallel)).Run(context.Background())

	select {
	case <-siblingDone:
	default:
		t.Fatal("session returned before started sibling finished")
	}
	if res.Status != StatusErrored {
		t.Fatalf("Status = %q, want %q", res.Status, StatusErrored)
	}
	if !errors.Is(res.Err, errBoom) {
		t.Errorf("Err = %v, want %v", res.Err, errBoom)
	}
	out, ok := res.Outcome("slow")
	if !ok {
		t.Fatal("started sibling's outcome should be kept")
	}
	if out.Value != "done" {
		t.Errorf("sibling Value = %v, want %q", out.Value, "done")
	}
}

// ──────────────────────────────────────────────────
// Race mode
// ──────────────────────────────────────────────────

func TestRace_FirstSettlementWins(t *testing.T) {
	table := handler.NewTable()
	table.Register("fetch", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		return "fast", nil
	}, handler.WithID("fast"))

	loserCancelled := make(chan struct{})
	table.Register("fetch", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		select {
		case <-ctx.Done():
			close(loserCancelled)
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return "slow", nil
		}
	}, handler.WithID("slow"))

	res := newTestSession(table, "fetch", nil, WithMode(ModeRace)).Run(context.Background())

	if res.Status != StatusCompleted {
		t.Fatalf("Status = %q, want %q", res.Status, StatusCompleted)
	}
	if len(res.Outcomes) != 1 {
		t.Fatalf("len(Outcomes) = %d, want 1 (winner only)", len(res.Outcomes))
	}
	if res.Outcomes[0].Value != "fast" {
		t.Errorf("winner Value = %v, want %q", res.Outcomes[0].Value, "fast")
	}

	select {
	case <-loserCancelled:
	case <-time.After(time.Second):
		t.Fatal("loser was not cancelled")
	}
}

func TestRace_SetResultSettlesEarly(t *testing.T) {
	table := handler.NewTable()
	released := make(chan struct{})
	table.Register("fetch", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		pc.SetResult("early")
		<-released
		return "late", nil
	}, handler.WithID("settler"))

	done := make(chan *Result, 1)
	go func() {
		done <- newTestSession(table, "fetch", nil, WithMode(ModeRace)).Run(context.Background())
	}()

	select {
	case res := <-done:
		close(released)
		if res.Status != StatusCompleted {
			t.Fatalf("Status = %q, want %q", res.Status, StatusCompleted)
		}
		if len(res.Outcomes) != 1 || res.Outcomes[0].Value != "early" {
			t.Errorf("Outcomes = %+v, want single %q value", res.Outcomes, "early")
		}
	case <-time.After(time.Second):
		t.Fatal("SetResult did not settle the race")
	}
}

func TestRace_AbortSettles(t *testing.T) {
	table := handler.NewTable()
	table.Register("fetch", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		pc.Abort("nothing to fetch")
		return nil, nil
	}, handler.WithID("gate"))

	res := newTestSession(table, "fetch", nil, WithMode(ModeRace)).Run(context.Background())

	if res.Status != StatusAborted {
		t.Fatalf("Status = %q, want %q", res.Status, StatusAborted)
	}
	if res.Reason != "nothing to fetch" {
		t.Errorf("Reason = %q, want %q", res.Reason, "nothing to fetch")
	}
}

func TestRace_LateLoserIsNoOp(t *testing.T) {
	table := handler.NewTable()
	table.Register("fetch", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		return "winner", nil
	}, handler.WithID("fast"))

	loserDone := make(chan struct{})
	table.Register("fetch", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		defer close(loserDone)
		<-ctx.Done()
		pc.SetResult("too late")
		pc.Abort("too late")
		return "too late", nil
	}, handler.WithID("slow"))

	res := newTestSession(table, "fetch", nil, WithMode(ModeRace)).Run(context.Background())

	select {
	case <-loserDone:
	case <-time.After(time.Second):
		t.Fatal("loser never finished")
	}
	if res.Status != StatusCompleted {
		t.Fatalf("Status = %q, want %q", res.Status, StatusCompleted)
	}
	if len(res.Outcomes) != 1 || res.Outcomes[0].Value != "winner" {
		t.Errorf("Outcomes = %+v, want single winner outcome", res.Outcomes)
	}
}

// ──────────────────────────────────────────────────
// Options
// ──────────────────────────────────────────────────

func TestWithoutResults(t *testing.T) {
	table := handler.NewTable()
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		return "value", nil
	})

	res := newTestSession(table, "save", nil, WithoutResults()).Run(context.Background())

	if res.Status != StatusCompleted {
		t.Fatalf("Status = %q, want %q", res.Status, StatusCompleted)
	}
	if res.Outcomes != nil {
		t.Errorf("Outcomes = %v, want nil", res.Outcomes)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	table := handler.NewTable()
	var ran []string
	table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
		ran = append(ran, "a")
		// Registering during dispatch must not affect this session.
		table.Register("save", func(ctx context.Context, payload any, pc handler.Controller) (any, error) {
			ran = append(ran, "b")
			return nil, nil
		}, handler.WithID("b"), handler.WithPriority(-100))
		return nil, nil
	}, handler.WithID("a"))

	newTestSession(table, "save", nil).Run(context.Background())

	if len(ran) != 1 || ran[0] != "a" {
		t.Errorf("ran = %v, want only the snapshotted handler", ran)
	}
	if table.Count("save") != 2 {
		t.Errorf("Count = %d, want 2 for the next dispatch", table.Count("save"))
	}
}
