package session

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mineclover/context-action-sub008/handler"
)

// runParallel executes the snapshot tier by tier. A tier is the set of
// registrations sharing one priority. Blocking handlers in a tier run in
// strict registration order first; the rest of the tier then starts
// concurrently. The next tier does not start until every handler in the
// current tier has settled, so an abort or fatal error in one tier never
// prevents an already started sibling from finishing and recording its
// outcome.
func (s *Session) runParallel(ctx context.Context) {
	for _, tier := range tiers(s.snap) {
		if ctx.Err() != nil {
			s.abortExternal()
			return
		}
		if s.halted() {
			return
		}
		if s.shouldJumpSkip(tier.priority) {
			for _, reg := range tier.regs {
				s.skip(ctx, reg)
			}
			continue
		}

		var blocking, concurrent []*handler.Registration
		for _, reg := range tier.regs {
			if reg.Blocking {
				blocking = append(blocking, reg)
			} else {
				concurrent = append(concurrent, reg)
			}
		}

		stopped := false
		for _, reg := range blocking {
			if ctx.Err() != nil {
				s.abortExternal()
				return
			}
			s.invoke(ctx, reg)
			if s.halted() {
				stopped = true
				break
			}
		}
		if stopped {
			return
		}

		var g errgroup.Group
		for _, reg := range concurrent {
			g.Go(func() error {
				return s.invoke(ctx, reg).Err
			})
		}
		// invoke already recorded outcomes and the first fatal error, so
		// the group error is only the wait barrier.
		_ = g.Wait()
	}
}

// tier is one priority level of the snapshot, in registration order.
type tier struct {
	priority int
	regs     []*handler.Registration
}

// tiers splits an ordered snapshot into priority tiers, preserving the
// snapshot's order within and across tiers.
func tiers(snap []*handler.Registration) []tier {
	var out []tier
	for _, reg := range snap {
		if n := len(out); n > 0 && out[n-1].priority == reg.Priority {
			out[n-1].regs = append(out[n-1].regs, reg)
			continue
		}
		out = append(out, tier{priority: reg.Priority, regs: []*handler.Registration{reg}})
	}
	return out
}
