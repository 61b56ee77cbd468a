package session

import (
	"context"

	"github.com/mineclover/context-action-sub008/handler"
)

// runRace starts every eligible handler concurrently and folds in the
// first settlement: a handler function returning, or a handler calling
// SetResult or Abort through its controller. Losers get a cancelled
// context and are not waited for; their late outcomes are discarded by
// the terminated check in record.
func (s *Session) runRace(ctx context.Context) {
	payload := s.currentPayload()

	var starters []*handler.Registration
	for _, reg := range s.snap {
		if reg.Condition != nil && !reg.Condition(payload) {
			s.skip(ctx, reg)
			continue
		}
		starters = append(starters, reg)
	}
	if len(starters) == 0 {
		return
	}

	rctx, cancel := context.WithCancel(ctx)
	defer cancel()

	settle := make(chan settlement, len(starters))
	s.mu.Lock()
	s.settle = settle
	s.mu.Unlock()

	for _, reg := range starters {
		ctrl := &controller{s: s, reg: reg}
		go func() {
			out, elapsed := s.execute(rctx, reg, ctrl, payload)
			select {
			case settle <- settlement{reg: reg, out: out, elapsed: elapsed}:
			default:
			}
		}()
	}

	select {
	case <-ctx.Done():
		s.abortExternal()
	case won := <-settle:
		s.settleRace(ctx, won)
	}
	s.terminate()
}

// settleRace folds the winning settlement into session state.
func (s *Session) settleRace(ctx context.Context, won settlement) {
	if s.halted() {
		// The winner was an abort, or a sibling aborted concurrently.
		return
	}

	switch {
	case won.out.Err != nil:
		s.hooks.EmitHandlerFailed(ctx, s.action, won.reg, won.out.Err)
		if ctx.Err() != nil {
			// A cooperating handler returning the cancelled session
			// context's error settled first. Classify as external
			// cancellation, matching the other modes.
			s.abortExternal()
		} else if !won.reg.NonFatal {
			s.fail(won.out.Err)
		}
	case won.fromCtrl:
		// Early settlement through SetResult: the handler function is
		// still running, so no completion event fires for it.
	default:
		s.hooks.EmitHandlerCompleted(ctx, s.action, won.reg, won.elapsed)
	}
	s.record(won.out)
}
