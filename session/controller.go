package session

import (
	"github.com/mineclover/context-action-sub008/handler"
)

// controller implements handler.Controller for one registration within
// one session. Every method checks terminal state under the session
// mutex, so late callbacks from cancelled race losers are no-ops.
type controller struct {
	s   *Session
	reg *handler.Registration

	hasExplicit bool
	explicitVal any
}

var _ handler.Controller = (*controller)(nil)

// Abort marks the session aborted. The first abort wins; handlers that
// have not started are skipped. In race mode an abort is a settlement
// and ends the session immediately.
func (c *controller) Abort(reason string) {
	s := c.s
	s.mu.Lock()
	if s.terminated || s.aborted || s.failure != nil {
		s.mu.Unlock()
		return
	}
	s.aborted = true
	s.abortReason = reason
	settle := s.settle
	s.mu.Unlock()

	if settle != nil {
		select {
		case settle <- settlement{reg: c.reg, fromCtrl: true}:
		default:
		}
	}
}

// ModifyPayload replaces the payload for handlers that have not yet
// started. In-flight handlers keep the payload they were invoked with.
func (c *controller) ModifyPayload(payload any) {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return
	}
	s.payload = payload
}

// SetResult records this handler's outcome value, overriding whatever
// the handler function returns. In race mode it also settles the session
// in this handler's favor without waiting for the function to return.
func (c *controller) SetResult(value any) {
	s := c.s
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return
	}
	c.hasExplicit = true
	c.explicitVal = value
	settle := s.settle
	s.mu.Unlock()

	if settle != nil {
		select {
		case settle <- settlement{
			reg:      c.reg,
			out:      handler.Outcome{HandlerID: c.reg.ID, Value: value},
			fromCtrl: true,
		}:
		default:
		}
	}
}

// Results returns a copy of the outcomes accumulated so far.
func (c *controller) Results() []handler.Outcome {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]handler.Outcome, len(s.outcomes))
	copy(out, s.outcomes)
	return out
}

// JumpToPriority skips pending handlers with priority strictly between
// this handler's priority and the target. Jumping upward (target at or
// above the current priority) is a no-op, as is jumping in race mode
// where every handler has already started.
func (c *controller) JumpToPriority(priority int) {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated || s.mode == ModeRace {
		return
	}
	if priority >= c.reg.Priority {
		return
	}
	s.jumping = true
	s.jumpFrom = c.reg.Priority
	s.jumpTo = priority
}

// explicit returns the value set via SetResult, if any.
func (c *controller) explicit() (any, bool) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.explicitVal, c.hasExplicit
}
