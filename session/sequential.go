package session

import "context"

// runSequential walks the snapshot in order, one handler at a time.
// The loop re-checks session state between handlers so an abort, a fatal
// error, or external cancellation stops the walk before the next start.
func (s *Session) runSequential(ctx context.Context) {
	for _, reg := range s.snap {
		if ctx.Err() != nil {
			s.abortExternal()
			return
		}
		if s.halted() {
			return
		}
		if s.shouldJumpSkip(reg.Priority) {
			s.skip(ctx, reg)
			continue
		}
		s.invoke(ctx, reg)
	}
}
