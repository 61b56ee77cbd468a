package middleware

import (
	"context"
	"log/slog"

	"github.com/mineclover/context-action-sub008/handler"
)

// Timeout returns middleware that enforces a per-handler execution
// deadline. If the registration has a non-zero Timeout, a
// context.WithTimeout wraps the handler call. When the deadline is
// exceeded the context is cancelled and the handler should return
// context.DeadlineExceeded.
func Timeout(logger *slog.Logger) Middleware {
	return func(ctx context.Context, inv *handler.Invocation, next Handler) (any, error) {
		if inv.Reg.Timeout > 0 {
			logger.Debug("handler timeout set",
				slog.String("action", inv.Action),
				slog.String("handler_id", inv.Reg.ID),
				slog.Duration("timeout", inv.Reg.Timeout),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, inv.Reg.Timeout)
			defer cancel()
		}
		return next(ctx)
	}
}
