package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/mineclover/context-action-sub008/handler"
)

// Recover returns middleware that recovers from panics in the handler chain.
// Panics are converted to errors and logged with a stack trace.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, inv *handler.Invocation, next Handler) (value any, retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("action handler panicked",
					slog.String("action", inv.Action),
					slog.String("handler_id", inv.Reg.ID),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				value = nil
				retErr = fmt.Errorf("panic in handler %s for action %s: %v", inv.Reg.ID, inv.Action, r)
			}
		}()
		return next(ctx)
	}
}
