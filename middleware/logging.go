package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/mineclover/context-action-sub008/handler"
)

// Logging returns middleware that logs handler start and completion.
// Start and success are logged at Debug (a dispatch may invoke many
// handlers); failures are logged at Error.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, inv *handler.Invocation, next Handler) (any, error) {
		logger.Debug("handler started",
			slog.String("action", inv.Action),
			slog.String("handler_id", inv.Reg.ID),
			slog.Int("priority", inv.Reg.Priority),
		)

		start := time.Now()
		value, err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("handler failed",
				slog.String("action", inv.Action),
				slog.String("handler_id", inv.Reg.ID),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Debug("handler completed",
				slog.String("action", inv.Action),
				slog.String("handler_id", inv.Reg.ID),
				slog.Duration("elapsed", elapsed),
			)
		}

		return value, err
	}
}
