package session

import (
	"context"

	"github.com/mineclover/context-action-sub008/id"
)

type ctxKey int

const dispatchIDKey ctxKey = iota

// WithDispatchID returns a context carrying the dispatch ID. The session
// applies this before invoking handlers, so handler and hook code can
// correlate log lines with a dispatch.
func WithDispatchID(ctx context.Context, did id.DispatchID) context.Context {
	return context.WithValue(ctx, dispatchIDKey, did)
}

// DispatchIDFromContext returns the dispatch ID stored in ctx, if any.
func DispatchIDFromContext(ctx context.Context) (id.DispatchID, bool) {
	did, ok := ctx.Value(dispatchIDKey).(id.DispatchID)
	return did, ok
}
