package action

import (
	"context"

	"github.com/mineclover/context-action-sub008/handler"
	"github.com/mineclover/context-action-sub008/session"
)

// Register adds a typed handler for the action. The session payload is
// asserted to T before the handler runs; a payload of the wrong dynamic
// type is a handler error. A nil payload yields the zero value of T.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func Register[T any](p *Pipeline, action string, fn func(ctx context.Context, payload T, pc handler.Controller) (any, error), opts ...handler.Option) (*handler.Registration, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	def := handler.NewDefinition(action, fn)
	return p.Register(action, handler.Erase(def), opts...)
}

// Dispatch dispatches a typed payload. It is a thin wrapper over
// Pipeline.Dispatch that keeps call sites free of any-typed payloads.
func Dispatch[T any](ctx context.Context, p *Pipeline, action string, payload T, opts ...session.Option) (*session.Result, error) {
	return p.Dispatch(ctx, action, payload, opts...)
}
