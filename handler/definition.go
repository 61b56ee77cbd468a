package handler

import (
	"context"
	"fmt"
)

// Definition is a typed handler definition for one action.
// T is the payload type the handler expects.
type Definition[T any] struct {
	// Action is the action name this handler answers to.
	Action string

	// Handler is the typed function invoked on dispatch.
	Handler func(ctx context.Context, payload T, pc Controller) (any, error)

	// Opts configures priority, lifetime, and error policy.
	Opts Options
}

// NewDefinition creates a typed handler definition.
func NewDefinition[T any](action string, h func(ctx context.Context, payload T, pc Controller) (any, error), opts ...Option) *Definition[T] {
	def := &Definition[T]{
		Action:  action,
		Handler: h,
		Opts:    DefaultOptions(),
	}
	for _, opt := range opts {
		opt(&def.Opts)
	}
	return def
}

// Erase converts a typed definition into a type-erased Func by asserting
// the session payload to T. The pipeline is in-process, so no
// serialization round-trip is involved; a payload of the wrong dynamic
// type is a handler error, not a panic. A nil payload yields the zero
// value of T.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func Erase[T any](def *Definition[T]) Func {
	return func(ctx context.Context, payload any, pc Controller) (any, error) {
		if payload == nil {
			var zero T
			return def.Handler(ctx, zero, pc)
		}
		typed, ok := payload.(T)
		if !ok {
			return nil, fmt.Errorf("handler: payload for action %q is %T, want %T", def.Action, payload, *new(T))
		}
		return def.Handler(ctx, typed, pc)
	}
}
