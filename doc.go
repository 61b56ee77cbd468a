// Package action provides a composable in-process action dispatch
// pipeline for Go. Callers register named actions with priority-ordered
// handlers, then dispatch payloads through them under sequential,
// parallel, or race execution.
//
// The pipeline is designed as a library, not a service. Import it,
// register handlers as ordinary Go functions, and dispatch:
//
//	p, err := action.New(
//	    action.WithLogger(logger),
//	    action.WithDefaultMode(session.ModeSequential),
//	)
//	p.Register("save-document", saveHandler, handler.WithPriority(10))
//	res, err := p.Dispatch(ctx, "save-document", doc)
//
// Each handler receives a controller scoped to its dispatch session and
// can abort the session, rewrite the payload seen by later handlers,
// override its own result, or jump past intermediate priorities.
//
// Action guards shape dispatch rates per caller key: a debounce guard
// coalesces bursts into one trailing run, a throttle guard admits one
// run per window. See the guard package.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package action
