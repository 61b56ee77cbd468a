package session

// Mode selects how a dispatch session walks its handler snapshot.
type Mode string

// Execution modes.
const (
	// ModeSequential runs handlers one at a time in registration order.
	// Each handler fully completes before the next starts. This is the
	// only mode that guarantees a later handler observes ModifyPayload
	// from every earlier handler.
	ModeSequential Mode = "sequential"

	// ModeParallel runs each priority tier concurrently: all non-blocking
	// handlers in a tier start together and the tier completes before the
	// next tier starts. Blocking handlers run in strict sequence ahead of
	// their tier's concurrent batch.
	ModeParallel Mode = "parallel"

	// ModeRace starts every handler concurrently; the first settlement
	// wins and becomes the session result. Remaining handlers are asked
	// to stop via context cancellation but are not waited for.
	ModeRace Mode = "race"
)

// Options configures one dispatch call.
type Options struct {
	// Mode is the execution mode for this dispatch.
	Mode Mode

	// CallerKey identifies the caller for action guard purposes.
	// Guard state is keyed by (action, CallerKey).
	CallerKey string

	// CollectResults controls whether per-handler outcomes are retained
	// in the session and returned in the Result. Disabling collection is
	// useful for fire-and-forget dispatches with many handlers.
	CollectResults bool
}

// DefaultOptions returns per-dispatch options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Mode:           ModeSequential,
		CollectResults: true,
	}
}

// Option is a functional option for configuring one dispatch call.
type Option func(*Options)

// WithMode sets the execution mode for this dispatch.
func WithMode(m Mode) Option {
	return func(o *Options) {
		o.Mode = m
	}
}

// WithCallerKey sets the guard key for this dispatch.
func WithCallerKey(key string) Option {
	return func(o *Options) {
		o.CallerKey = key
	}
}

// WithoutResults disables per-handler outcome collection.
func WithoutResults() Option {
	return func(o *Options) {
		o.CollectResults = false
	}
}
