package handler

import "time"

// Options configures per-registration behavior such as ordering, lifetime,
// and error policy.
type Options struct {
	// ID is the caller-supplied registration identifier. Empty means a
	// generated TypeID. Registering a duplicate ID on the same action
	// replaces the prior registration.
	ID string

	// Priority determines invocation ordering. Higher values run earlier.
	Priority int

	// Once removes the registration automatically after its first
	// invocation. Success, error, and abort all count; a condition skip
	// does not.
	Once bool

	// Blocking forces the session to wait for this handler before
	// evaluating the next one, even in Parallel mode.
	Blocking bool

	// NonFatal keeps the session running when this handler errors.
	// The error is still recorded in the handler's outcome.
	NonFatal bool

	// Condition gates invocation on the current payload. Nil means
	// always invoke.
	Condition Condition

	// Timeout is the maximum duration one invocation may run before its
	// context is cancelled. Zero means no handler-level deadline.
	Timeout time.Duration

	// MaxRetries is the number of in-place retry attempts after a failed
	// invocation before the error counts. Zero disables retries.
	MaxRetries int
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{}
}

// Option is a functional option for configuring a handler registration.
type Option func(*Options)

// WithID sets a caller-supplied registration ID.
func WithID(id string) Option {
	return func(o *Options) {
		o.ID = id
	}
}

// WithPriority sets the registration priority. Higher values run earlier.
func WithPriority(p int) Option {
	return func(o *Options) {
		o.Priority = p
	}
}

// WithOnce marks the registration for removal after its first invocation.
func WithOnce() Option {
	return func(o *Options) {
		o.Once = true
	}
}

// WithBlocking forces sequential execution of this handler in all modes.
func WithBlocking() Option {
	return func(o *Options) {
		o.Blocking = true
	}
}

// WithNonFatal keeps the session running when this handler errors.
func WithNonFatal() Option {
	return func(o *Options) {
		o.NonFatal = true
	}
}

// WithCondition gates invocation on a payload predicate.
func WithCondition(c Condition) Option {
	return func(o *Options) {
		o.Condition = c
	}
}

// WithTimeout sets the maximum duration for one invocation.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithMaxRetries sets the number of in-place retry attempts on failure.
func WithMaxRetries(n int) Option {
	return func(o *Options) {
		o.MaxRetries = n
	}
}
