package action

import "errors"

var (
	// Lifecycle errors.
	ErrClosed          = errors.New("action: pipeline closed")
	ErrShutdownTimeout = errors.New("action: shutdown timed out")

	// Registration errors.
	ErrNilHandler = errors.New("action: nil handler func")

	// Guard errors.
	ErrGuardExists   = errors.New("action: guard already attached")
	ErrGuardNotFound = errors.New("action: no guard attached")
)
