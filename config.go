package action

import (
	"time"

	"github.com/mineclover/context-action-sub008/session"
)

// Config holds configuration for the Pipeline.
type Config struct {
	// DefaultMode is the execution mode used when a dispatch does not
	// specify one.
	DefaultMode session.Mode

	// CollectResults controls whether dispatches retain per-handler
	// outcomes by default. Individual dispatches can override it with
	// session.WithoutResults.
	CollectResults bool

	// ShutdownTimeout is the maximum time Close waits for in-flight
	// asynchronous dispatches to drain.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultMode:     session.ModeSequential,
		CollectResults:  true,
		ShutdownTimeout: 30 * time.Second,
	}
}
