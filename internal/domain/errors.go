package domain

import "errors"

// Domain errors represent error conditions in the atdrive domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("atdrive: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("atdrive: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("atdrive: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("atdrive: invalid configuration")

	// ErrQueueSaturated is returned when a bounded queue send does not
	// complete within the configured send timeout.
	ErrQueueSaturated = errors.New("atdrive: queue saturated")

	// ErrEmptyScript is returned when a script catalog entry has no commands.
	ErrEmptyScript = errors.New("atdrive: empty script")

	// ErrUnknownScript is returned when a script identifier is not in the catalog.
	ErrUnknownScript = errors.New("atdrive: unknown script")
)
