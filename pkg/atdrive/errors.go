package atdrive

import "github.com/bft-labs/atdrive/internal/domain"

// Errors returned by Driver.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrQueueSaturated  = domain.ErrQueueSaturated
	ErrUnknownScript   = domain.ErrUnknownScript
)
