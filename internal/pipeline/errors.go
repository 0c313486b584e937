package pipeline

import "errors"

// Distinguished, non-retryable conflict errors. Workers that lose a lock
// race detect these and abort cleanly instead of double-executing paid LLM
// calls or corrupting a winner's progress.
var (
	// ErrAlreadyCompleted is returned when resume is requested against a
	// completed pipeline.
	ErrAlreadyCompleted = errors.New("pipeline already completed")

	// ErrConcurrentRun is returned when resume is requested against a
	// running pipeline whose state is not stale.
	ErrConcurrentRun = errors.New("pipeline already running")
)
