package runner

import (
	"context"
	"time"
)

// LaunchFailedStatus is reported when the binary could not be started at all.
const LaunchFailedStatus = -1

// Result captures the outcome of one invocation of the binary under test.
type Result struct {
	// ExitStatus is the child's exit code, or 128+N when it was killed by
	// signal N, or LaunchFailedStatus.
	ExitStatus int
	Duration   time.Duration
	Error      error // launch failure or context error
}

// JobRunner defines the interface for executing the binary on a single file.
type JobRunner interface {
	// Run executes binary with args and blocks until it terminates.
	Run(ctx context.Context, binary string, args []string) Result
}
