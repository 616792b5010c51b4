package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"
)

// ProcessRunner runs the binary directly from an argv array, without a shell,
// wired to the given standard streams.
type ProcessRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewProcessRunner returns a runner whose children inherit this process's
// standard streams.
func NewProcessRunner() *ProcessRunner {
	return &ProcessRunner{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

const waitDelay = 2 * time.Second

func (p *ProcessRunner) Run(ctx context.Context, binary string, args []string) Result {
	start := time.Now()

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = p.Stdin
	cmd.Stdout = p.Stdout
	cmd.Stderr = p.Stderr

	// The child stays in our process group so it keeps the terminal: a read
	// from an inherited tty works, and Ctrl-C reaches it as well as us.
	// Cancellation kills the child only; WaitDelay stops Wait from blocking
	// on pipes held open by anything it forked.
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	duration := time.Since(start)

	status := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			status = exitStatus(exitErr)
			err = nil
		} else if errors.Is(err, exec.ErrWaitDelay) {
			// exited cleanly but a grandchild kept its output open
			status = cmd.ProcessState.ExitCode()
			err = nil
		} else {
			// failed to start: missing binary, permission denied, ...
			status = LaunchFailedStatus
		}
	}

	if ctxErr := ctx.Err(); ctxErr != nil && err == nil {
		err = ctxErr
	}

	return Result{
		ExitStatus: status,
		Duration:   duration,
		Error:      err,
	}
}
