//go:build unix

package runner

import (
	"os/exec"
	"syscall"
)

// exitStatus reports signal deaths the way a POSIX shell does: 128 + signal.
func exitStatus(exitErr *exec.ExitError) int {
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return exitErr.ExitCode()
}
