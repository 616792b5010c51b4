//go:build !unix

package runner

import "os/exec"

func exitStatus(exitErr *exec.ExitError) int {
	return exitErr.ExitCode()
}
