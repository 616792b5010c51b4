//go:build unix

package runner_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "sqljob/pkg/executor/runner"
)

// writeScript drops an executable /bin/sh script into a temp dir.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bin.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func quietRunner() (*ProcessRunner, *bytes.Buffer) {
	var out bytes.Buffer
	return &ProcessRunner{Stdout: &out, Stderr: &out}, &out
}

func TestProcessRunner_ExitCodes(t *testing.T) {
	bin := writeScript(t, `exit "$2"`)
	r, _ := quietRunner()

	for _, code := range []int{0, 1, 2, 42} {
		res := r.Run(context.Background(), bin, []string{"-d", strconv.Itoa(code)})
		assert.NoError(t, res.Error)
		assert.Equal(t, code, res.ExitStatus)
	}
}

func TestProcessRunner_SignalUsesShellConvention(t *testing.T) {
	bin := writeScript(t, `kill -SEGV $$`)
	r, _ := quietRunner()

	res := r.Run(context.Background(), bin, nil)
	assert.NoError(t, res.Error)
	assert.Equal(t, 139, res.ExitStatus)
}

func TestProcessRunner_ArgumentsAreNotShellExpanded(t *testing.T) {
	bin := writeScript(t, `printf '%s' "$2"`)
	r, out := quietRunner()

	name := "./job/$(touch pwned); a b.sql"
	res := r.Run(context.Background(), bin, []string{"-d", name})
	require.NoError(t, res.Error)
	assert.Equal(t, 0, res.ExitStatus)
	assert.Equal(t, name, out.String())
}

func TestProcessRunner_MissingBinary(t *testing.T) {
	r, _ := quietRunner()

	res := r.Run(context.Background(), filepath.Join(t.TempDir(), "nope"), []string{"-d", "a.sql"})
	assert.Error(t, res.Error)
	assert.Equal(t, LaunchFailedStatus, res.ExitStatus)
}

func TestProcessRunner_NotExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(path, []byte("exit 0\n"), 0o644))
	r, _ := quietRunner()

	res := r.Run(context.Background(), path, nil)
	assert.Error(t, res.Error)
	assert.Equal(t, LaunchFailedStatus, res.ExitStatus)
}

func TestProcessRunner_ContextKillsChild(t *testing.T) {
	bin := writeScript(t, `exec sleep 30`)
	r, _ := quietRunner()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := r.Run(ctx, bin, nil)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.ErrorIs(t, res.Error, context.DeadlineExceeded)
	assert.Equal(t, 128+9, res.ExitStatus)
}

func TestProcessRunner_ChildReadsStdin(t *testing.T) {
	bin := writeScript(t, `read x; echo "got:$x"`)
	var out bytes.Buffer
	r := &ProcessRunner{Stdin: strings.NewReader("hello\n"), Stdout: &out, Stderr: &out}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res := r.Run(ctx, bin, nil)
	require.NoError(t, res.Error)
	assert.Equal(t, 0, res.ExitStatus)
	assert.Equal(t, "got:hello\n", out.String())
}

// A child in its own process group is a background job on the terminal and
// stops with SIGTTIN when it reads an inherited tty.
func TestProcessRunner_ChildStaysInCallerProcessGroup(t *testing.T) {
	if _, err := os.Stat("/proc/self/stat"); err != nil {
		t.Skip("no procfs")
	}
	// field 5 of /proc/<pid>/stat is the process group
	bin := writeScript(t, `cut -d' ' -f5 /proc/$$/stat`)
	r, out := quietRunner()

	res := r.Run(context.Background(), bin, nil)
	require.NoError(t, res.Error)
	require.Equal(t, 0, res.ExitStatus)
	assert.Equal(t, strconv.Itoa(syscall.Getpgrp()), strings.TrimSpace(out.String()))
}

func TestProcessRunner_BackgroundGrandchildDoesNotBlock(t *testing.T) {
	for _, code := range []int{0, 3} {
		bin := writeScript(t, `sleep 30 & exit `+strconv.Itoa(code))
		r, _ := quietRunner()

		start := time.Now()
		res := r.Run(context.Background(), bin, nil)
		assert.Less(t, time.Since(start), 10*time.Second)
		assert.NoError(t, res.Error)
		assert.Equal(t, code, res.ExitStatus)
	}
}

func TestProcessRunner_InheritsStreams(t *testing.T) {
	bin := writeScript(t, `echo out; echo err 1>&2`)
	var stdout, stderr bytes.Buffer
	r := &ProcessRunner{Stdout: &stdout, Stderr: &stderr}

	res := r.Run(context.Background(), bin, nil)
	require.NoError(t, res.Error)
	assert.Equal(t, "out\n", stdout.String())
	assert.Equal(t, "err\n", stderr.String())
	assert.Greater(t, res.Duration, time.Duration(0))
}

