// Package sandbox implements the Sandbox Invoker: a single operation,
// SafeCall, that spawns one constrained subprocess, drains its output
// under a byte cap, enforces a wall-clock timeout, and guarantees
// process-group teardown on every exit path. Grounded in the run-wait-
// collect shape of envexec/run_single.go and the concurrent-drain
// pattern of pkg/envexec/file_collect.go, rebuilt over a plain
// prlimit/bash child rather than a namespace container; see DESIGN.md.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/judgecore/judge/internal/errs"
)

// RunResult is the outcome of a single SafeCall invocation.
type RunResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode *int
	Signal   *string
	Stdin    []byte
	Duration time.Duration
}

// Limits bounds every child spawned by an Invoker.
type Limits struct {
	// ProcLimit is passed to prlimit --nproc.
	ProcLimit uint64
	// NoFileLimit is passed to prlimit --nofile.
	NoFileLimit uint64
	// OutputMaxSize caps stdout and stderr independently.
	OutputMaxSize int64
	// DisableNetworking prepends nosocket to the child command.
	DisableNetworking bool
}

// Invoker spawns constrained subprocesses under a fixed set of Limits.
type Invoker struct {
	limits Limits
}

// New creates an Invoker bound to the given Limits.
func New(limits Limits) *Invoker {
	return &Invoker{limits: limits}
}

// SafeCall spawns exePath as `prlimit --nproc=P --nofile=F [nosocket]
// bash exePath argv...`, running as the leader of its own process group
// under (uid, gid), with env augmented by PISTON_ALIAS. Stdin is written
// in full and closed. Stdout/stderr are drained concurrently by the Go
// runtime's own pipe-copy goroutines (os/exec spawns one per non-file
// Writer), each capped at OutputMaxSize. On timeout, on either output
// cap being crossed, or on any other exit path, the entire process
// group receives SIGKILL exactly once.
func (inv *Invoker) SafeCall(
	ctx context.Context,
	exePath string,
	argv []string,
	timeout time.Duration,
	stdin []byte,
	env []string,
	cwd string,
	uid, gid int,
	alias string,
) (RunResult, error) {
	args := make([]string, 0, len(argv)+5)
	args = append(args,
		fmt.Sprintf("--nproc=%d", inv.limits.ProcLimit),
		fmt.Sprintf("--nofile=%d", inv.limits.NoFileLimit),
	)
	if inv.limits.DisableNetworking {
		args = append(args, "nosocket")
	}
	args = append(args, "bash", exePath)
	args = append(args, argv...)

	cmd := exec.Command("prlimit", args...)
	cmd.Dir = cwd
	cmd.Env = append(append([]string{}, env...), "PISTON_ALIAS="+alias)
	cmd.SysProcAttr = credential(uid, gid)
	cmd.Stdin = bytes.NewReader(stdin)

	var killOnce sync.Once
	kill := func() {
		killOnce.Do(func() {
			if cmd.Process != nil {
				killGroup(cmd.Process.Pid)
			}
		})
	}

	stdout := newCappedBuffer(inv.limits.OutputMaxSize, kill)
	stderr := newCappedBuffer(inv.limits.OutputMaxSize, kill)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return RunResult{
			Stdout: stdout.Bytes(),
			Stderr: stderr.Bytes(),
			Stdin:  stdin,
		}, errs.New(errs.Spawn, err)
	}

	timer := time.AfterFunc(timeout, kill)
	// Teardown is guaranteed on every exit path: cancel the timer, then
	// kill the group unconditionally. Killing an already-reaped group
	// is a no-op (errors swallowed in killGroup).
	defer func() {
		timer.Stop()
		kill()
	}()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		kill()
		waitErr = <-done
	}

	result := RunResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Stdin:    stdin,
		Duration: time.Since(started),
	}

	state := cmd.ProcessState
	if exitErr, ok := waitErr.(*exec.ExitError); ok && state == nil {
		state = exitErr.ProcessState
	}
	result.ExitCode, result.Signal = exitInfo(state)

	return result, nil
}
