//go:build unix

package sandbox

import (
	"os"
	"syscall"
)

// credential builds the SysProcAttr that runs the child under the given
// uid/gid as the leader of its own process group, grounded in the
// teacher's env/env_linux.go credGen construction of syscall.Credential.
func credential(uid, gid int) *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Credential: &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)},
		Setpgid:    true,
	}
}

// killGroup sends SIGKILL to the entire process group led by pid. Errors
// from killing an already-dead group are swallowed.
func killGroup(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

// exitInfo extracts exit code / terminating signal from a finished
// process's state.
func exitInfo(state *os.ProcessState) (exitCode *int, signal *string) {
	if state == nil {
		return nil, nil
	}
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok {
		code := state.ExitCode()
		return &code, nil
	}
	if ws.Signaled() {
		sig := ws.Signal()
		s := sig.String()
		if sig == syscall.SIGKILL {
			s = "SIGKILL"
		}
		return nil, &s
	}
	code := ws.ExitStatus()
	return &code, nil
}
