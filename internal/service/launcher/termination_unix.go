//go:build !windows

package launcher

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// signalExitBase is added to the signal number when re-raising is not possible, as shells do.
const signalExitBase = 128

// reraiseGrace bounds the wait for a re-raised signal to terminate the process.
const reraiseGrace = time.Second

// fatalSignals terminate a Go process that does not handle them, even where the
// disposition cannot be reset to the default directly.
//
//nolint:gochecknoglobals // Read-only lookup table.
var fatalSignals = map[syscall.Signal]struct{}{
	unix.SIGHUP:  {},
	unix.SIGINT:  {},
	unix.SIGTERM: {},
	unix.SIGKILL: {},
}

// terminationOf extracts the exit code or terminating signal from state.
func terminationOf(state *os.ProcessState) *Termination {
	if state == nil {
		return &Termination{ExitCode: unavailableExitCode}
	}

	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return &Termination{
			ExitCode: signalExitBase + int(status.Signal()),
			Signal:   status.Signal(),
		}
	}

	code := state.ExitCode()
	if code < 0 {
		code = unavailableExitCode
	}

	return &Termination{ExitCode: code}
}

// Mirror ends the current process the way the child ended.
// A terminating signal is re-raised against the launcher itself with its default action restored
// where the platform allows it. If the process survives, the launcher exits with 128 plus the signal number.
func Mirror(t *Termination) {
	if t == nil {
		os.Exit(unavailableExitCode)
	}

	sig, ok := t.Signal.(syscall.Signal)
	if !ok {
		os.Exit(t.ExitCode)
	}

	signal.Reset(sig)

	if _, fatal := fatalSignals[sig]; restoreDefaultAction(sig) || fatal {
		if err := unix.Kill(unix.Getpid(), sig); err == nil {
			time.Sleep(reraiseGrace)
		}
	}

	os.Exit(signalExitBase + int(sig))
}
