//go:build windows

package launcher

import "os"

// terminationOf extracts the exit code from state. Windows has no terminating signals to report.
func terminationOf(state *os.ProcessState) *Termination {
	if state == nil {
		return &Termination{ExitCode: unavailableExitCode}
	}

	code := state.ExitCode()
	if code < 0 {
		code = unavailableExitCode
	}

	return &Termination{ExitCode: code}
}

// Mirror exits with the child's exit code.
func Mirror(t *Termination) {
	if t == nil {
		os.Exit(unavailableExitCode)
	}

	os.Exit(t.ExitCode)
}
