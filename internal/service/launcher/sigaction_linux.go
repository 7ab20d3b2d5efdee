//go:build linux

package launcher

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// kernelSigsetSize is sizeof(sigset_t) as the kernel expects it for rt_sigaction.
const kernelSigsetSize = 8

// restoreDefaultAction sets the kernel disposition of sig to SIG_DFL behind the Go runtime's back,
// so a re-raised SIGABRT, SIGSEGV or SIGUSR1 kills the process instead of reaching the runtime's handler.
func restoreDefaultAction(sig syscall.Signal) bool {
	// All zero on every layout: SIG_DFL handler, no flags, empty mask.
	var action [4]uint64

	_, _, errno := unix.RawSyscall6(unix.SYS_RT_SIGACTION,
		uintptr(sig), uintptr(unsafe.Pointer(&action)), 0, kernelSigsetSize, 0, 0)

	return errno == 0
}
