//go:build !linux && !windows

package launcher

import "syscall"

// restoreDefaultAction cannot bypass the Go runtime here; only signals the runtime
// itself dies from are re-raised.
func restoreDefaultAction(syscall.Signal) bool {
	return false
}
