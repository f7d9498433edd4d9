//go:build !windows

package fsutil

import (
	"errors"
	"syscall"
)

// isRetryableSyscallError reports whether err unwraps to a syscall errno
// that indicates a transient condition (interrupted, would-block).
func isRetryableSyscallError(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	return errno == syscall.EINTR || errno == syscall.EAGAIN
}
