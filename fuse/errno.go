package fuse

import (
	"context"
	"errors"
	"syscall"

	platformerrors "github.com/jmgilman/go/errors"

	"github.com/jmgilman/go/gitfs"
)

// toErrno maps a view error onto the errno reported to the kernel.
func toErrno(err error) syscall.Errno {
	if err == nil {
		return 0
	}

	switch platformerrors.GetCode(err) {
	case gitfs.CodeNotFound:
		return syscall.ENOENT
	case gitfs.CodeNotDir:
		return syscall.ENOTDIR
	case gitfs.CodeLoop:
		return syscall.ELOOP
	case gitfs.CodeTypeMismatch:
		return syscall.EINVAL
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return syscall.EINTR
	}
	return syscall.EIO
}
