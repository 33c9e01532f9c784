package gitfs

import (
	"context"
	"errors"
	"io/fs"
	"syscall"

	platformerrors "github.com/jmgilman/go/errors"
)

// Error codes reported by view operations.
const (
	// CodeNotFound means the path does not exist in the view. Submodules,
	// staged deletions and unchanged paths of a changes view are reported
	// the same way.
	CodeNotFound platformerrors.ErrorCode = "ENOENT"

	// CodeNotDir means a path element that had to be a directory is not.
	CodeNotDir platformerrors.ErrorCode = "ENOTDIR"

	// CodeLoop means symbolic link resolution hit a cycle or exceeded the
	// hop limit.
	CodeLoop platformerrors.ErrorCode = "ELOOP"

	// CodeTypeMismatch means the final path element exists but has the
	// wrong type for the operation.
	CodeTypeMismatch platformerrors.ErrorCode = "TYPE_MISMATCH"

	// CodeInvalidConfig reports an unsupported view configuration.
	CodeInvalidConfig = platformerrors.CodeInvalidConfig
)

// Error records a failed operation on a path.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the platform error code of the underlying failure.
func (e *Error) Code() platformerrors.ErrorCode {
	return platformerrors.GetCode(e.Err)
}

// Is maps filesystem codes onto their io/fs and syscall equivalents.
func (e *Error) Is(target error) bool {
	switch e.Code() {
	case CodeNotFound:
		return target == fs.ErrNotExist || target == syscall.ENOENT
	case CodeNotDir:
		return target == syscall.ENOTDIR
	case CodeLoop:
		return target == syscall.ELOOP
	case CodeTypeMismatch:
		return target == fs.ErrInvalid
	}
	return false
}

func errNotFound(p string) error {
	return platformerrors.Newf(CodeNotFound, "no such file or directory: %s", p)
}

func errNotDir(p string) error {
	return platformerrors.Newf(CodeNotDir, "not a directory: %s", p)
}

func errLoop(p string) error {
	return platformerrors.Newf(CodeLoop, "too many levels of symbolic links: %s", p)
}

func errNotFile(p string) error {
	return platformerrors.Newf(CodeTypeMismatch, "%s is not a file", p)
}

func errNotSymlink(p string) error {
	return platformerrors.Newf(CodeTypeMismatch, "%s is not a symbolic link", p)
}

func errConfig(format string, args ...any) error {
	return platformerrors.Newf(CodeInvalidConfig, format, args...)
}

// isMissing reports whether err means the path is absent from a view.
func isMissing(err error) bool {
	code := platformerrors.GetCode(err)
	return code == CodeNotFound || code == CodeNotDir
}

// unresolvable reports whether err means a path leads nowhere.
func unresolvable(err error) bool {
	return isMissing(err) || platformerrors.GetCode(err) == CodeLoop
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func wrapOp(op, p string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Op: op, Path: p, Err: err}
}
