package rencfs

import (
	"errors"
	"fmt"
)

// Error kinds, per spec.md §7. Each has a distinct Go type so package
// fs can map it to the right errno/fuse.Status with errors.As instead
// of string matching.

// NotFoundError means the backing path is missing. Maps to ENOENT.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s: %s", e.Path, errText(e.Err))
}
func (e *NotFoundError) Unwrap() error { return e.Err }

// PermissionError means an access check or a write-bit in an access
// mode failed. Maps to EACCES.
type PermissionError struct {
	Path    string
	Message string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s: %s", e.Path, e.Message)
}

// ReadOnlyError means a mutating operation was attempted, or open was
// called with a write flag. Maps to EROFS.
type ReadOnlyError struct {
	Path string
	Op   string
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("read-only filesystem: %s not permitted on %s", e.Op, e.Path)
}

// AuthenticationError means a recomputed content MAC did not match the
// unwrapped per-file key during decrypt-mode open. Maps to EPERM. The
// caller must never return plaintext bytes for a handle that failed
// this check.
type AuthenticationError struct {
	Path string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s: recomputed MAC does not match wrapped key", e.Path)
}

// BadHandleError means release or read referenced an unknown file
// handle. Maps to EBADF.
type BadHandleError struct {
	Handle uint64
}

func (e *BadHandleError) Error() string {
	return fmt.Sprintf("bad file handle: %d", e.Handle)
}

// NotSupportedError means an extended attribute or other unsupported
// operation was requested. Maps to ENOTSUP.
type NotSupportedError struct {
	Op string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("not supported: %s", e.Op)
}

// IOError wraps an underlying OS error encountered while reading,
// seeking, or statting the backing store. Maps to a pass-through
// errno.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error: %s %s: %s", e.Op, e.Path, errText(e.Err))
}
func (e *IOError) Unwrap() error { return e.Err }

func errText(err error) string {
	if err == nil {
		return "unknown"
	}
	return err.Error()
}

// Sentinel errors for conditions that don't carry per-call context.
var (
	// ErrNegativeOffset is returned by Engine.ReadAt for a negative
	// offset; package fs never produces one, but the engine validates
	// its own contract independently of its caller.
	ErrNegativeOffset = errors.New("rencfs: negative offset")
	// ErrShortCiphertext is returned when a ciphertext file is smaller
	// than the 16-byte wrapped-key prefix it must contain.
	ErrShortCiphertext = errors.New("rencfs: ciphertext shorter than the wrapped-key prefix")
)

// Is* helpers, mirroring the teacher's errors.As-based helpers.

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsPermissionDenied(err error) bool {
	var e *PermissionError
	return errors.As(err, &e)
}

func IsReadOnly(err error) bool {
	var e *ReadOnlyError
	return errors.As(err, &e)
}

func IsAuthenticationFailed(err error) bool {
	var e *AuthenticationError
	return errors.As(err, &e)
}

func IsBadHandle(err error) bool {
	var e *BadHandleError
	return errors.As(err, &e)
}

func IsNotSupported(err error) bool {
	var e *NotSupportedError
	return errors.As(err, &e)
}

func IsIOError(err error) bool {
	var e *IOError
	return errors.As(err, &e)
}
