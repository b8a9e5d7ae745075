package fs

import (
	"errors"
	"os"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/rencfs/rencfs"
)

// toStatus maps an error from the engine or the backing filesystem to
// the fuse.Status the kernel expects, per spec.md §7's error taxonomy.
func toStatus(err error) fuse.Status {
	if err == nil {
		return fuse.OK
	}

	switch {
	case rencfs.IsNotFound(err):
		return fuse.ENOENT
	case rencfs.IsPermissionDenied(err):
		return fuse.EACCES
	case rencfs.IsReadOnly(err):
		return fuse.EROFS
	case rencfs.IsAuthenticationFailed(err):
		return fuse.Status(syscall.EPERM)
	case rencfs.IsBadHandle(err):
		return fuse.Status(syscall.EBADF)
	case rencfs.IsNotSupported(err):
		return fuse.Status(syscall.ENOTSUP)
	case rencfs.IsIOError(err):
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return fuse.ToStatus(pathErr.Err)
		}
		return fuse.EIO
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return fuse.ToStatus(pathErr.Err)
	}
	if os.IsNotExist(err) {
		return fuse.ENOENT
	}
	if os.IsPermission(err) {
		return fuse.EACCES
	}
	return fuse.EIO
}
