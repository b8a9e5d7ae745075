package fs

import (
	"syscall"
	"testing"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/rencfs/rencfs"
)

func TestToStatusErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want fuse.Status
	}{
		{"not found", &rencfs.NotFoundError{Path: "/a"}, fuse.ENOENT},
		{"permission denied", &rencfs.PermissionError{Path: "/a"}, fuse.EACCES},
		{"read only", &rencfs.ReadOnlyError{Path: "/a"}, fuse.EROFS},
		{"authentication failed", &rencfs.AuthenticationError{Path: "/a"}, fuse.Status(syscall.EPERM)},
		{"bad handle", &rencfs.BadHandleError{Handle: 1}, fuse.Status(syscall.EBADF)},
		{"not supported", &rencfs.NotSupportedError{Op: "setxattr"}, fuse.Status(syscall.ENOTSUP)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := toStatus(c.err); got != c.want {
				t.Fatalf("toStatus(%T) = %v, want %v", c.err, got, c.want)
			}
		})
	}
}

func TestToStatusNil(t *testing.T) {
	if got := toStatus(nil); got != fuse.OK {
		t.Fatalf("toStatus(nil) = %v, want OK", got)
	}
}
