package fs

import (
	"os"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// attrFromFileInfo builds a fuse.Attr from a regular os.FileInfo,
// pulling uid/gid/inode/timestamps out of the platform-specific
// syscall.Stat_t when available.
func attrFromFileInfo(info os.FileInfo) *fuse.Attr {
	mtime := info.ModTime()
	attr := &fuse.Attr{
		Size:      uint64(info.Size()),
		Mtime:     uint64(mtime.Unix()),
		Mtimensec: uint32(mtime.Nanosecond()),
	}

	// info.Mode() uses Go's own FileMode bit layout, not the raw
	// POSIX mode_t bits FUSE expects; prefer the syscall.Stat_t's Mode
	// when available and fall back to a plain-file guess otherwise.
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		attr.Mode = syscall.S_IFREG | uint32(info.Mode().Perm())
		return attr
	}
	attr.Mode = st.Mode
	attr.Ino = st.Ino
	attr.Nlink = uint32(st.Nlink)
	attr.Uid = st.Uid
	attr.Gid = st.Gid
	attr.Rdev = uint32(st.Rdev)
	attr.Blksize = uint32(st.Blksize)
	attr.Blocks = uint64(st.Blocks)
	attr.Atime = uint64(st.Atim.Sec)
	attr.Atimensec = uint32(st.Atim.Nsec)
	attr.Ctime = uint64(st.Ctim.Sec)
	attr.Ctimensec = uint32(st.Ctim.Nsec)
	return attr
}

// statfsOut reports backing-filesystem statistics for the mount,
// translated from the statfs(2) result for path (the backing path of
// the name that was queried).
func statfsOut(path string) (*fuse.StatfsOut, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return nil, err
	}
	return &fuse.StatfsOut{
		Blocks:  st.Blocks,
		Bfree:   st.Bfree,
		Bavail:  st.Bavail,
		Files:   st.Files,
		Ffree:   st.Ffree,
		Bsize:   uint32(st.Bsize),
		NameLen: uint32(st.Namelen),
		Frsize:  uint32(st.Frsize),
	}, nil
}
