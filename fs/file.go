package fs

import (
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"

	"github.com/rencfs/rencfs"
)

// file is the nodefs.File bound to one handleTable entry. All of the
// mutating methods below are unreachable in practice (Open rejects
// write flags before a file is ever created), but are still overridden
// explicitly rather than left to the embedded default so a kernel bug
// or a future write path gets a clear EROFS instead of ENOSYS.
type file struct {
	nodefs.File

	fs *FileSystem
	id uint64
}

func newFile(fs *FileSystem, id uint64) nodefs.File {
	return &file{File: nodefs.NewDefaultFile(), fs: fs, id: id}
}

func (f *file) String() string {
	return "rencfsFile"
}

func (f *file) Read(dest []byte, off int64) (fuse.ReadResult, fuse.Status) {
	h, err := f.fs.handles.get(f.id)
	if err != nil {
		return nil, toStatus(err)
	}
	var n int
	if f.fs.engine.Mode() == rencfs.ModeEncrypt {
		n, err = f.fs.engine.ReadEncrypt(h.key, h.wrapped, h.backing, h.bodySize, dest, off)
	} else {
		body := &offsetReaderAt{r: h.backing, base: rencfs.KeySize}
		n, err = f.fs.engine.ReadAt(h.key, body, h.bodySize, dest, off)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return fuse.ReadResultData(dest[:n]), fuse.OK
}

func (f *file) GetAttr(out *fuse.Attr) fuse.Status {
	h, err := f.fs.handles.get(f.id)
	if err != nil {
		return toStatus(err)
	}
	info, statErr := h.backing.Stat()
	if statErr != nil {
		return toStatus(&rencfs.IOError{Op: "stat", Err: statErr})
	}
	*out = *attrFromFileInfo(info)
	out.Size = uint64(h.visibleSize)
	return fuse.OK
}

func (f *file) Flush() fuse.Status {
	return fuse.OK
}

func (f *file) Fsync(flags int) fuse.Status {
	return fuse.OK
}

func (f *file) Release() {
	f.fs.handles.remove(f.id)
}

func (f *file) Write(data []byte, off int64) (uint32, fuse.Status) {
	return 0, toStatus(&rencfs.ReadOnlyError{Op: "write"})
}

func (f *file) Truncate(size uint64) fuse.Status {
	return toStatus(&rencfs.ReadOnlyError{Op: "truncate"})
}

func (f *file) Chown(uid uint32, gid uint32) fuse.Status {
	return toStatus(&rencfs.ReadOnlyError{Op: "chown"})
}

func (f *file) Chmod(perms uint32) fuse.Status {
	return toStatus(&rencfs.ReadOnlyError{Op: "chmod"})
}

func (f *file) Utimens(atime *time.Time, mtime *time.Time) fuse.Status {
	return toStatus(&rencfs.ReadOnlyError{Op: "utimens"})
}

func (f *file) Allocate(off uint64, size uint64, mode uint32) fuse.Status {
	return toStatus(&rencfs.ReadOnlyError{Op: "allocate"})
}
