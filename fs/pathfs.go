package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"
	"github.com/hanwen/go-fuse/v2/fuse/pathfs"
	"github.com/sirupsen/logrus"

	"github.com/rencfs/rencfs"
)

// C7: read-only filesystem surface. FileSystem implements
// pathfs.FileSystem, translating every read-type call into a stat or
// open against root+name and every mutating call into a
// *rencfs.ReadOnlyError (mapped to EROFS). Embedding
// pathfs.NewDefaultFileSystem() supplies ENOSYS defaults for anything
// this type doesn't override.
type FileSystem struct {
	pathfs.FileSystem

	root    string
	engine  *rencfs.Engine
	handles *handleTable
	log     *logrus.Entry
}

// New returns a pathfs.FileSystem serving a reverse-encrypting view of
// root through engine.
func New(root string, engine *rencfs.Engine, log *logrus.Entry) *FileSystem {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &FileSystem{
		FileSystem: pathfs.NewDefaultFileSystem(),
		root:       root,
		engine:     engine,
		handles:    newHandleTable(),
		log:        log,
	}
}

func (fs *FileSystem) String() string {
	return fmt.Sprintf("rencfs(%s, %s)", fs.root, fs.engine.Mode())
}

// backingPath translates a FUSE-visible relative name into an absolute
// path under root. The name is cleaned as a rooted path before the
// join, which collapses every ".." so the result cannot climb above
// root (symlinks are not resolved here). The returned error is always
// nil.
func (fs *FileSystem) backingPath(name string) (string, error) {
	clean := filepath.Clean("/" + name)
	if clean == "/" {
		return fs.root, nil
	}
	return filepath.Join(fs.root, clean), nil
}

func (fs *FileSystem) GetAttr(name string, context *fuse.Context) (*fuse.Attr, fuse.Status) {
	path, err := fs.backingPath(name)
	if err != nil {
		return nil, toStatus(err)
	}
	info, err := os.Lstat(path)
	if err != nil {
		return nil, toStatus(&rencfs.NotFoundError{Path: name, Err: err})
	}

	attr := attrFromFileInfo(info)
	if info.Mode().IsRegular() {
		attr.Size = uint64(fs.engine.VisibleSize(info.Size()))
	}
	return attr, fuse.OK
}

func (fs *FileSystem) Access(name string, mode uint32, context *fuse.Context) fuse.Status {
	const writeBits = 2 // W_OK, per unistd.h; this view never grants write access.
	if mode&writeBits != 0 {
		return toStatus(&rencfs.PermissionError{Path: name, Message: "filesystem is read-only"})
	}
	path, err := fs.backingPath(name)
	if err != nil {
		return toStatus(err)
	}
	if err := syscall.Access(path, mode); err != nil {
		return fuse.ToStatus(err)
	}
	return fuse.OK
}

func (fs *FileSystem) OpenDir(name string, context *fuse.Context) ([]fuse.DirEntry, fuse.Status) {
	path, err := fs.backingPath(name)
	if err != nil {
		return nil, toStatus(err)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, toStatus(&rencfs.NotFoundError{Path: name, Err: err})
	}

	out := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, fuse.DirEntry{
			Name: e.Name(),
			Mode: dirEntryMode(info),
		})
	}
	return out, fuse.OK
}

// dirEntryMode returns the POSIX file-type bits FUSE expects in a
// fuse.DirEntry (the upper bits of st_mode; permission bits are not
// meaningful here and are left zero).
func dirEntryMode(info os.FileInfo) uint32 {
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return syscall.S_IFLNK
	case info.IsDir():
		return syscall.S_IFDIR
	default:
		return syscall.S_IFREG
	}
}

// Readlink resolves a symlink's stored target and rejects any target
// that would resolve outside root, per spec.md's symlink sanitization
// requirement (S7): a link pointing outside the mount must not be
// exposed to the caller as a usable path.
func (fs *FileSystem) Readlink(name string, context *fuse.Context) (string, fuse.Status) {
	path, err := fs.backingPath(name)
	if err != nil {
		return "", toStatus(err)
	}
	target, err := os.Readlink(path)
	if err != nil {
		return "", toStatus(&rencfs.NotFoundError{Path: name, Err: err})
	}

	if filepath.IsAbs(target) {
		rel, err := filepath.Rel(fs.root, target)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			fs.log.WithFields(logrus.Fields{"link": name, "target": target}).
				Warn("rejecting absolute symlink target outside mount root")
			return "", fuse.EACCES
		}
		return rel, fuse.OK
	}
	resolved := filepath.Join(filepath.Dir(path), target)
	rel, err := filepath.Rel(fs.root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		fs.log.WithFields(logrus.Fields{"link": name, "target": target}).
			Warn("rejecting symlink target outside mount root")
		return "", fuse.EACCES
	}
	return target, fuse.OK
}

func (fs *FileSystem) StatFs(name string) *fuse.StatfsOut {
	path, err := fs.backingPath(name)
	if err != nil {
		return nil
	}
	out, err := statfsOut(path)
	if err != nil {
		return nil
	}
	return out
}

// Open derives or recovers the per-file key for name, authenticates it
// in decrypt mode, registers a handle, and returns a nodefs.File bound
// to it. Any flag that requests write access is rejected with EROFS.
func (fs *FileSystem) Open(name string, flags uint32, context *fuse.Context) (nodefs.File, fuse.Status) {
	const accmode = 3 // O_ACCMODE
	const wronly, rdwr = 1, 2
	if flags&accmode == wronly || flags&accmode == rdwr {
		return nil, toStatus(&rencfs.ReadOnlyError{Path: name, Op: "open for write"})
	}
	const writeFlags = syscall.O_CREAT | syscall.O_TRUNC | syscall.O_APPEND
	if flags&writeFlags != 0 {
		return nil, toStatus(&rencfs.ReadOnlyError{Path: name, Op: "open for write"})
	}

	path, err := fs.backingPath(name)
	if err != nil {
		return nil, toStatus(err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, toStatus(&rencfs.NotFoundError{Path: name, Err: err})
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, toStatus(&rencfs.IOError{Op: "stat", Path: name, Err: err})
	}

	h, err := fs.openHandle(f, info.Size(), name)
	if err != nil {
		f.Close()
		return nil, toStatus(err)
	}
	id := fs.handles.add(h)
	return newFile(fs, id), fuse.OK
}

// openHandle derives the per-file key appropriate to the engine's
// mode and builds the handle state Read will need.
func (fs *FileSystem) openHandle(f *os.File, underlyingSize int64, name string) (*handle, error) {
	visibleSize := fs.engine.VisibleSize(underlyingSize)

	switch fs.engine.Mode() {
	case rencfs.ModeEncrypt:
		key, wrapped, err := fs.engine.DeriveKeyEncrypt(f, underlyingSize)
		if err != nil {
			return nil, err
		}
		return &handle{backing: f, key: key, wrapped: wrapped, bodySize: underlyingSize, visibleSize: visibleSize}, nil

	default: // ModeDecrypt
		if underlyingSize < rencfs.KeySize {
			return nil, rencfs.ErrShortCiphertext
		}
		var wrapped [rencfs.KeySize]byte
		if _, err := f.ReadAt(wrapped[:], 0); err != nil {
			return nil, &rencfs.IOError{Op: "read", Path: name, Err: err}
		}
		bodySize := underlyingSize - rencfs.KeySize
		body := &offsetReaderAt{r: f, base: rencfs.KeySize}
		key, err := fs.engine.DeriveKeyDecrypt(wrapped, body, bodySize, name)
		if err != nil {
			return nil, err
		}
		return &handle{backing: f, key: key, bodySize: bodySize, visibleSize: visibleSize}, nil
	}
}

// Every mutating call below is rejected outright; this view never
// writes to its backing store.

func (fs *FileSystem) Create(name string, flags uint32, mode uint32, context *fuse.Context) (nodefs.File, fuse.Status) {
	return nil, toStatus(&rencfs.ReadOnlyError{Path: name, Op: "create"})
}
func (fs *FileSystem) Mkdir(name string, mode uint32, context *fuse.Context) fuse.Status {
	return toStatus(&rencfs.ReadOnlyError{Path: name, Op: "mkdir"})
}
func (fs *FileSystem) Unlink(name string, context *fuse.Context) fuse.Status {
	return toStatus(&rencfs.ReadOnlyError{Path: name, Op: "unlink"})
}
func (fs *FileSystem) Rmdir(name string, context *fuse.Context) fuse.Status {
	return toStatus(&rencfs.ReadOnlyError{Path: name, Op: "rmdir"})
}
func (fs *FileSystem) Rename(oldName, newName string, context *fuse.Context) fuse.Status {
	return toStatus(&rencfs.ReadOnlyError{Path: oldName, Op: "rename"})
}
func (fs *FileSystem) Symlink(value string, linkName string, context *fuse.Context) fuse.Status {
	return toStatus(&rencfs.ReadOnlyError{Path: linkName, Op: "symlink"})
}
func (fs *FileSystem) Link(oldName, newName string, context *fuse.Context) fuse.Status {
	return toStatus(&rencfs.ReadOnlyError{Path: newName, Op: "link"})
}
func (fs *FileSystem) Chmod(name string, mode uint32, context *fuse.Context) fuse.Status {
	return toStatus(&rencfs.ReadOnlyError{Path: name, Op: "chmod"})
}
func (fs *FileSystem) Chown(name string, uid uint32, gid uint32, context *fuse.Context) fuse.Status {
	return toStatus(&rencfs.ReadOnlyError{Path: name, Op: "chown"})
}
func (fs *FileSystem) Truncate(name string, size uint64, context *fuse.Context) fuse.Status {
	return toStatus(&rencfs.ReadOnlyError{Path: name, Op: "truncate"})
}
func (fs *FileSystem) Utimens(name string, atime *time.Time, mtime *time.Time, context *fuse.Context) fuse.Status {
	return toStatus(&rencfs.ReadOnlyError{Path: name, Op: "utimens"})
}
func (fs *FileSystem) SetXAttr(name string, attr string, data []byte, flags int, context *fuse.Context) fuse.Status {
	return toStatus(&rencfs.NotSupportedError{Op: "setxattr"})
}
func (fs *FileSystem) RemoveXAttr(name string, attr string, context *fuse.Context) fuse.Status {
	return toStatus(&rencfs.NotSupportedError{Op: "removexattr"})
}

// offsetReaderAt rebases ReadAt calls by a fixed number of bytes,
// letting the key-derivation pass and decrypt-mode reads address a
// file's CTR body without the caller tracking the wrapped-key prefix
// length itself.
type offsetReaderAt struct {
	r    *os.File
	base int64
}

func (o *offsetReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return o.r.ReadAt(p, o.base+off)
}
