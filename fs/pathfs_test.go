package fs

import (
	"bytes"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/rencfs/rencfs"
)

func newTestFS(t *testing.T, mode rencfs.Mode, passphrase string) (*FileSystem, string) {
	t.Helper()
	root := t.TempDir()
	master := rencfs.DeriveMasterKey([]byte(passphrase))
	engine := rencfs.New(mode, master, true)
	return New(root, engine, nil), root
}

func TestGetAttrAppliesSizeLaw(t *testing.T) {
	fs, root := newTestFS(t, rencfs.ModeDecrypt, "pw")
	if err := os.WriteFile(filepath.Join(root, "f"), make([]byte, 32), 0o644); err != nil {
		t.Fatal(err)
	}
	attr, status := fs.GetAttr("f", nil)
	if !status.Ok() {
		t.Fatalf("GetAttr status = %v", status)
	}
	if attr.Size != 16 {
		t.Fatalf("GetAttr size = %d, want 16 (32 - wrapped key prefix)", attr.Size)
	}
}

func TestAccessRejectsWrite(t *testing.T) {
	fs, root := newTestFS(t, rencfs.ModeDecrypt, "pw")
	if err := os.WriteFile(filepath.Join(root, "f"), make([]byte, 16), 0o644); err != nil {
		t.Fatal(err)
	}
	const wOK = 2
	if status := fs.Access("f", wOK, nil); status.Ok() {
		t.Fatal("Access granted write permission on a read-only view")
	}
	const rOK = 4
	if status := fs.Access("f", rOK, nil); !status.Ok() {
		t.Fatalf("Access rejected a read check: %v", status)
	}
}

func TestMutatingCallsAreRejected(t *testing.T) {
	fs, _ := newTestFS(t, rencfs.ModeDecrypt, "pw")
	if status := fs.Mkdir("d", 0o755, nil); status.Ok() {
		t.Fatal("Mkdir succeeded on a read-only view")
	}
	if status := fs.Unlink("f", nil); status.Ok() {
		t.Fatal("Unlink succeeded on a read-only view")
	}
	if _, status := fs.Create("f", 0, 0o644, nil); status.Ok() {
		t.Fatal("Create succeeded on a read-only view")
	}
	if status := fs.Chmod("f", 0o600, nil); status.Ok() {
		t.Fatal("Chmod succeeded on a read-only view")
	}
}

func TestOpenRejectsWriteFlags(t *testing.T) {
	fs, root := newTestFS(t, rencfs.ModeDecrypt, "pw")
	path := filepath.Join(root, "f")
	ciphertext := make([]byte, 16)
	if err := os.WriteFile(path, ciphertext, 0o644); err != nil {
		t.Fatal(err)
	}
	const wronly = 1
	if _, status := fs.Open("f", wronly, nil); status.Ok() {
		t.Fatal("Open succeeded with O_WRONLY on a read-only view")
	}
}

func TestOpenRejectsCreateTruncateAppendFlags(t *testing.T) {
	fsys, root := newTestFS(t, rencfs.ModeDecrypt, "pw")
	path := filepath.Join(root, "f")
	if err := os.WriteFile(path, make([]byte, 16), 0o644); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name  string
		flags uint32
	}{
		{"O_CREAT", syscall.O_CREAT},
		{"O_TRUNC", syscall.O_TRUNC},
		{"O_APPEND", syscall.O_APPEND},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, status := fsys.Open("f", c.flags, nil); status.Ok() {
				t.Fatalf("Open succeeded with %s on a read-only view", c.name)
			}
		})
	}
}

func TestReadlinkSanitizesAbsoluteTarget(t *testing.T) {
	fsys, root := newTestFS(t, rencfs.ModeDecrypt, "pw")
	if err := os.WriteFile(filepath.Join(root, "sibling"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, "sibling"), filepath.Join(root, "abs")); err != nil {
		t.Fatal(err)
	}

	target, status := fsys.Readlink("abs", nil)
	if !status.Ok() || target != "sibling" {
		t.Fatalf("Readlink(abs) = (%q, %v), want (\"sibling\", OK)", target, status)
	}
}

func TestReadlinkRejectsEscapingAbsoluteTarget(t *testing.T) {
	fsys, root := newTestFS(t, rencfs.ModeDecrypt, "pw")
	if err := os.Symlink("/etc/passwd", filepath.Join(root, "evilabs")); err != nil {
		t.Fatal(err)
	}

	if _, status := fsys.Readlink("evilabs", nil); status.Ok() {
		t.Fatal("Readlink returned an absolute target escaping the mount root")
	}
}

func TestReadlinkRejectsEscapingTarget(t *testing.T) {
	fsys, root := newTestFS(t, rencfs.ModeDecrypt, "pw")
	if err := os.Symlink("../../etc/passwd", filepath.Join(root, "evil")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("sibling", filepath.Join(root, "ok")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "sibling"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, status := fsys.Readlink("evil", nil); status.Ok() {
		t.Fatal("Readlink returned a target escaping the mount root")
	}
	target, status := fsys.Readlink("ok", nil)
	if !status.Ok() || target != "sibling" {
		t.Fatalf("Readlink(ok) = (%q, %v), want (\"sibling\", OK)", target, status)
	}
}

func TestReadThroughOpenFile(t *testing.T) {
	root := t.TempDir()
	master := rencfs.DeriveMasterKey([]byte("pw"))

	plaintext := bytes.Repeat([]byte("abcdefgh"), 10)
	encEngine := rencfs.New(rencfs.ModeEncrypt, master, true)
	f, err := os.Create(filepath.Join(root, "p"))
	if err != nil {
		t.Fatal(err)
	}
	f.Write(plaintext)
	f.Close()

	srcFS := New(root, encEngine, nil)
	handle, status := srcFS.Open("p", os.O_RDONLY, nil)
	if !status.Ok() {
		t.Fatalf("Open (encrypt view): %v", status)
	}
	readBuf := make([]byte, len(plaintext)+16)
	res, status := handle.Read(readBuf, 0)
	if !status.Ok() {
		t.Fatalf("Read (encrypt view): %v", status)
	}
	ciphertext, readStatus := res.Bytes(readBuf)
	if !readStatus.Ok() {
		t.Fatalf("ReadResult.Bytes: %v", readStatus)
	}
	handle.Release()

	decryptRoot := t.TempDir()
	if err := os.WriteFile(filepath.Join(decryptRoot, "c"), ciphertext, 0o644); err != nil {
		t.Fatal(err)
	}
	decEngine := rencfs.New(rencfs.ModeDecrypt, master, true)
	dstFS := New(decryptRoot, decEngine, nil)
	dHandle, status := dstFS.Open("c", os.O_RDONLY, nil)
	if !status.Ok() {
		t.Fatalf("Open (decrypt view): %v", status)
	}
	defer dHandle.Release()

	out := make([]byte, len(plaintext))
	res2, status := dHandle.Read(out, 0)
	if !status.Ok() {
		t.Fatalf("Read (decrypt view): %v", status)
	}
	outBuf := make([]byte, len(out))
	outN, _ := res2.Bytes(outBuf)
	if !bytes.Equal(outN, plaintext) {
		t.Fatalf("round trip through FileSystem.Open/Read = %q, want %q", outN, plaintext)
	}
}
