// Package fs wires the rencfs engine to a read-only FUSE surface via
// github.com/hanwen/go-fuse/v2, per spec.md §5-§6.
package fs

import (
	"os"
	"sync"

	"github.com/rencfs/rencfs"
)

// C6: handle table. Open assigns each successfully-opened file a
// handle, mapping it to the per-file key, the underlying backing
// file, and the sizes the engine needs to serve reads. The table is
// mutex-guarded; spec.md §5 mandates a single-threaded FUSE mount, but
// the lock is kept regardless so the table's invariants don't depend
// on that mount option.
type handleTable struct {
	mu      sync.Mutex
	next    uint64
	entries map[uint64]*handle
}

// handle is the per-open-file state the engine needs to serve reads
// without re-deriving the key or re-statting the backing file.
type handle struct {
	backing     *os.File
	key         [rencfs.KeySize]byte
	wrapped     [rencfs.KeySize]byte // W; only meaningful in Encrypt mode
	bodySize    int64                // length of the CTR body inside the backing file
	visibleSize int64                // size reported to the kernel (plaintext or ciphertext view)
}

func newHandleTable() *handleTable {
	return &handleTable{entries: make(map[uint64]*handle)}
}

// add registers a new handle and returns the id the kernel will use to
// refer to it in subsequent read/release calls.
func (t *handleTable) add(h *handle) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	id := t.next
	t.entries[id] = h
	return id
}

// get looks up a handle by id. The returned error is a
// *rencfs.BadHandleError if id is unknown.
func (t *handleTable) get(id uint64) (*handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.entries[id]
	if !ok {
		return nil, &rencfs.BadHandleError{Handle: id}
	}
	return h, nil
}

// remove closes and discards the handle's backing file, releasing it
// from the table. Releasing an unknown or already-released id fails
// with a *rencfs.BadHandleError, per spec.md §4.6/§7.
func (t *handleTable) remove(id uint64) error {
	t.mu.Lock()
	h, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()
	if !ok {
		return &rencfs.BadHandleError{Handle: id}
	}
	return h.backing.Close()
}
