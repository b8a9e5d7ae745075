package rencfs

import (
	"errors"
	"io"
)

// C4+C5: offset transform and read pipeline.
//
// On-disk ciphertext layout: [16-byte wrapped key W][CTR body].
// Visible (filesystem) layout in decrypt mode: the plaintext, i.e. the
// decrypted body alone, with size ciphertextSize-16. In encrypt mode
// the backing file is the plaintext and the visible layout is the
// ciphertext, with size plaintextSize+16.
//
// ReadAt serves a read at a body offset (callers do the ±16
// translation from visible offsets) by reading 16-byte-aligned CTR
// blocks from the underlying source and discarding any leading bytes
// the alignment pulled in — the same idiom rclone's cipher reader uses
// for random access into a block cipher stream, rather than a
// keystream-skip primitive.

// ReadAt reads len(p) bytes starting at body offset `offset` into p
// (the visible offset in decrypt mode; ReadEncrypt passes the visible
// offset minus 16), using key as the per-file CTR key and src as the
// underlying random-access source of the CTR body (the ciphertext
// body in decrypt mode, the plaintext itself in encrypt mode — both
// are read, never written, by this filesystem). srcBodySize is the
// length of that body. It returns the number of bytes copied into p,
// which may be less than len(p) at end of file.
func (e *Engine) ReadAt(key [KeySize]byte, src ioReaderAt, srcBodySize int64, p []byte, offset int64) (int, error) {
	if err := validateOffset(offset); err != nil {
		return 0, err
	}
	if offset >= srcBodySize || len(p) == 0 {
		return 0, nil
	}

	want := int64(len(p))
	if rem := srcBodySize - offset; want > rem {
		want = rem
	}

	firstBlock := uint64(offset / KeySize)
	discard := int(offset % KeySize)
	lastByte := offset + want - 1
	lastBlock := uint64(lastByte / KeySize)
	alignedStart := int64(firstBlock) * KeySize
	alignedEnd := int64(lastBlock+1) * KeySize
	if alignedEnd > srcBodySize {
		alignedEnd = srcBodySize
	}
	alignedLen := alignedEnd - alignedStart

	raw := make([]byte, alignedLen)
	n, err := src.ReadAt(raw, alignedStart)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, &IOError{Op: "read", Err: err}
	}

	plain := ctrApply(key, firstBlock, raw[:n])
	if discard >= len(plain) {
		return 0, nil
	}
	plain = plain[discard:]
	if int64(len(plain)) > want {
		plain = plain[:want]
	}

	copy(p, plain)
	return len(plain), nil
}

// ReadEncrypt serves a visible (ciphertext-view) read in Encrypt mode,
// per spec.md §4.4: a request whose offset falls inside the first 16
// bytes is served, in whole or in part, from the wrapped-key prefix W,
// with any remainder of the request falling through to a body read
// against plaintext, shifted so that visible offset 16 lines up with
// plaintext offset 0.
func (e *Engine) ReadEncrypt(key, wrapped [KeySize]byte, plaintext ioReaderAt, plaintextSize int64, p []byte, offset int64) (int, error) {
	if err := validateOffset(offset); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	if offset >= KeySize {
		return e.ReadAt(key, plaintext, plaintextSize, p, offset-KeySize)
	}

	end := offset + int64(len(p))
	if end > KeySize {
		end = KeySize
	}
	prefix := wrapped[offset:end]
	copy(p, prefix)
	n := len(prefix)

	if int64(len(p)) > int64(n) {
		bn, err := e.ReadAt(key, plaintext, plaintextSize, p[n:], 0)
		if err != nil {
			return n, err
		}
		n += bn
	}
	return n, nil
}
