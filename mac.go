package rencfs

import (
	"crypto/hmac"
	"crypto/sha256"
	"io"
)

// C2: content MAC engine. The per-file key is not random — it is the
// truncated HMAC-SHA-256 of the plaintext itself, keyed by the master
// HMAC key. Computing it requires reading the whole file once, either
// from the plaintext directly (encrypt path) or by decrypting the
// ciphertext body on the fly (decrypt path, for re-verification).

// macChunkSize bounds memory use while streaming a file through HMAC;
// it has no bearing on the wire format, which has no chunk framing.
const macChunkSize = 16 * 1024

// macPlaintext streams size bytes from r through HMAC-SHA-256 keyed by
// hmacKey and returns the first KeySize bytes of the result.
func macPlaintext(hmacKey [KeySize]byte, r io.ReaderAt, size int64) ([KeySize]byte, error) {
	var out [KeySize]byte
	mac := hmac.New(sha256.New, hmacKey[:])

	buf := make([]byte, macChunkSize)
	var off int64
	for off < size {
		n := int64(len(buf))
		if rem := size - off; rem < n {
			n = rem
		}
		if _, err := r.ReadAt(buf[:n], off); err != nil && err != io.EOF {
			return out, &IOError{Op: "read", Err: err}
		}
		mac.Write(buf[:n])
		off += n
	}

	copy(out[:], mac.Sum(nil))
	return out, nil
}

// macCiphertext recomputes the plaintext MAC from an encrypted file
// body, decrypting it block by block with ctrKey as it streams through
// HMAC. Used on the decrypt path, where only the ciphertext is
// available: the body is re-encrypted-by-definition self-consistent
// only if ctrKey is the true per-file key, so this doubles as the
// authentication check once compared against the wrapped key.
func macCiphertext(hmacKey [KeySize]byte, ctrKey [KeySize]byte, r io.ReaderAt, ciphertextSize int64) ([KeySize]byte, error) {
	var out [KeySize]byte
	mac := hmac.New(sha256.New, hmacKey[:])

	buf := make([]byte, macChunkSize-(macChunkSize%KeySize))
	var off int64
	var blockIndex uint64
	for off < ciphertextSize {
		n := int64(len(buf))
		if rem := ciphertextSize - off; rem < n {
			n = rem
		}
		if _, err := r.ReadAt(buf[:n], off); err != nil && err != io.EOF {
			return out, &IOError{Op: "read", Err: err}
		}
		plain := ctrApply(ctrKey, blockIndex, buf[:n])
		mac.Write(plain)
		off += n
		blockIndex += uint64(n) / KeySize
		if n%KeySize != 0 {
			blockIndex++
		}
	}

	copy(out[:], mac.Sum(nil))
	return out, nil
}
