package rencfs

import "crypto/subtle"

// C3: per-file key derivation, per spec.md §4.2-§4.3.
//
// Encrypt direction: K = HMAC(M_hmac, plaintext)[0:16]; the stored
// prefix is W = ECB_encrypt(M_ecb, K).
//
// Decrypt direction: W is read from the ciphertext prefix, K is
// recovered as ECB_decrypt(M_ecb, W), and authenticated by recomputing
// HMAC(M_hmac, plaintext-obtained-by-decrypting-with-K) and comparing
// against K in constant time.

// DeriveKeyEncrypt computes the per-file key and its wrapped form for
// a plaintext file accessed through r.
func (e *Engine) DeriveKeyEncrypt(r ioReaderAt, size int64) (key, wrapped [KeySize]byte, err error) {
	key, err = macPlaintext(e.master.HMACKey(), r, size)
	if err != nil {
		return key, wrapped, err
	}
	wrapped = ecbEncryptBlock(e.master.ECBKey(), key)
	return key, wrapped, nil
}

// DeriveKeyDecrypt recovers the per-file key from a ciphertext file's
// wrapped-key prefix and, when the engine's verify flag is set,
// authenticates it against the body, accessed through body. bodySize is
// the length of the body following the 16-byte prefix. With verify set
// it returns an *AuthenticationError if the recomputed MAC does not
// match the unwrapped key; without it the key is returned unchecked.
func (e *Engine) DeriveKeyDecrypt(wrapped [KeySize]byte, body ioReaderAt, bodySize int64, path string) (key [KeySize]byte, err error) {
	key = ecbDecryptBlock(e.master.ECBKey(), wrapped)
	if !e.verify {
		return key, nil
	}

	recomputed, err := macCiphertext(e.master.HMACKey(), key, body, bodySize)
	if err != nil {
		return key, err
	}
	if subtle.ConstantTimeCompare(recomputed[:], key[:]) != 1 {
		return key, &AuthenticationError{Path: path}
	}
	return key, nil
}

// ioReaderAt is the subset of io.ReaderAt the key-derivation helpers
// need; declared locally so callers can pass *os.File or any other
// random-access source without importing io here for clarity at the
// call site.
type ioReaderAt interface {
	ReadAt(p []byte, off int64) (n int, err error)
}
