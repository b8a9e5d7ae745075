// Package rencfs implements the cryptographic file view engine behind a
// read-only reverse-encrypting filesystem: every regular file under a
// backing directory is exposed, via a FUSE mount, as its deterministic
// authenticated ciphertext (or, in Decrypt mode, a backing directory of
// ciphertext is exposed as plaintext).
//
// # Overview
//
// The engine never writes anything. A mount is parameterized by a Mode
// (ModeEncrypt or ModeDecrypt) and a MasterKey derived from a
// passphrase. Each file's 16-byte per-file key K doubles as both its
// AES-128-CTR key and the truncated HMAC-SHA-256 MAC of its plaintext,
// so identical plaintexts always produce identical ciphertext (this is
// intentional, see "Determinism" below) and tampering with either the
// wrapped key or the ciphertext body is detectable at open time.
//
// # Ciphertext layout
//
//	offset 0..16    : W = AES-ECB-Encrypt(M_ecb, K)   (wrapped per-file key)
//	offset 16..16+n : AES-CTR(K, counter=0) XOR plaintext[0:n]
//
// The CTR counter is a 128-bit big-endian value, starting at 0 at
// ciphertext offset 16 and incrementing once per 16-byte block.
//
// # Basic usage
//
//	master := rencfs.DeriveMasterKey([]byte("my passphrase"))
//	engine := rencfs.New(rencfs.ModeEncrypt, master, true)
//
//	f, _ := os.Open("/srv/plain/report.pdf")
//	info, _ := f.Stat()
//	key, wrapped, _ := engine.DeriveKeyEncrypt(f, info.Size())
//
//	buf := make([]byte, 4096)
//	n, _ := engine.ReadEncrypt(key, wrapped, f, info.Size(), buf, 0)
//
// This package never touches FUSE, the open-handle table, or the CLI —
// see package fs for the read-only filesystem surface that wires the
// engine to github.com/hanwen/go-fuse/v2, and cmd/rencfs for the
// command-line entry point.
//
// # Determinism, by design
//
// Because K is a function of (master key, plaintext bytes) alone, two
// identical plaintext files always encrypt to identical ciphertext.
// This is what makes content-addressed deduplication and incremental
// mirror passes possible, and it is a deliberate tradeoff: the scheme
// does not hide which files are duplicates of each other, and it is not
// IND-CPA secure against an attacker who can request encryptions of
// chosen plaintexts.
//
// # Not protected against
//
//   - An attacker who swaps the backing file while a handle stays open:
//     the per-file key is authenticated once, at open, not on every
//     read (documented trust boundary, not a bug).
//   - Anyone holding M_ecb, who can always recover K from W, for any
//     file — acceptable because K is the plaintext's MAC anyway, never
//     a secret independent of the plaintext.
//   - Confidentiality against an observer who can compare two
//     ciphertexts: determinism means equal plaintexts are visible as
//     equal ciphertexts.
package rencfs
