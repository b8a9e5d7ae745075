package rencfs

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
)

// C1: block cipher primitives. AES-128 in ECB mode (single block,
// used only to wrap/unwrap the per-file key) and AES-128 in CTR mode
// (streaming, used for the file body). No nonce is used for CTR — the
// 128-bit big-endian counter alone determines the keystream, per
// spec.md §4.1.

// ecbEncryptBlock encrypts a single 16-byte block under AES-128 ECB.
func ecbEncryptBlock(key, block [KeySize]byte) [KeySize]byte {
	c, err := aes.NewCipher(key[:])
	if err != nil {
		// key is always exactly 16 bytes by construction (MasterKey,
		// per-file key); aes.NewCipher only fails on bad key length.
		panic("rencfs: " + err.Error())
	}
	var out [KeySize]byte
	c.Encrypt(out[:], block[:])
	return out
}

// ecbDecryptBlock decrypts a single 16-byte block under AES-128 ECB.
func ecbDecryptBlock(key, block [KeySize]byte) [KeySize]byte {
	c, err := aes.NewCipher(key[:])
	if err != nil {
		panic("rencfs: " + err.Error())
	}
	var out [KeySize]byte
	c.Decrypt(out[:], block[:])
	return out
}

// ctrApply XORs data with the AES-128-CTR keystream for key, starting
// at the given 16-byte-block counter index. It is length-preserving
// and involutive: ctrApply(k, i, ctrApply(k, i, p)) == p.
//
// The counter is the 16-byte big-endian integer formed by the index
// alone (upper 8 bytes zero); Go's CTR implementation increments that
// whole 16-byte value as one big-endian counter per block, which is
// exactly the counter spec.md §4.1/§6 describes.
func ctrApply(key [KeySize]byte, counterIndex uint64, data []byte) []byte {
	c, err := aes.NewCipher(key[:])
	if err != nil {
		panic("rencfs: " + err.Error())
	}
	var iv [KeySize]byte
	binary.BigEndian.PutUint64(iv[8:], counterIndex)

	stream := cipher.NewCTR(c, iv[:])
	out := make([]byte, len(data))
	stream.XORKeyStream(out, data)
	return out
}
