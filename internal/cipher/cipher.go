// Package cipher implements the keyed XOR stream used to hide values at rest
// inside the kernel.
//
// The key stream for a (secret, path) pair is the ASCII text of
// keccak256(secret + ":" + path) in hex, cycled over the JSON encoding of the
// value. Blobs are "0x" followed by lowercase hex. This is stealth, not
// confidentiality: the same key always produces the same stream.
package cipher

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/roach88/thisme/internal/ir"
)

// BlobPrefix marks ciphertext strings.
const BlobPrefix = "0x"

// Keccak256Hex returns the lowercase hex Keccak-256 digest of s.
// This is the pre-standard Keccak padding, not FIPS-202 SHA3-256.
func Keccak256Hex(s string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

// keyStream derives the cycled key bytes for secret and path.
func keyStream(secret string, path ir.Path) []byte {
	return []byte(Keccak256Hex(secret + ":" + path.String()))
}

func xor(data, key []byte) []byte {
	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ key[i%len(key)]
	}
	return out
}

// Encrypt serializes v as JSON and XORs it with the key stream for
// (secret, path). An undefined value encrypts as null.
func Encrypt(v ir.IRValue, secret string, path ir.Path) (string, error) {
	plain, err := ir.MarshalIRValue(v)
	if err != nil {
		return "", fmt.Errorf("encrypt %q: %w", path.String(), err)
	}
	return BlobPrefix + hex.EncodeToString(xor(plain, keyStream(secret, path))), nil
}

// Decrypt reverses Encrypt. ok is false when the blob is malformed or the
// key produces bytes that are not a valid value; a wrong key is never an error.
func Decrypt(blob string, secret string, path ir.Path) (ir.IRValue, bool) {
	if !IsBlobString(blob) {
		return nil, false
	}
	raw, err := hex.DecodeString(blob[len(BlobPrefix):])
	if err != nil {
		return nil, false
	}
	v, err := ir.UnmarshalIRValue(xor(raw, keyStream(secret, path)))
	if err != nil {
		return nil, false
	}
	return v, true
}

// IsBlobString reports whether s is "0x" followed by an even, non-zero
// number of hex digits.
func IsBlobString(s string) bool {
	if !strings.HasPrefix(s, BlobPrefix) {
		return false
	}
	body := s[len(BlobPrefix):]
	if len(body) < 2 || len(body)%2 != 0 {
		return false
	}
	for i := 0; i < len(body); i++ {
		c := body[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

// IsBlob reports whether v is a string holding ciphertext.
func IsBlob(v ir.IRValue) bool {
	s, ok := v.(ir.IRString)
	return ok && IsBlobString(string(s))
}
