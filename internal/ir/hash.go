package ir

import (
	"fmt"
	"unicode/utf16"
)

// FNV-1a 32-bit parameters.
const (
	fnvOffset32 uint32 = 0x811c9dc5
	fnvPrime32  uint32 = 0x01000193
)

// HashString folds the UTF-16 code units of s with FNV-1a 32-bit and
// renders the result as 8 lowercase hex digits.
//
// This is an order-dependent checksum, not a cryptographic hash. It seeds
// effective-secret derivation and commit fingerprints.
func HashString(s string) string {
	h := fnvOffset32
	for _, unit := range utf16.Encode([]rune(s)) {
		h ^= uint32(unit)
		h *= fnvPrime32
	}
	return fmt.Sprintf("%08x", h)
}

// Fingerprint computes the commit hash over the canonical serialization of
// {path, operator, expression, value, effective_secret}. Keys are sorted,
// so fingerprints are stable within this module only.
// An empty operator hashes as null; undefined expression or value are omitted.
func Fingerprint(path, operator string, expression, value IRValue, effectiveSecret string) (string, error) {
	obj := IRObject{
		"path":             IRString(path),
		"operator":         IRNull{},
		"effective_secret": IRString(effectiveSecret),
	}
	if operator != "" {
		obj["operator"] = IRString(operator)
	}
	if expression != nil {
		obj["expression"] = expression
	}
	if value != nil {
		obj["value"] = value
	}

	canonical, err := marshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return HashString(string(canonical)), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(path, operator string, expression, value IRValue, effectiveSecret string) string {
	h, err := Fingerprint(path, operator, expression, value, effectiveSecret)
	if err != nil {
		panic(err)
	}
	return h
}

// VerifyThought recomputes the fingerprint of t and reports whether it
// matches the recorded hash.
func VerifyThought(t Thought) (bool, error) {
	h, err := Fingerprint(t.Path, t.Operator, t.Expression, t.Value, t.EffectiveSecret)
	if err != nil {
		return false, err
	}
	return h == t.Hash, nil
}
