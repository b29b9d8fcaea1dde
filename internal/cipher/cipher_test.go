package cipher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/thisme/internal/ir"
)

func TestKeccak256HexKnownVector(t *testing.T) {
	// Legacy Keccak-256 of the empty string (differs from SHA3-256)
	assert.Equal(t, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", Keccak256Hex(""))
	assert.Len(t, Keccak256Hex("anything"), 64)
}

func TestEncryptDecrypt(t *testing.T) {
	path := ir.Path{"wallet", "income"}
	value := ir.IRObject{
		"amount": ir.IRInt(100),
		"tags":   ir.IRArray{ir.IRString("salary"), ir.IRBool(true)},
	}

	blob, err := Encrypt(value, "9f3c1a2b", path)
	require.NoError(t, err)
	assert.True(t, IsBlobString(blob))

	plain, err := ir.MarshalIRValue(value)
	require.NoError(t, err)
	assert.Len(t, blob, len(BlobPrefix)+2*len(plain), "XOR preserves length")

	got, ok := Decrypt(blob, "9f3c1a2b", path)
	require.True(t, ok)
	assert.Equal(t, value, got)
}

func TestEncryptIsDeterministic(t *testing.T) {
	a, err := Encrypt(ir.IRString("x"), "s", ir.Path{"a"})
	require.NoError(t, err)
	b, err := Encrypt(ir.IRString("x"), "s", ir.Path{"a"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestKeyStreamBindsSecretAndPath(t *testing.T) {
	value := ir.IRString("a reasonably long plaintext so the stream differs")

	base, err := Encrypt(value, "s1", ir.Path{"a"})
	require.NoError(t, err)
	otherSecret, err := Encrypt(value, "s2", ir.Path{"a"})
	require.NoError(t, err)
	otherPath, err := Encrypt(value, "s1", ir.Path{"b"})
	require.NoError(t, err)

	assert.NotEqual(t, base, otherSecret)
	assert.NotEqual(t, base, otherPath)

	got, ok := Decrypt(base, "s2", ir.Path{"a"})
	assert.False(t, ok && ir.Equal(got, value), "wrong secret must not recover the plaintext")
}

func TestDecryptMalformed(t *testing.T) {
	for _, blob := range []string{"", "0x", "0x1", "0xzz", "plain", "1234"} {
		t.Run(blob, func(t *testing.T) {
			_, ok := Decrypt(blob, "s", ir.Path{"a"})
			assert.False(t, ok)
		})
	}
}

func TestIsBlob(t *testing.T) {
	assert.True(t, IsBlob(ir.IRString("0xab")))
	assert.True(t, IsBlob(ir.IRString("0xABcd01")))
	assert.False(t, IsBlob(ir.IRString("0x")))
	assert.False(t, IsBlob(ir.IRString("0xabc")))
	assert.False(t, IsBlob(ir.IRString("ab")))
	assert.False(t, IsBlob(ir.IRInt(1)))
	assert.False(t, IsBlob(ir.IRPointer{Target: "0xab"}))
	assert.False(t, IsBlob(nil))
}

func TestMarkersSurviveEncryption(t *testing.T) {
	value := ir.IRObject{"owner": ir.IRIdentity{ID: "jabellae"}}
	blob, err := Encrypt(value, "s", ir.Path{"vault"})
	require.NoError(t, err)

	got, ok := Decrypt(blob, "s", ir.Path{"vault"})
	require.True(t, ok)
	assert.Equal(t, value, got)
}
