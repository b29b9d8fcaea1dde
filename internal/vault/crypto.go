package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
)

// deriveKey returns SHA-256(username ":" hash).
func deriveKey(username, hash string) []byte {
	sum := sha256.Sum256([]byte(username + ":" + hash))
	return sum[:]
}

// seal encrypts plaintext and returns IV||ciphertext.
func seal(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: cipher: %w", err)
	}

	out := make([]byte, aes.BlockSize, aes.BlockSize+len(plaintext)+aes.BlockSize)
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("vault: iv: %w", err)
	}

	padded := pad(plaintext)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, out[:aes.BlockSize]).CryptBlocks(ct, padded)
	return append(out, ct...), nil
}

// open decrypts IV||ciphertext. A short or misaligned input is
// ErrCorrupted; bad padding is ErrWrongHash.
func open(key, data []byte) ([]byte, error) {
	if len(data) < 2*aes.BlockSize || len(data)%aes.BlockSize != 0 {
		return nil, ErrCorrupted
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: cipher: %w", err)
	}

	iv, ct := data[:aes.BlockSize], data[aes.BlockSize:]
	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	out, ok := unpad(plain)
	if !ok {
		return nil, ErrWrongHash
	}
	return out, nil
}

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(bytes.Clone(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, bool) {
	if len(b) == 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, false
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, false
		}
	}
	return b[:len(b)-n], true
}
