package vault

import "errors"

var (
	// ErrNotFound is returned when no file exists for the username.
	ErrNotFound = errors.New("vault: identity not found")

	// ErrExists is returned by Create when the file already exists.
	ErrExists = errors.New("vault: identity already exists")

	// ErrCorrupted is returned when the file cannot be ciphertext.
	ErrCorrupted = errors.New("vault: file is corrupted")

	// ErrWrongHash is returned when the file does not decrypt.
	ErrWrongHash = errors.New("vault: wrong hash")

	// ErrLocked is returned by any use of a locked vault.
	ErrLocked = errors.New("vault: identity is locked")
)
