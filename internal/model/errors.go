package model

import "errors"

var (
	// ErrNotFound is returned by stores when the requested entity is absent
	// or not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateAddress signals a uniqueness violation on Identity.Address.
	ErrDuplicateAddress = errors.New("address already registered")
	// ErrDuplicateHandle signals a uniqueness violation on Identity.Handle.
	ErrDuplicateHandle = errors.New("handle already taken")
	// ErrIncompleteKeyMaterial is returned when an identity lacks a key half.
	ErrIncompleteKeyMaterial = errors.New("identity is missing key material")
	// ErrPlaintextRejected is returned when an envelope field is not armored ciphertext.
	ErrPlaintextRejected = errors.New("envelope field is not armored ciphertext")
)
