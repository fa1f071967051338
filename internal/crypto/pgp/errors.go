// Package pgp implements key generation and message encryption on top of
// OpenPGP with RSA keys and passphrase-protected private keys.
package pgp

import "errors"

var (
	// ErrInvalidKeyFormat is returned when armored key material cannot be parsed
	// or does not hold the key kind the operation needs.
	ErrInvalidKeyFormat = errors.New("invalid key format")
	// ErrInvalidPassphrase is returned when a private key cannot be unlocked.
	// The wrong passphrase and corrupt key material are deliberately not told apart.
	ErrInvalidPassphrase = errors.New("wrong passphrase or corrupt key material")
	// ErrEncryptionFailure wraps any failure after the public key was parsed.
	ErrEncryptionFailure = errors.New("encryption failed")
	// ErrDecryptionFailure wraps any failure after the private key was unlocked.
	ErrDecryptionFailure = errors.New("decryption failed")
	// ErrKeyGeneration wraps entropy and algorithm failures during key generation.
	ErrKeyGeneration = errors.New("key generation failed")
)

// IsCryptoError reports whether err belongs to the cryptographic error family.
func IsCryptoError(err error) bool {
	return errors.Is(err, ErrInvalidKeyFormat) ||
		errors.Is(err, ErrInvalidPassphrase) ||
		errors.Is(err, ErrEncryptionFailure) ||
		errors.Is(err, ErrDecryptionFailure) ||
		errors.Is(err, ErrKeyGeneration)
}
