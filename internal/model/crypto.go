package model

import "context"

// KeyForge generates passphrase-protected key pairs.
type KeyForge interface {
	GenerateKeyPair(ctx context.Context, ownerAddress string, passphrase []byte) (KeyPair, error)
}

// CryptoEngine encrypts against public keys and decrypts with private keys.
type CryptoEngine interface {
	Encrypt(ctx context.Context, plaintext []byte, publicKeyArmored string) (string, error)
	Decrypt(ctx context.Context, ciphertextArmored, privateKeyArmored string, passphrase []byte) ([]byte, error)
	VerifyPassphrase(ctx context.Context, privateKeyArmored string, passphrase []byte) error
}
