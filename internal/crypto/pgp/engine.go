package pgp

import (
	"bytes"
	"crypto"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// Engine encrypts and decrypts armored OpenPGP messages. It holds no key
// material between calls and is safe for concurrent use.
type Engine struct {
	config *packet.Config
}

// NewEngine creates an Engine using AES-256 session keys.
func NewEngine() *Engine {
	return &Engine{
		config: &packet.Config{
			DefaultHash:   crypto.SHA256,
			DefaultCipher: packet.CipherAES256,
		},
	}
}

// Encrypt encrypts plaintext to every key in publicKeyArmored and returns an
// armored message. A fresh session key is used on every call.
func (e *Engine) Encrypt(plaintext []byte, publicKeyArmored string) (string, error) {
	recipients, err := readKeyRing(publicKeyArmored)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidKeyFormat, err)
	}
	for _, recipient := range recipients {
		if _, ok := recipient.EncryptionKey(time.Now()); !ok {
			return "", fmt.Errorf("%w: key %X has no usable encryption key", ErrInvalidKeyFormat, recipient.PrimaryKey.KeyId)
		}
	}

	var buf bytes.Buffer
	armored, err := armor.Encode(&buf, messageType, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncryptionFailure, err)
	}

	plain, err := openpgp.Encrypt(armored, recipients, nil, nil, e.config)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncryptionFailure, err)
	}
	if _, err := plain.Write(plaintext); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncryptionFailure, err)
	}
	if err := plain.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncryptionFailure, err)
	}
	if err := armored.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncryptionFailure, err)
	}

	return buf.String(), nil
}

// Decrypt unlocks privateKeyArmored with passphrase and decrypts
// ciphertextArmored with it.
func (e *Engine) Decrypt(ciphertextArmored, privateKeyArmored string, passphrase []byte) ([]byte, error) {
	keyring, err := unlock(privateKeyArmored, passphrase)
	if err != nil {
		return nil, err
	}

	block, err := armor.Decode(strings.NewReader(ciphertextArmored))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailure, err)
	}
	if block.Type != messageType {
		return nil, fmt.Errorf("%w: unexpected armor type %q", ErrDecryptionFailure, block.Type)
	}

	md, err := openpgp.ReadMessage(block.Body, keyring, nil, e.config)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailure, err)
	}

	// Integrity protection is only checked once the body is read to EOF.
	plaintext, err := io.ReadAll(md.UnverifiedBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailure, err)
	}

	return plaintext, nil
}

// VerifyPassphrase reports whether passphrase unlocks privateKeyArmored.
func (e *Engine) VerifyPassphrase(privateKeyArmored string, passphrase []byte) error {
	_, err := unlock(privateKeyArmored, passphrase)
	return err
}

// unlock parses a fresh copy of the key ring on every call, so a failed
// attempt leaves nothing half-decrypted behind.
func unlock(privateKeyArmored string, passphrase []byte) (openpgp.EntityList, error) {
	entities, err := readKeyRing(privateKeyArmored)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyFormat, err)
	}

	for _, entity := range entities {
		if entity.PrivateKey == nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidKeyFormat, errors.New("key block carries no private key"))
		}
		if err := decryptPrivateKey(entity.PrivateKey, passphrase); err != nil {
			return nil, unlockError(err)
		}
		for _, subkey := range entity.Subkeys {
			if err := decryptPrivateKey(subkey.PrivateKey, passphrase); err != nil {
				return nil, unlockError(err)
			}
		}
	}

	return entities, nil
}

func unlockError(err error) error {
	if errors.Is(err, errUnprotectedKey) {
		return fmt.Errorf("%w: %w", ErrInvalidKeyFormat, err)
	}
	return fmt.Errorf("%w: %w", ErrInvalidPassphrase, err)
}
