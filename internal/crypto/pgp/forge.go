package pgp

import (
	"crypto"
	"fmt"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"

	"github.com/dtroode/pgpmail-server/internal/model"
)

// DefaultRSABits is the key strength used when none is configured.
const DefaultRSABits = 4096

// MinRSABits is the weakest key strength the forge accepts.
const MinRSABits = 2048

// Forge generates passphrase-protected RSA key pairs. It performs no I/O
// besides reading entropy.
type Forge struct {
	bits int
}

// NewForge creates a Forge producing keys of the given RSA size. Sizes below
// MinRSABits fall back to DefaultRSABits.
func NewForge(bits int) *Forge {
	if bits < MinRSABits {
		bits = DefaultRSABits
	}
	return &Forge{bits: bits}
}

// Bits returns the configured RSA key size.
func (f *Forge) Bits() int {
	return f.bits
}

// GenerateKeyPair creates a key pair whose user id is ownerAddress and whose
// private half is encrypted under passphrase.
func (f *Forge) GenerateKeyPair(ownerAddress string, passphrase []byte) (model.KeyPair, error) {
	if ownerAddress == "" {
		return model.KeyPair{}, fmt.Errorf("%w: owner address is empty", ErrKeyGeneration)
	}
	if len(passphrase) == 0 {
		return model.KeyPair{}, fmt.Errorf("%w: passphrase is empty", ErrKeyGeneration)
	}

	cfg := &packet.Config{
		Algorithm:     packet.PubKeyAlgoRSA,
		RSABits:       f.bits,
		DefaultHash:   crypto.SHA256,
		DefaultCipher: packet.CipherAES256,
	}

	entity, err := openpgp.NewEntity(ownerAddress, "", ownerAddress, cfg)
	if err != nil {
		return model.KeyPair{}, fmt.Errorf("%w: %w", ErrKeyGeneration, err)
	}

	publicKey, err := armorEntity(entity, false)
	if err != nil {
		return model.KeyPair{}, fmt.Errorf("%w: %w", ErrKeyGeneration, err)
	}

	if err := encryptPrivateKey(entity.PrivateKey, passphrase); err != nil {
		return model.KeyPair{}, fmt.Errorf("%w: failed to protect primary key: %w", ErrKeyGeneration, err)
	}
	for _, subkey := range entity.Subkeys {
		if err := encryptPrivateKey(subkey.PrivateKey, passphrase); err != nil {
			return model.KeyPair{}, fmt.Errorf("%w: failed to protect subkey: %w", ErrKeyGeneration, err)
		}
	}

	privateKey, err := armorEntity(entity, true)
	if err != nil {
		return model.KeyPair{}, fmt.Errorf("%w: %w", ErrKeyGeneration, err)
	}

	return model.KeyPair{PublicKey: publicKey, PrivateKey: privateKey}, nil
}
