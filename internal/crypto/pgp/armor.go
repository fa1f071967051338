package pgp

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

const messageType = "PGP MESSAGE"

func readKeyRing(armored string) (openpgp.EntityList, error) {
	if strings.TrimSpace(armored) == "" {
		return nil, errors.New("key material is empty")
	}

	entities, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armored))
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, errors.New("key block holds no keys")
	}

	return entities, nil
}

func armorEntity(entity *openpgp.Entity, private bool) (string, error) {
	var buf bytes.Buffer

	blockType := openpgp.PublicKeyType
	if private {
		blockType = openpgp.PrivateKeyType
	}

	w, err := armor.Encode(&buf, blockType, nil)
	if err != nil {
		return "", fmt.Errorf("failed to open armor writer: %w", err)
	}

	if private {
		// Self-signatures were made by NewEntity while the key was still
		// unlocked; re-signing here would need the passphrase again.
		err = entity.SerializePrivateWithoutSigning(w, nil)
	} else {
		err = entity.Serialize(w)
	}
	if err != nil {
		return "", fmt.Errorf("failed to serialize entity: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close armor writer: %w", err)
	}

	return buf.String(), nil
}

func encryptPrivateKey(pk *packet.PrivateKey, passphrase []byte) error {
	if pk == nil || pk.Encrypted {
		return nil
	}
	return pk.Encrypt(passphrase)
}

var errUnprotectedKey = errors.New("private key is not passphrase protected")

func decryptPrivateKey(pk *packet.PrivateKey, passphrase []byte) error {
	if pk == nil {
		return nil
	}
	if !pk.Encrypted {
		return errUnprotectedKey
	}
	return pk.Decrypt(passphrase)
}

// Fingerprint returns the hex fingerprint of the first primary key in armored.
func Fingerprint(armored string) (string, error) {
	entities, err := readKeyRing(armored)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidKeyFormat, err)
	}

	return strings.ToUpper(hex.EncodeToString(entities[0].PrimaryKey.Fingerprint)), nil
}
