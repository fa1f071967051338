// Package password hashes account passwords with argon2id.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/dtroode/pgpmail-server/internal/model"
)

const (
	saltLen = 16
	keyLen  = 32

	DefaultTime   uint32 = 1
	DefaultMemKiB uint32 = 64 * 1024
	DefaultPar    uint8  = 2
)

// ErrMalformedHash is returned when a stored hash cannot be decoded.
var ErrMalformedHash = errors.New("malformed password hash")

var _ model.PasswordHasher = (*Argon2id)(nil)

// Argon2id produces PHC-formatted argon2id hashes.
type Argon2id struct {
	time   uint32
	memKiB uint32
	par    uint8
}

// NewArgon2id creates a hasher. Zero parameters fall back to defaults.
func NewArgon2id(time, memKiB uint32, par uint8) *Argon2id {
	if time == 0 {
		time = DefaultTime
	}
	if memKiB == 0 {
		memKiB = DefaultMemKiB
	}
	if par == 0 {
		par = DefaultPar
	}
	return &Argon2id{time: time, memKiB: memKiB, par: par}
}

// Hash returns $argon2id$v=19$m=...,t=...,p=...$salt$key.
func (a *Argon2id) Hash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to read salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, a.time, a.memKiB, a.par, keyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, a.memKiB, a.time, a.par,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// Verify checks password against an encoded hash using the parameters
// stored in the hash.
func (a *Argon2id) Verify(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, ErrMalformedHash
	}

	var (
		memKiB, time uint32
		par          uint8
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memKiB, &time, &par); err != nil {
		return false, ErrMalformedHash
	}
	// argon2.IDKey panics on zero time or parallelism.
	if memKiB == 0 || time == 0 || par == 0 {
		return false, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrMalformedHash
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false, ErrMalformedHash
	}

	got := argon2.IDKey([]byte(password), salt, time, memKiB, par, uint32(len(want)))

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
