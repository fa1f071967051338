package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IdentityStore defines persistence operations for identities.
type IdentityStore interface {
	Create(ctx context.Context, identity Identity) (Identity, error)
	FindByID(ctx context.Context, id uuid.UUID) (Identity, error)
	FindByAddress(ctx context.Context, address string) (Identity, error)
	FindByHandle(ctx context.Context, handle string) (Identity, error)
}

// Identity is a registered user together with both halves of its key pair.
type Identity struct {
	ID           uuid.UUID
	Handle       string
	Address      string
	PasswordHash string
	PublicKey    string
	PrivateKey   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate reports whether the identity may be persisted.
func (i Identity) Validate() error {
	if i.PublicKey == "" || i.PrivateKey == "" {
		return ErrIncompleteKeyMaterial
	}
	return nil
}

// Profile returns the public projection of the identity.
func (i Identity) Profile() Profile {
	return Profile{
		ID:        i.ID,
		Handle:    i.Handle,
		Address:   i.Address,
		PublicKey: i.PublicKey,
		CreatedAt: i.CreatedAt,
	}
}

// Profile is the part of an identity that may be shown to anyone.
type Profile struct {
	ID        uuid.UUID
	Handle    string
	Address   string
	PublicKey string
	CreatedAt time.Time
}

// KeyPair holds armored OpenPGP key material. PrivateKey is always
// encrypted under the owner's passphrase.
type KeyPair struct {
	PublicKey  string
	PrivateKey string
}

// RegisterParams contains parameters to register an identity.
type RegisterParams struct {
	Handle     string
	Address    string
	Password   string
	Passphrase string
}

// Session is returned after successful registration or login.
type Session struct {
	Profile     Profile
	AccessToken string
}
