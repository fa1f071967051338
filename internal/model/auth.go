package model

import (
	"context"

	"github.com/google/uuid"
)

// ContextManager carries the authenticated identity through a request.
type ContextManager interface {
	SetIdentityIDToContext(ctx context.Context, identityID uuid.UUID) context.Context
	GetIdentityIDFromContext(ctx context.Context) (uuid.UUID, bool)
}

// TokenManager issues bearer tokens naming an identity and resolves them back.
type TokenManager interface {
	GenerateAccessToken(identityID uuid.UUID) (string, error)
	ParseAccessToken(token string) (uuid.UUID, error)
}

// PasswordHasher hashes and verifies login passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}
