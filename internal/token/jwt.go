// Package token issues and validates bearer tokens for authenticated identities.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/pgpmail-server/internal/model"
)

const (
	DefaultTTL    = 24 * time.Hour
	DefaultIssuer = "pgpmail"
)

// ErrInvalidToken is returned for any token that does not authenticate an identity.
var ErrInvalidToken = errors.New("invalid access token")

var _ model.TokenManager = (*JWT)(nil)

// JWT implements TokenManager backed by symmetric HMAC. The identity id is
// carried in the subject claim.
type JWT struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
	now       func() time.Time
}

// NewJWT creates a token manager. A non-positive ttl falls back to DefaultTTL.
func NewJWT(secretKey, issuer string, ttl time.Duration) *JWT {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &JWT{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		ttl:       ttl,
		now:       time.Now,
	}
}

// GenerateAccessToken signs a token for identityID.
func (j *JWT) GenerateAccessToken(identityID uuid.UUID) (string, error) {
	now := j.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    j.issuer,
		Subject:   identityID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
	})

	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// ParseAccessToken validates tokenString and returns the identity id it carries.
func (j *JWT) ParseAccessToken(tokenString string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return j.secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	identityID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject: %w", ErrInvalidToken, err)
	}

	return identityID, nil
}
