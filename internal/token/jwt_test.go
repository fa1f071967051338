package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_AccessToken_Roundtrip(t *testing.T) {
	j := NewJWT("secret", "", 0)
	id := uuid.New()

	access, err := j.GenerateAccessToken(id)
	require.NoError(t, err)

	got, err := j.ParseAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestJWT_ParseAccessToken_Rejects(t *testing.T) {
	id := uuid.New()
	issuer := NewJWT("secret", "pgpmail", time.Hour)

	expired := NewJWT("secret", "pgpmail", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	sign := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := func(subject string) jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Issuer:    "pgpmail",
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
	}

	tests := []struct {
		name  string
		token func() string
	}{
		{
			name:  "garbage",
			token: func() string { return "not.a.token" },
		},
		{
			name: "other secret",
			token: func() string {
				s, err := NewJWT("other", "pgpmail", time.Hour).GenerateAccessToken(id)
				require.NoError(t, err)
				return s
			},
		},
		{
			name: "other issuer",
			token: func() string {
				s, err := NewJWT("secret", "someone-else", time.Hour).GenerateAccessToken(id)
				require.NoError(t, err)
				return s
			},
		},
		{
			name: "expired",
			token: func() string {
				s, err := expired.GenerateAccessToken(id)
				require.NoError(t, err)
				return s
			},
		},
		{
			name: "no expiry",
			token: func() string {
				return sign(jwt.RegisteredClaims{Issuer: "pgpmail", Subject: id.String()}, jwt.SigningMethodHS256, []byte("secret"))
			},
		},
		{
			name: "other algorithm",
			token: func() string {
				return sign(valid(id.String()), jwt.SigningMethodHS512, []byte("secret"))
			},
		},
		{
			name: "subject is not an id",
			token: func() string {
				return sign(valid("alice"), jwt.SigningMethodHS256, []byte("secret"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := issuer.ParseAccessToken(tt.token())

			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Equal(t, uuid.Nil, got)
		})
	}
}
