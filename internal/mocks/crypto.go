package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/pgpmail-server/internal/model"
)

type KeyForge struct {
	mock.Mock
}

func (m *KeyForge) GenerateKeyPair(ctx context.Context, ownerAddress string, passphrase []byte) (model.KeyPair, error) {
	args := m.Called(ctx, ownerAddress, passphrase)
	return args.Get(0).(model.KeyPair), args.Error(1)
}

type CryptoEngine struct {
	mock.Mock
}

func (m *CryptoEngine) Encrypt(ctx context.Context, plaintext []byte, publicKeyArmored string) (string, error) {
	args := m.Called(ctx, plaintext, publicKeyArmored)
	return args.String(0), args.Error(1)
}

func (m *CryptoEngine) Decrypt(ctx context.Context, ciphertextArmored, privateKeyArmored string, passphrase []byte) ([]byte, error) {
	args := m.Called(ctx, ciphertextArmored, privateKeyArmored, passphrase)
	plaintext, _ := args.Get(0).([]byte)
	return plaintext, args.Error(1)
}

func (m *CryptoEngine) VerifyPassphrase(ctx context.Context, privateKeyArmored string, passphrase []byte) error {
	args := m.Called(ctx, privateKeyArmored, passphrase)
	return args.Error(0)
}

type PasswordHasher struct {
	mock.Mock
}

func (m *PasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *PasswordHasher) Verify(password, encoded string) (bool, error) {
	args := m.Called(password, encoded)
	return args.Bool(0), args.Error(1)
}

type TokenManager struct {
	mock.Mock
}

func (m *TokenManager) GenerateAccessToken(identityID uuid.UUID) (string, error) {
	args := m.Called(identityID)
	return args.String(0), args.Error(1)
}

func (m *TokenManager) ParseAccessToken(token string) (uuid.UUID, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}
