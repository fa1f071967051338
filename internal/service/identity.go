package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/pgpmail-server/internal/apierrors"
	"github.com/dtroode/pgpmail-server/internal/crypto/pgp"
	"github.com/dtroode/pgpmail-server/internal/logger"
	"github.com/dtroode/pgpmail-server/internal/model"
)

const decoyPassword = "pgpmail-decoy-password"

// Identity registers and authenticates identities and guards their keys.
type Identity struct {
	identities model.IdentityStore
	forge      model.KeyForge
	engine     model.CryptoEngine
	hasher     model.PasswordHasher
	tokens     model.TokenManager
	logger     *logger.Logger

	decoyOnce sync.Once
	decoyHash string
}

// NewIdentity creates an Identity service over the given store, key forge,
// crypto engine, password hasher and token manager.
func NewIdentity(
	identities model.IdentityStore,
	forge model.KeyForge,
	engine model.CryptoEngine,
	hasher model.PasswordHasher,
	tokens model.TokenManager,
	logger *logger.Logger,
) *Identity {
	return &Identity{
		identities: identities,
		forge:      forge,
		engine:     engine,
		hasher:     hasher,
		tokens:     tokens,
		logger:     logger,
	}
}

// Register creates an identity with a fresh key pair. The private key is
// encrypted under Passphrase, or under Password when no passphrase is given.
func (s *Identity) Register(ctx context.Context, params model.RegisterParams) (model.Session, error) {
	handle := strings.TrimSpace(params.Handle)
	address := normalizeAddress(params.Address)

	if err := validateHandle(handle); err != nil {
		return model.Session{}, err
	}
	if err := validateAddress(address); err != nil {
		return model.Session{}, err
	}
	if err := validatePassword(params.Password); err != nil {
		return model.Session{}, err
	}

	passphrase := params.Passphrase
	if passphrase == "" {
		passphrase = params.Password
	}

	s.logger.Debug("Identity service: starting registration",
		"handle", handle,
		"address", address)

	// Key generation is expensive, so obvious duplicates are rejected first.
	// The store still decides races.
	if err := s.ensureAvailable(ctx, handle, address); err != nil {
		return model.Session{}, err
	}

	keyPair, err := s.forge.GenerateKeyPair(ctx, address, []byte(passphrase))
	if err != nil {
		s.logger.Error("Identity service: failed to generate key pair",
			"address", address,
			"error", err.Error())
		return model.Session{}, fmt.Errorf("failed to generate key pair: %w", err)
	}

	passwordHash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	identity, err := s.identities.Create(ctx, model.Identity{
		ID:           uuid.New(),
		Handle:       handle,
		Address:      address,
		PasswordHash: passwordHash,
		PublicKey:    keyPair.PublicKey,
		PrivateKey:   keyPair.PrivateKey,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	switch {
	case errors.Is(err, model.ErrDuplicateAddress):
		return model.Session{}, apierrors.NewErrAddressIsTaken(address)
	case errors.Is(err, model.ErrDuplicateHandle):
		return model.Session{}, apierrors.NewErrHandleIsTaken(handle)
	case err != nil:
		s.logger.Error("Identity service: failed to create identity",
			"address", address,
			"error", err.Error())
		return model.Session{}, fmt.Errorf("failed to create identity: %w", err)
	}

	session, err := s.issueSession(identity)
	if err != nil {
		return model.Session{}, err
	}

	s.logger.Info("Identity service: identity registered",
		"identity_id", identity.ID,
		"handle", identity.Handle)

	return session, nil
}

func (s *Identity) ensureAvailable(ctx context.Context, handle, address string) error {
	_, err := s.identities.FindByAddress(ctx, address)
	if err == nil {
		return apierrors.NewErrAddressIsTaken(address)
	}
	if !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to get identity by address: %w", err)
	}

	_, err = s.identities.FindByHandle(ctx, handle)
	if err == nil {
		return apierrors.NewErrHandleIsTaken(handle)
	}
	if !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to get identity by handle: %w", err)
	}

	return nil
}

// Login returns the same error for an unknown address and a wrong password.
func (s *Identity) Login(ctx context.Context, address, password string) (model.Session, error) {
	address = normalizeAddress(address)
	if address == "" || password == "" {
		return model.Session{}, apierrors.NewErrValidation("address and password are required")
	}

	identity, err := s.identities.FindByAddress(ctx, address)
	if errors.Is(err, model.ErrNotFound) {
		s.logger.Info("Identity service: login for unknown address",
			"address", address)
		s.verifyDecoy(password)
		return model.Session{}, apierrors.NewErrInvalidCredentials()
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to get identity by address: %w", err)
	}

	ok, err := s.hasher.Verify(password, identity.PasswordHash)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		s.logger.Info("Identity service: wrong password",
			"identity_id", identity.ID)
		return model.Session{}, apierrors.NewErrInvalidCredentials()
	}

	return s.issueSession(identity)
}

// verifyDecoy checks password against a fixed hash and discards the result.
func (s *Identity) verifyDecoy(password string) {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash(decoyPassword)
		if err != nil {
			s.logger.Error("Identity service: failed to prepare decoy hash",
				"error", err.Error())
			return
		}
		s.decoyHash = hash
	})
	if s.decoyHash == "" {
		return
	}
	_, _ = s.hasher.Verify(password, s.decoyHash)
}

func (s *Identity) issueSession(identity model.Identity) (model.Session, error) {
	accessToken, err := s.tokens.GenerateAccessToken(identity.ID)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to issue token: %w", err)
	}

	return model.Session{
		Profile:     identity.Profile(),
		AccessToken: accessToken,
	}, nil
}

// Profile returns the public view of an identity.
func (s *Identity) Profile(ctx context.Context, identityID uuid.UUID) (model.Profile, error) {
	identity, err := s.findByID(ctx, identityID)
	if err != nil {
		return model.Profile{}, err
	}

	return identity.Profile(), nil
}

// ExportPrivateKey returns the stored armored private key once passphrase
// has been shown to unlock it.
func (s *Identity) ExportPrivateKey(ctx context.Context, identityID uuid.UUID, passphrase string) (string, error) {
	if passphrase == "" {
		return "", apierrors.NewErrValidation("passphrase is required")
	}

	identity, err := s.findByID(ctx, identityID)
	if err != nil {
		return "", err
	}

	err = s.engine.VerifyPassphrase(ctx, identity.PrivateKey, []byte(passphrase))
	if errors.Is(err, pgp.ErrInvalidPassphrase) {
		s.logger.Info("Identity service: private key export refused",
			"identity_id", identityID)
		return "", apierrors.NewErrInvalidPassphrase(err)
	}
	if err != nil {
		return "", fmt.Errorf("failed to verify passphrase: %w", err)
	}

	s.logger.Info("Identity service: private key exported",
		"identity_id", identityID)

	return identity.PrivateKey, nil
}

// Authenticate resolves a bearer token to the identity it was issued for.
func (s *Identity) Authenticate(_ context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, apierrors.NewErrUnauthorized(errors.New("missing token"))
	}

	identityID, err := s.tokens.ParseAccessToken(token)
	if err != nil {
		return uuid.Nil, apierrors.NewErrUnauthorized(err)
	}
	if identityID == uuid.Nil {
		return uuid.Nil, apierrors.NewErrUnauthorized(errors.New("empty subject"))
	}

	return identityID, nil
}

func (s *Identity) findByID(ctx context.Context, identityID uuid.UUID) (model.Identity, error) {
	identity, err := s.identities.FindByID(ctx, identityID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Identity{}, apierrors.NewErrIdentityNotFound()
	}
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to get identity by id: %w", err)
	}
	return identity, nil
}
