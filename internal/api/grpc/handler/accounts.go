package handler

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/pgpmail-server/internal/api/grpc/proto"
	"github.com/dtroode/pgpmail-server/internal/logger"
	"github.com/dtroode/pgpmail-server/internal/model"
)

// AccountService defines identity operations exposed over gRPC.
type AccountService interface {
	Register(ctx context.Context, params model.RegisterParams) (model.Session, error)
	Login(ctx context.Context, address, password string) (model.Session, error)
	Profile(ctx context.Context, identityID uuid.UUID) (model.Profile, error)
	ExportPrivateKey(ctx context.Context, identityID uuid.UUID, passphrase string) (string, error)
}

// Accounts handles the pgpmail.Accounts service.
type Accounts struct {
	service        AccountService
	contextManager model.ContextManager
	logger         *logger.Logger
}

var _ proto.AccountsServer = (*Accounts)(nil)

// NewAccounts creates a new Accounts handler.
func NewAccounts(service AccountService, contextManager model.ContextManager, logger *logger.Logger) *Accounts {
	return &Accounts{
		service:        service,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Register creates an identity with a fresh key pair and opens a session.
func (h *Accounts) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	handle := stringField(req, "handle")
	h.logger.Debug("Accounts handler: processing registration request",
		"handle", handle)

	session, err := h.service.Register(ctx, model.RegisterParams{
		Handle:     handle,
		Address:    stringField(req, "address"),
		Password:   stringField(req, "password"),
		Passphrase: stringField(req, "passphrase"),
	})
	if err != nil {
		h.logger.Error("Accounts handler: registration failed",
			"handle", handle,
			"error", err.Error())
		return nil, handleError(err)
	}

	h.logger.Info("Accounts handler: registration completed",
		"identity_id", session.Profile.ID)

	return newStruct(sessionFields(session))
}

// Login opens a session for an existing identity.
func (h *Accounts) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	session, err := h.service.Login(ctx, stringField(req, "address"), stringField(req, "password"))
	if err != nil {
		h.logger.Debug("Accounts handler: login failed",
			"error", err.Error())
		return nil, handleError(err)
	}

	h.logger.Info("Accounts handler: login completed",
		"identity_id", session.Profile.ID)

	return newStruct(sessionFields(session))
}

// Profile returns the caller's public profile.
func (h *Accounts) Profile(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	identityID, err := contextIdentity(ctx, h.contextManager)
	if err != nil {
		return nil, err
	}

	profile, err := h.service.Profile(ctx, identityID)
	if err != nil {
		h.logger.Error("Accounts handler: get profile failed",
			"identity_id", identityID,
			"error", err.Error())
		return nil, handleError(err)
	}

	return newStruct(map[string]any{"profile": profileFields(profile)})
}

// ExportPrivateKey returns the caller's encrypted private key once the
// passphrase proves it can unlock it.
func (h *Accounts) ExportPrivateKey(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	identityID, err := contextIdentity(ctx, h.contextManager)
	if err != nil {
		return nil, err
	}

	privateKey, err := h.service.ExportPrivateKey(ctx, identityID, stringField(req, "passphrase"))
	if err != nil {
		h.logger.Error("Accounts handler: private key export failed",
			"identity_id", identityID,
			"error", err.Error())
		return nil, handleError(err)
	}

	h.logger.Info("Accounts handler: private key exported",
		"identity_id", identityID)

	return newStruct(map[string]any{"private_key": privateKey})
}
