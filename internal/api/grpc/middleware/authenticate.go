package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dtroode/pgpmail-server/internal/logger"
	"github.com/dtroode/pgpmail-server/internal/model"
)

var errNilIdentity = errors.New("token resolved to nil identity")

// Authenticator resolves an identity ID from a bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uuid.UUID, error)
}

// Authenticate validates bearer tokens and injects the identity ID into context.
type Authenticate struct {
	authenticator  Authenticator
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(authenticator Authenticator, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{authenticator: authenticator, contextManager: contextManager, logger: logger}
}

// AuthFunc parses the authorization header, validates the token and returns
// a context carrying the identity ID.
func (m *Authenticate) AuthFunc(ctx context.Context) (context.Context, error) {
	var token string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if headers := md.Get("authorization"); len(headers) > 0 {
			token = strings.TrimSpace(strings.TrimPrefix(headers[0], "Bearer "))
		}
	}

	identityID, err := m.authenticator.Authenticate(ctx, token)
	if err == nil && identityID == uuid.Nil {
		err = errNilIdentity
	}
	if err != nil {
		m.logger.Debug("Authenticate middleware: rejected token",
			"error", err.Error())
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	return m.contextManager.SetIdentityIDToContext(ctx, identityID), nil
}
