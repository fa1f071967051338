package context

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"
)

// identityIDKey is the incoming metadata key holding the authenticated identity.
const identityIDKey = "identity_id"

// Manager stores the authenticated identity ID in incoming gRPC metadata.
type Manager struct{}

// NewManager creates a new gRPC context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetIdentityIDToContext returns ctx with identityID recorded. Any value a
// client sent under the same key is replaced.
func (m *Manager) SetIdentityIDToContext(ctx context.Context, identityID uuid.UUID) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.New(nil)
	}
	md.Set(identityIDKey, identityID.String())

	return metadata.NewIncomingContext(ctx, md)
}

// GetIdentityIDFromContext returns the identity recorded by SetIdentityIDToContext.
func (m *Manager) GetIdentityIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return uuid.Nil, false
	}

	ids := md.Get(identityIDKey)
	if len(ids) != 1 {
		return uuid.Nil, false
	}

	identityID, err := uuid.Parse(ids[0])
	if err != nil || identityID == uuid.Nil {
		return uuid.Nil, false
	}

	return identityID, true
}
