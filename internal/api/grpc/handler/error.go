package handler

import (
	"google.golang.org/grpc/status"

	"github.com/dtroode/pgpmail-server/internal/apierrors"
)

// handleError converts a service error into a gRPC status. Internal causes
// never reach the client.
func handleError(err error) error {
	apiErr := apierrors.FromError(err)
	return status.Error(apiErr.GRPCCode, apiErr.Message)
}
