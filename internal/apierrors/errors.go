// Package apierrors defines the errors the API layer exposes to clients.
package apierrors

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/pgpmail-server/internal/crypto/pgp"
	"github.com/dtroode/pgpmail-server/internal/model"
)

// Kind groups errors by how a client should react to them.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindCrypto       Kind = "crypto"
	KindIntegrity    Kind = "integrity"
	KindUnauthorized Kind = "unauthorized"
	KindRateLimited  Kind = "rate_limited"
	KindInternal     Kind = "internal"
)

// APIError is an error with a client-facing message and gRPC code.
// Err keeps the internal cause and is never sent to the client.
type APIError struct {
	Kind     Kind
	GRPCCode codes.Code
	Message  string
	Err      error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// GRPCStatus lets status.FromError and status.Code understand APIError.
func (e *APIError) GRPCStatus() *status.Status {
	return status.New(e.GRPCCode, e.Message)
}

func newError(kind Kind, code codes.Code, msg string, err error) *APIError {
	return &APIError{Kind: kind, GRPCCode: code, Message: msg, Err: err}
}

func NewErrValidation(msg string) *APIError {
	return newError(KindValidation, codes.InvalidArgument, msg, nil)
}

func NewErrRecipientNotFound(address string) *APIError {
	return newError(KindNotFound, codes.NotFound, fmt.Sprintf("recipient %s not found", address), model.ErrNotFound)
}

func NewErrRecipientHasNoKey(address string) *APIError {
	return newError(KindIntegrity, codes.DataLoss, fmt.Sprintf("recipient %s has no public key", address), model.ErrIncompleteKeyMaterial)
}

func NewErrMailNotFound() *APIError {
	return newError(KindNotFound, codes.NotFound, "mail not found", model.ErrNotFound)
}

func NewErrIdentityNotFound() *APIError {
	return newError(KindNotFound, codes.NotFound, "identity not found", model.ErrNotFound)
}

func NewErrIntegrity(msg string, err error) *APIError {
	return newError(KindIntegrity, codes.DataLoss, msg, err)
}

func NewErrAddressIsTaken(address string) *APIError {
	return newError(KindConflict, codes.AlreadyExists, fmt.Sprintf("address %s is already registered", address), model.ErrDuplicateAddress)
}

func NewErrHandleIsTaken(handle string) *APIError {
	return newError(KindConflict, codes.AlreadyExists, fmt.Sprintf("handle %s is already taken", handle), model.ErrDuplicateHandle)
}

// NewErrInvalidCredentials has the same shape for unknown addresses and wrong passwords.
func NewErrInvalidCredentials() *APIError {
	return newError(KindUnauthorized, codes.Unauthenticated, "invalid address or password", nil)
}

func NewErrUnauthorized(err error) *APIError {
	return newError(KindUnauthorized, codes.Unauthenticated, "unauthorized", err)
}

func NewErrInvalidPassphrase(err error) *APIError {
	return newError(KindCrypto, codes.InvalidArgument, pgp.ErrInvalidPassphrase.Error(), err)
}

func NewErrCrypto(err error) *APIError {
	return newError(KindCrypto, codes.FailedPrecondition, "cryptographic operation failed", err)
}

func NewErrRateLimited() *APIError {
	return newError(KindRateLimited, codes.ResourceExhausted, "too many requests", nil)
}

// FromError classifies err. It returns nil for a nil err.
func FromError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, pgp.ErrInvalidPassphrase):
		return NewErrInvalidPassphrase(err)
	case pgp.IsCryptoError(err):
		return NewErrCrypto(err)
	case errors.Is(err, model.ErrNotFound):
		return newError(KindNotFound, codes.NotFound, "not found", err)
	case errors.Is(err, model.ErrDuplicateAddress), errors.Is(err, model.ErrDuplicateHandle):
		return newError(KindConflict, codes.AlreadyExists, "already exists", err)
	case errors.Is(err, model.ErrIncompleteKeyMaterial), errors.Is(err, model.ErrPlaintextRejected):
		return NewErrIntegrity("data integrity violation", err)
	case errors.Is(err, context.Canceled):
		return newError(KindInternal, codes.Canceled, "request canceled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return newError(KindInternal, codes.DeadlineExceeded, "deadline exceeded", err)
	default:
		return newError(KindInternal, codes.Internal, "internal server error", err)
	}
}

// Is reports whether err classifies as kind.
func Is(err error, kind Kind) bool {
	apiErr := FromError(err)
	return apiErr != nil && apiErr.Kind == kind
}
