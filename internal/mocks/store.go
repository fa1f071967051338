// Package mocks holds testify mocks for the interfaces in model and the
// service contracts consumed by the API layer.
package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/pgpmail-server/internal/model"
)

type IdentityStore struct {
	mock.Mock
}

func (m *IdentityStore) Create(ctx context.Context, identity model.Identity) (model.Identity, error) {
	args := m.Called(ctx, identity)
	if fn, ok := args.Get(0).(func(context.Context, model.Identity) (model.Identity, error)); ok {
		return fn(ctx, identity)
	}
	return args.Get(0).(model.Identity), args.Error(1)
}

func (m *IdentityStore) FindByID(ctx context.Context, id uuid.UUID) (model.Identity, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Identity), args.Error(1)
}

func (m *IdentityStore) FindByAddress(ctx context.Context, address string) (model.Identity, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(model.Identity), args.Error(1)
}

func (m *IdentityStore) FindByHandle(ctx context.Context, handle string) (model.Identity, error) {
	args := m.Called(ctx, handle)
	return args.Get(0).(model.Identity), args.Error(1)
}

type EnvelopeStore struct {
	mock.Mock
}

func (m *EnvelopeStore) Append(ctx context.Context, envelope model.Envelope) (model.Envelope, error) {
	args := m.Called(ctx, envelope)
	if fn, ok := args.Get(0).(func(context.Context, model.Envelope) (model.Envelope, error)); ok {
		return fn(ctx, envelope)
	}
	return args.Get(0).(model.Envelope), args.Error(1)
}

func (m *EnvelopeStore) ListForRecipient(ctx context.Context, recipientID uuid.UUID) ([]model.Envelope, error) {
	args := m.Called(ctx, recipientID)
	envelopes, _ := args.Get(0).([]model.Envelope)
	return envelopes, args.Error(1)
}

func (m *EnvelopeStore) GetForRecipient(ctx context.Context, envelopeID, recipientID uuid.UUID) (model.Envelope, error) {
	args := m.Called(ctx, envelopeID, recipientID)
	return args.Get(0).(model.Envelope), args.Error(1)
}

func (m *EnvelopeStore) MarkRead(ctx context.Context, envelopeID uuid.UUID) error {
	args := m.Called(ctx, envelopeID)
	return args.Error(0)
}

type Storage struct {
	mock.Mock
}

func (m *Storage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, key, reader, size, contentType)
	return args.Error(0)
}

func (m *Storage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *Storage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *Storage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}
