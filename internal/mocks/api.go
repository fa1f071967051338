package mocks

import (
	"context"
	"io"
	"net"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/pgpmail-server/internal/model"
)

type ContextManager struct {
	mock.Mock
}

func (m *ContextManager) SetIdentityIDToContext(ctx context.Context, identityID uuid.UUID) context.Context {
	args := m.Called(ctx, identityID)
	return args.Get(0).(context.Context)
}

func (m *ContextManager) GetIdentityIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	args := m.Called(ctx)
	return args.Get(0).(uuid.UUID), args.Bool(1)
}

type Authenticator struct {
	mock.Mock
}

func (m *Authenticator) Authenticate(ctx context.Context, token string) (uuid.UUID, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type AccountService struct {
	mock.Mock
}

func (m *AccountService) Register(ctx context.Context, params model.RegisterParams) (model.Session, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *AccountService) Login(ctx context.Context, address, password string) (model.Session, error) {
	args := m.Called(ctx, address, password)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *AccountService) Profile(ctx context.Context, identityID uuid.UUID) (model.Profile, error) {
	args := m.Called(ctx, identityID)
	return args.Get(0).(model.Profile), args.Error(1)
}

func (m *AccountService) ExportPrivateKey(ctx context.Context, identityID uuid.UUID, passphrase string) (string, error) {
	args := m.Called(ctx, identityID, passphrase)
	return args.String(0), args.Error(1)
}

type MailService struct {
	mock.Mock
}

func (m *MailService) Send(ctx context.Context, senderID uuid.UUID, params model.SendParams) (model.SendResult, error) {
	args := m.Called(ctx, senderID, params)
	return args.Get(0).(model.SendResult), args.Error(1)
}

func (m *MailService) ListInbox(ctx context.Context, callerID uuid.UUID) ([]model.InboxItem, error) {
	args := m.Called(ctx, callerID)
	items, _ := args.Get(0).([]model.InboxItem)
	return items, args.Error(1)
}

func (m *MailService) ReadOne(ctx context.Context, envelopeID, callerID uuid.UUID) (model.Envelope, error) {
	args := m.Called(ctx, envelopeID, callerID)
	return args.Get(0).(model.Envelope), args.Error(1)
}

func (m *MailService) DecryptOne(ctx context.Context, params model.DecryptParams) ([]byte, error) {
	args := m.Called(ctx, params)
	plaintext, _ := args.Get(0).([]byte)
	return plaintext, args.Error(1)
}

func (m *MailService) OpenAttachment(ctx context.Context, envelopeID, callerID uuid.UUID, index int) (model.Attachment, io.ReadCloser, error) {
	args := m.Called(ctx, envelopeID, callerID, index)
	rc, _ := args.Get(1).(io.ReadCloser)
	return args.Get(0).(model.Attachment), rc, args.Error(2)
}

type SecurityLayer struct {
	mock.Mock
}

func (m *SecurityLayer) Listen(protocol, addr string) (net.Listener, error) {
	args := m.Called(protocol, addr)
	l, _ := args.Get(0).(net.Listener)
	return l, args.Error(1)
}
