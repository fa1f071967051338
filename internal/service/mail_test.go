package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/dtroode/pgpmail-server/internal/apierrors"
	"github.com/dtroode/pgpmail-server/internal/crypto/pgp"
	"github.com/dtroode/pgpmail-server/internal/mocks"
	"github.com/dtroode/pgpmail-server/internal/model"
	"github.com/dtroode/pgpmail-server/internal/testutil"
)

const (
	sealedSubject = model.ArmoredMessageHeader + "\n\nsubject\n-----END PGP MESSAGE-----"
	sealedBody    = model.ArmoredMessageHeader + "\n\nbody\n-----END PGP MESSAGE-----"
)

type mailDeps struct {
	identities *mocks.IdentityStore
	envelopes  *mocks.EnvelopeStore
	engine     *mocks.CryptoEngine
	storage    *mocks.Storage
	logs       *testutil.LogBuffer
}

func newMailService() (*Mail, mailDeps) {
	log, buf := testutil.MakeCaptureLogger()
	d := mailDeps{
		identities: &mocks.IdentityStore{},
		envelopes:  &mocks.EnvelopeStore{},
		engine:     &mocks.CryptoEngine{},
		storage:    &mocks.Storage{},
		logs:       buf,
	}
	return NewMail(d.identities, d.envelopes, d.engine, d.storage, log), d
}

func (d mailDeps) assertExpectations(t *testing.T) {
	d.identities.AssertExpectations(t)
	d.envelopes.AssertExpectations(t)
	d.engine.AssertExpectations(t)
	d.storage.AssertExpectations(t)
}

func recipientIdentity() model.Identity {
	return model.Identity{
		ID:         uuid.New(),
		Handle:     "bob",
		Address:    "bob@example.com",
		PublicKey:  "bob-public-key",
		PrivateKey: "bob-private-key",
	}
}

func passthroughAppend(_ context.Context, e model.Envelope) (model.Envelope, error) {
	return e, nil
}

func TestMail_Send(t *testing.T) {
	s, d := newMailService()
	sender := uuid.New()
	bob := recipientIdentity()

	d.identities.On("FindByAddress", mock.Anything, "bob@example.com").Return(bob, nil)
	d.engine.On("Encrypt", mock.Anything, []byte("Quarterly numbers"), bob.PublicKey).Return(sealedSubject, nil)
	d.engine.On("Encrypt", mock.Anything, []byte("Revenue is up 12%"), bob.PublicKey).Return(sealedBody, nil)
	d.envelopes.On("Append", mock.Anything, mock.MatchedBy(func(e model.Envelope) bool {
		return e.ID != uuid.Nil &&
			e.SenderID == sender &&
			e.RecipientID == bob.ID &&
			e.Subject == sealedSubject &&
			e.Body == sealedBody &&
			!e.IsRead &&
			!e.SentAt.IsZero() &&
			len(e.Attachments) == 0
	})).Return(passthroughAppend)

	res, err := s.Send(context.Background(), sender, model.SendParams{
		RecipientAddress: " Bob@Example.com",
		Subject:          "Quarterly numbers",
		Body:             "Revenue is up 12%",
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, res.EnvelopeID)
	assert.WithinDuration(t, time.Now(), res.SentAt, time.Minute)
	assert.NotContains(t, d.logs.String(), "Quarterly numbers")
	assert.NotContains(t, d.logs.String(), "Revenue is up")
	d.assertExpectations(t)
}

func TestMail_Send_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params model.SendParams
	}{
		{name: "no recipient", params: model.SendParams{Subject: "s", Body: "b"}},
		{name: "no subject", params: model.SendParams{RecipientAddress: "bob@example.com", Body: "b"}},
		{name: "no body", params: model.SendParams{RecipientAddress: "bob@example.com", Subject: "s"}},
		{
			name: "attachment without name",
			params: model.SendParams{
				RecipientAddress: "bob@example.com", Subject: "s", Body: "b",
				Attachments: []model.AttachmentUpload{{Filename: " ", Content: []byte("x")}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, d := newMailService()

			_, err := s.Send(context.Background(), uuid.New(), tt.params)

			assert.True(t, apierrors.Is(err, apierrors.KindValidation), "got %v", err)
			d.assertExpectations(t)
		})
	}
}

func TestMail_Send_AttachmentsWithoutStorage(t *testing.T) {
	s := NewMail(&mocks.IdentityStore{}, &mocks.EnvelopeStore{}, &mocks.CryptoEngine{}, nil, testutil.MakeNoopLogger())

	_, err := s.Send(context.Background(), uuid.New(), model.SendParams{
		RecipientAddress: "bob@example.com", Subject: "s", Body: "b",
		Attachments: []model.AttachmentUpload{{Filename: "a.txt", Content: []byte("x")}},
	})

	assert.True(t, apierrors.Is(err, apierrors.KindValidation))
}

func TestMail_Send_RecipientProblems(t *testing.T) {
	params := model.SendParams{RecipientAddress: "bob@example.com", Subject: "s", Body: "b"}

	t.Run("unknown recipient", func(t *testing.T) {
		s, d := newMailService()
		d.identities.On("FindByAddress", mock.Anything, "bob@example.com").Return(model.Identity{}, model.ErrNotFound)

		_, err := s.Send(context.Background(), uuid.New(), params)

		assert.ErrorIs(t, err, model.ErrNotFound)
		apiErr := apierrors.FromError(err)
		assert.Equal(t, codes.NotFound, apiErr.GRPCCode)
		assert.Contains(t, apiErr.Message, "recipient")
		d.envelopes.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
		d.assertExpectations(t)
	})

	t.Run("recipient without key", func(t *testing.T) {
		s, d := newMailService()
		bob := recipientIdentity()
		bob.PublicKey = ""
		d.identities.On("FindByAddress", mock.Anything, "bob@example.com").Return(bob, nil)

		_, err := s.Send(context.Background(), uuid.New(), params)

		assert.True(t, apierrors.Is(err, apierrors.KindIntegrity))
		d.envelopes.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
		d.assertExpectations(t)
	})
}

func TestMail_Send_EncryptionProblems(t *testing.T) {
	bob := recipientIdentity()
	params := model.SendParams{RecipientAddress: "bob@example.com", Subject: "subject", Body: "body"}

	tests := []struct {
		name      string
		setup     func(*mocks.CryptoEngine)
		wantErrIs error
		wantKind  apierrors.Kind
	}{
		{
			name: "subject encryption fails",
			setup: func(e *mocks.CryptoEngine) {
				e.On("Encrypt", mock.Anything, []byte("subject"), bob.PublicKey).Return("", pgp.ErrInvalidKeyFormat)
			},
			wantErrIs: pgp.ErrInvalidKeyFormat,
			wantKind:  apierrors.KindCrypto,
		},
		{
			name: "body encryption fails",
			setup: func(e *mocks.CryptoEngine) {
				e.On("Encrypt", mock.Anything, []byte("subject"), bob.PublicKey).Return(sealedSubject, nil)
				e.On("Encrypt", mock.Anything, []byte("body"), bob.PublicKey).Return("", pgp.ErrEncryptionFailure)
			},
			wantErrIs: pgp.ErrEncryptionFailure,
			wantKind:  apierrors.KindCrypto,
		},
		{
			name: "engine returns plaintext",
			setup: func(e *mocks.CryptoEngine) {
				e.On("Encrypt", mock.Anything, []byte("subject"), bob.PublicKey).Return("subject", nil)
			},
			wantErrIs: model.ErrPlaintextRejected,
			wantKind:  apierrors.KindIntegrity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, d := newMailService()
			d.identities.On("FindByAddress", mock.Anything, "bob@example.com").Return(bob, nil)
			tt.setup(d.engine)

			_, err := s.Send(context.Background(), uuid.New(), params)

			assert.ErrorIs(t, err, tt.wantErrIs)
			assert.True(t, apierrors.Is(err, tt.wantKind))
			d.envelopes.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
			d.assertExpectations(t)
		})
	}
}

func TestMail_Send_Attachments(t *testing.T) {
	bob := recipientIdentity()
	params := model.SendParams{
		RecipientAddress: "bob@example.com",
		Subject:          "subject",
		Body:             "body",
		Attachments: []model.AttachmentUpload{
			{Filename: "report.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.7")},
			{Filename: "notes.txt", Content: []byte("hi")},
		},
	}

	setup := func(d mailDeps) {
		d.identities.On("FindByAddress", mock.Anything, "bob@example.com").Return(bob, nil)
		d.engine.On("Encrypt", mock.Anything, []byte("subject"), bob.PublicKey).Return(sealedSubject, nil)
		d.engine.On("Encrypt", mock.Anything, []byte("body"), bob.PublicKey).Return(sealedBody, nil)
	}
	isKey := func(index int) any {
		return mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "attachments/") && strings.HasSuffix(key, fmt.Sprintf("/%d", index))
		})
	}

	t.Run("uploaded then recorded", func(t *testing.T) {
		s, d := newMailService()
		setup(d)
		d.storage.On("Upload", mock.Anything, isKey(0), mock.Anything, int64(8), "application/pdf").Return(nil)
		d.storage.On("Upload", mock.Anything, isKey(1), mock.Anything, int64(2), "application/octet-stream").Return(nil)

		var stored model.Envelope
		d.envelopes.On("Append", mock.Anything, mock.Anything).Return(func(_ context.Context, e model.Envelope) (model.Envelope, error) {
			stored = e
			return e, nil
		})

		_, err := s.Send(context.Background(), uuid.New(), params)

		require.NoError(t, err)
		require.Len(t, stored.Attachments, 2)
		assert.Equal(t, "report.pdf", stored.Attachments[0].Filename)
		assert.Equal(t, int64(8), stored.Attachments[0].Size)
		assert.Equal(t, "notes.txt", stored.Attachments[1].Filename)
		assert.Contains(t, stored.Attachments[1].Location, stored.ID.String())
		d.assertExpectations(t)
	})

	t.Run("append failure removes uploads", func(t *testing.T) {
		s, d := newMailService()
		setup(d)
		d.storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Twice()
		d.envelopes.On("Append", mock.Anything, mock.Anything).Return(model.Envelope{}, errors.New("disk full"))
		d.storage.On("Delete", mock.Anything, isKey(0)).Return(nil).Once()
		d.storage.On("Delete", mock.Anything, isKey(1)).Return(nil).Once()

		_, err := s.Send(context.Background(), uuid.New(), params)

		assert.ErrorContains(t, err, "failed to append envelope")
		d.assertExpectations(t)
	})

	t.Run("upload failure removes earlier uploads", func(t *testing.T) {
		s, d := newMailService()
		setup(d)
		d.storage.On("Upload", mock.Anything, isKey(0), mock.Anything, mock.Anything, mock.Anything).Return(nil)
		d.storage.On("Upload", mock.Anything, isKey(1), mock.Anything, mock.Anything, mock.Anything).Return(errors.New("s3 down"))
		d.storage.On("Delete", mock.Anything, isKey(0)).Return(nil).Once()

		_, err := s.Send(context.Background(), uuid.New(), params)

		assert.ErrorContains(t, err, "failed to upload attachment")
		d.envelopes.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
		d.assertExpectations(t)
	})
}

func TestMail_ListInbox(t *testing.T) {
	s, d := newMailService()
	caller := uuid.New()
	alice := model.Identity{ID: uuid.New(), Handle: "alice", Address: "alice@example.com"}
	carol := model.Identity{ID: uuid.New(), Handle: "carol", Address: "carol@example.com"}
	now := time.Now()

	envelopes := []model.Envelope{
		{ID: uuid.New(), SenderID: alice.ID, RecipientID: caller, SentAt: now},
		{ID: uuid.New(), SenderID: carol.ID, RecipientID: caller, SentAt: now.Add(-time.Minute)},
		{ID: uuid.New(), SenderID: alice.ID, RecipientID: caller, SentAt: now.Add(-time.Hour)},
	}
	d.envelopes.On("ListForRecipient", mock.Anything, caller).Return(envelopes, nil)
	d.identities.On("FindByID", mock.Anything, alice.ID).Return(alice, nil).Once()
	d.identities.On("FindByID", mock.Anything, carol.ID).Return(carol, nil).Once()

	items, err := s.ListInbox(context.Background(), caller)

	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, envelopes[0].ID, items[0].ID)
	assert.Equal(t, "alice", items[0].SenderHandle)
	assert.Equal(t, "carol@example.com", items[1].SenderAddress)
	assert.Equal(t, "alice", items[2].SenderHandle)
	d.assertExpectations(t)
}

func TestMail_ListInbox_StoreError(t *testing.T) {
	s, d := newMailService()
	caller := uuid.New()
	d.envelopes.On("ListForRecipient", mock.Anything, caller).Return(nil, errors.New("boom"))

	_, err := s.ListInbox(context.Background(), caller)

	assert.ErrorContains(t, err, "failed to list envelopes")
}

func TestMail_ReadOne(t *testing.T) {
	caller := uuid.New()

	t.Run("unread is marked once", func(t *testing.T) {
		s, d := newMailService()
		envelope := model.Envelope{ID: uuid.New(), RecipientID: caller, Subject: sealedSubject, Body: sealedBody}
		d.envelopes.On("GetForRecipient", mock.Anything, envelope.ID, caller).Return(envelope, nil)
		d.envelopes.On("MarkRead", mock.Anything, envelope.ID).Return(nil).Once()

		got, err := s.ReadOne(context.Background(), envelope.ID, caller)

		require.NoError(t, err)
		assert.True(t, got.IsRead)
		assert.Equal(t, sealedBody, got.Body)
		d.assertExpectations(t)
	})

	t.Run("already read is not marked again", func(t *testing.T) {
		s, d := newMailService()
		envelope := model.Envelope{ID: uuid.New(), RecipientID: caller, IsRead: true}
		d.envelopes.On("GetForRecipient", mock.Anything, envelope.ID, caller).Return(envelope, nil)

		got, err := s.ReadOne(context.Background(), envelope.ID, caller)

		require.NoError(t, err)
		assert.True(t, got.IsRead)
		d.envelopes.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
	})

	t.Run("someone else's mail looks missing", func(t *testing.T) {
		s, d := newMailService()
		id := uuid.New()
		d.envelopes.On("GetForRecipient", mock.Anything, id, caller).Return(model.Envelope{}, model.ErrNotFound)

		_, err := s.ReadOne(context.Background(), id, caller)

		apiErr := apierrors.FromError(err)
		assert.Equal(t, apierrors.KindNotFound, apiErr.Kind)
		assert.Equal(t, "mail not found", apiErr.Message)
	})
}

func TestMail_DecryptOne(t *testing.T) {
	params := model.DecryptParams{Ciphertext: sealedBody, PrivateKey: "key", Passphrase: "pw"}

	t.Run("passes through", func(t *testing.T) {
		s, d := newMailService()
		d.engine.On("Decrypt", mock.Anything, sealedBody, "key", []byte("pw")).Return([]byte("hello"), nil)

		got, err := s.DecryptOne(context.Background(), params)

		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), got)
		assert.NotContains(t, d.logs.String(), "hello")
		assert.NotContains(t, d.logs.String(), "pw")
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		s, d := newMailService()
		d.engine.On("Decrypt", mock.Anything, sealedBody, "key", []byte("pw")).Return(nil, pgp.ErrInvalidPassphrase)

		_, err := s.DecryptOne(context.Background(), params)

		assert.ErrorIs(t, err, pgp.ErrInvalidPassphrase)
		assert.Equal(t, codes.InvalidArgument, apierrors.FromError(err).GRPCCode)
	})

	for _, missing := range []string{"ciphertext", "key", "passphrase"} {
		t.Run("missing "+missing, func(t *testing.T) {
			s, d := newMailService()
			p := params
			switch missing {
			case "ciphertext":
				p.Ciphertext = ""
			case "key":
				p.PrivateKey = ""
			case "passphrase":
				p.Passphrase = ""
			}

			_, err := s.DecryptOne(context.Background(), p)

			assert.True(t, apierrors.Is(err, apierrors.KindValidation))
			d.assertExpectations(t)
		})
	}
}

func TestMail_OpenAttachment(t *testing.T) {
	caller := uuid.New()
	envelope := model.Envelope{
		ID:          uuid.New(),
		RecipientID: caller,
		Attachments: []model.Attachment{{Filename: "a.txt", ContentType: "text/plain", Location: "attachments/x/0", Size: 3}},
	}

	t.Run("success", func(t *testing.T) {
		s, d := newMailService()
		d.envelopes.On("GetForRecipient", mock.Anything, envelope.ID, caller).Return(envelope, nil)
		d.storage.On("Download", mock.Anything, "attachments/x/0").Return(io.NopCloser(strings.NewReader("abc")), nil)

		att, rc, err := s.OpenAttachment(context.Background(), envelope.ID, caller, 0)

		require.NoError(t, err)
		defer rc.Close()
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "a.txt", att.Filename)
		assert.Equal(t, "abc", string(content))
	})

	t.Run("index out of range", func(t *testing.T) {
		s, d := newMailService()
		d.envelopes.On("GetForRecipient", mock.Anything, envelope.ID, caller).Return(envelope, nil)

		_, _, err := s.OpenAttachment(context.Background(), envelope.ID, caller, 1)

		assert.True(t, apierrors.Is(err, apierrors.KindNotFound))
	})

	t.Run("blob missing", func(t *testing.T) {
		s, d := newMailService()
		d.envelopes.On("GetForRecipient", mock.Anything, envelope.ID, caller).Return(envelope, nil)
		d.storage.On("Download", mock.Anything, "attachments/x/0").Return(nil, model.ErrNotFound)

		_, _, err := s.OpenAttachment(context.Background(), envelope.ID, caller, 0)

		assert.True(t, apierrors.Is(err, apierrors.KindIntegrity))
	})

	t.Run("not the recipient", func(t *testing.T) {
		s, d := newMailService()
		other := uuid.New()
		d.envelopes.On("GetForRecipient", mock.Anything, envelope.ID, other).Return(model.Envelope{}, model.ErrNotFound)

		_, _, err := s.OpenAttachment(context.Background(), envelope.ID, other, 0)

		assert.True(t, apierrors.Is(err, apierrors.KindNotFound))
	})
}
