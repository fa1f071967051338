package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/pgpmail-server/internal/apierrors"
	"github.com/dtroode/pgpmail-server/internal/logger"
	"github.com/dtroode/pgpmail-server/internal/model"
)

// Mail encrypts outbound mail for its recipient and serves stored
// ciphertext back to the recipient.
type Mail struct {
	identities model.IdentityStore
	envelopes  model.EnvelopeStore
	engine     model.CryptoEngine
	storage    model.Storage
	logger     *logger.Logger
}

// NewMail creates the mail service. storage may be nil, in which case
// attachments are refused.
func NewMail(
	identities model.IdentityStore,
	envelopes model.EnvelopeStore,
	engine model.CryptoEngine,
	storage model.Storage,
	logger *logger.Logger,
) *Mail {
	return &Mail{
		identities: identities,
		envelopes:  envelopes,
		engine:     engine,
		storage:    storage,
		logger:     logger,
	}
}

func attachmentKey(envelopeID uuid.UUID, index int) string {
	return fmt.Sprintf("attachments/%s/%d", envelopeID, index)
}

// Send encrypts subject and body for the recipient and stores the envelope.
// Plaintext is never persisted or logged.
func (s *Mail) Send(ctx context.Context, senderID uuid.UUID, params model.SendParams) (model.SendResult, error) {
	address := normalizeAddress(params.RecipientAddress)
	if address == "" || params.Subject == "" || params.Body == "" {
		return model.SendResult{}, apierrors.NewErrValidation("recipient address, subject and body are required")
	}
	if len(params.Attachments) > 0 && s.storage == nil {
		return model.SendResult{}, apierrors.NewErrValidation("attachments are not supported")
	}
	for _, a := range params.Attachments {
		if strings.TrimSpace(a.Filename) == "" {
			return model.SendResult{}, apierrors.NewErrValidation("attachment filename is required")
		}
	}

	recipient, err := s.identities.FindByAddress(ctx, address)
	if errors.Is(err, model.ErrNotFound) {
		return model.SendResult{}, apierrors.NewErrRecipientNotFound(address)
	}
	if err != nil {
		return model.SendResult{}, fmt.Errorf("failed to get recipient by address: %w", err)
	}
	if recipient.PublicKey == "" {
		s.logger.Error("Mail service: recipient has no public key",
			"recipient_id", recipient.ID)
		return model.SendResult{}, apierrors.NewErrRecipientHasNoKey(address)
	}

	subject, err := s.seal(ctx, params.Subject, recipient.PublicKey)
	if err != nil {
		return model.SendResult{}, fmt.Errorf("failed to encrypt subject: %w", err)
	}
	body, err := s.seal(ctx, params.Body, recipient.PublicKey)
	if err != nil {
		return model.SendResult{}, fmt.Errorf("failed to encrypt body: %w", err)
	}

	envelope := model.Envelope{
		ID:          uuid.New(),
		SenderID:    senderID,
		RecipientID: recipient.ID,
		Subject:     subject,
		Body:        body,
		SentAt:      time.Now().UTC(),
	}

	envelope.Attachments, err = s.uploadAttachments(ctx, envelope.ID, params.Attachments)
	if err != nil {
		return model.SendResult{}, err
	}

	saved, err := s.envelopes.Append(ctx, envelope)
	if err != nil {
		s.logger.Error("Mail service: failed to append envelope",
			"envelope_id", envelope.ID,
			"error", err.Error())
		s.removeAttachments(envelope.Attachments)
		return model.SendResult{}, fmt.Errorf("failed to append envelope: %w", err)
	}

	s.logger.Info("Mail service: envelope stored",
		"envelope_id", saved.ID,
		"sender_id", senderID,
		"recipient_id", recipient.ID,
		"attachments", len(saved.Attachments))

	return model.SendResult{
		EnvelopeID: saved.ID,
		SentAt:     saved.SentAt,
	}, nil
}

// seal encrypts plaintext and checks that the result is ciphertext.
func (s *Mail) seal(ctx context.Context, plaintext, publicKey string) (string, error) {
	ciphertext, err := s.engine.Encrypt(ctx, []byte(plaintext), publicKey)
	if err != nil {
		return "", err
	}
	if !model.IsArmoredMessage(ciphertext) || ciphertext == plaintext {
		return "", apierrors.NewErrIntegrity("encryption produced no ciphertext", model.ErrPlaintextRejected)
	}
	return ciphertext, nil
}

func (s *Mail) uploadAttachments(ctx context.Context, envelopeID uuid.UUID, uploads []model.AttachmentUpload) ([]model.Attachment, error) {
	attachments := make([]model.Attachment, 0, len(uploads))
	for i, upload := range uploads {
		attachment := model.Attachment{
			Filename:    strings.TrimSpace(upload.Filename),
			ContentType: upload.ContentType,
			Location:    attachmentKey(envelopeID, i),
			Size:        int64(len(upload.Content)),
		}
		if attachment.ContentType == "" {
			attachment.ContentType = "application/octet-stream"
		}

		err := s.storage.Upload(ctx, attachment.Location, bytes.NewReader(upload.Content), attachment.Size, attachment.ContentType)
		if err != nil {
			s.removeAttachments(attachments)
			return nil, fmt.Errorf("failed to upload attachment: %w", err)
		}
		attachments = append(attachments, attachment)
	}
	return attachments, nil
}

// removeAttachments runs detached from the request so cleanup still happens
// when the request context is already done.
func (s *Mail) removeAttachments(attachments []model.Attachment) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, a := range attachments {
		if err := s.storage.Delete(ctx, a.Location); err != nil {
			s.logger.Error("Mail service: failed to delete orphaned attachment",
				"location", a.Location,
				"error", err.Error())
		}
	}
}

// ListInbox returns the caller's envelopes newest first with sender details.
func (s *Mail) ListInbox(ctx context.Context, callerID uuid.UUID) ([]model.InboxItem, error) {
	envelopes, err := s.envelopes.ListForRecipient(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list envelopes: %w", err)
	}

	senders := make(map[uuid.UUID]model.Identity)
	items := make([]model.InboxItem, 0, len(envelopes))
	for _, envelope := range envelopes {
		sender, ok := senders[envelope.SenderID]
		if !ok {
			sender, err = s.identities.FindByID(ctx, envelope.SenderID)
			if err != nil && !errors.Is(err, model.ErrNotFound) {
				return nil, fmt.Errorf("failed to get sender by id: %w", err)
			}
			senders[envelope.SenderID] = sender
		}

		items = append(items, model.InboxItem{
			Envelope:      envelope,
			SenderHandle:  sender.Handle,
			SenderAddress: sender.Address,
		})
	}

	return items, nil
}

// ReadOne returns one of the caller's envelopes and marks it read. Envelopes
// addressed to someone else are reported exactly like missing ones.
func (s *Mail) ReadOne(ctx context.Context, envelopeID, callerID uuid.UUID) (model.Envelope, error) {
	envelope, err := s.getForRecipient(ctx, envelopeID, callerID)
	if err != nil {
		return model.Envelope{}, err
	}

	if !envelope.IsRead {
		if err := s.envelopes.MarkRead(ctx, envelope.ID); err != nil {
			return model.Envelope{}, fmt.Errorf("failed to mark envelope read: %w", err)
		}
		envelope.IsRead = true
	}

	return envelope, nil
}

// DecryptOne decrypts ciphertext with caller-supplied key material. Nothing
// about the request or its result is stored or logged.
func (s *Mail) DecryptOne(ctx context.Context, params model.DecryptParams) ([]byte, error) {
	if params.Ciphertext == "" || params.PrivateKey == "" || params.Passphrase == "" {
		return nil, apierrors.NewErrValidation("ciphertext, private key and passphrase are required")
	}

	plaintext, err := s.engine.Decrypt(ctx, params.Ciphertext, params.PrivateKey, []byte(params.Passphrase))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt message: %w", err)
	}

	return plaintext, nil
}

// OpenAttachment streams one attachment of one of the caller's envelopes.
// The caller must close the returned reader.
func (s *Mail) OpenAttachment(ctx context.Context, envelopeID, callerID uuid.UUID, index int) (model.Attachment, io.ReadCloser, error) {
	envelope, err := s.getForRecipient(ctx, envelopeID, callerID)
	if err != nil {
		return model.Attachment{}, nil, err
	}
	if index < 0 || index >= len(envelope.Attachments) || s.storage == nil {
		return model.Attachment{}, nil, apierrors.NewErrMailNotFound()
	}

	attachment := envelope.Attachments[index]
	content, err := s.storage.Download(ctx, attachment.Location)
	if errors.Is(err, model.ErrNotFound) {
		s.logger.Error("Mail service: attachment content missing",
			"envelope_id", envelopeID,
			"location", attachment.Location)
		return model.Attachment{}, nil, apierrors.NewErrIntegrity("attachment content is missing", err)
	}
	if err != nil {
		return model.Attachment{}, nil, fmt.Errorf("failed to download attachment: %w", err)
	}

	return attachment, content, nil
}

func (s *Mail) getForRecipient(ctx context.Context, envelopeID, callerID uuid.UUID) (model.Envelope, error) {
	envelope, err := s.envelopes.GetForRecipient(ctx, envelopeID, callerID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Envelope{}, apierrors.NewErrMailNotFound()
	}
	if err != nil {
		return model.Envelope{}, fmt.Errorf("failed to get envelope: %w", err)
	}
	return envelope, nil
}
