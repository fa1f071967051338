package handler

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/pgpmail-server/internal/api/grpc/proto"
	"github.com/dtroode/pgpmail-server/internal/logger"
	"github.com/dtroode/pgpmail-server/internal/model"
)

// MailService defines mail operations exposed over gRPC.
type MailService interface {
	Send(ctx context.Context, senderID uuid.UUID, params model.SendParams) (model.SendResult, error)
	ListInbox(ctx context.Context, callerID uuid.UUID) ([]model.InboxItem, error)
	ReadOne(ctx context.Context, envelopeID, callerID uuid.UUID) (model.Envelope, error)
	DecryptOne(ctx context.Context, params model.DecryptParams) ([]byte, error)
	OpenAttachment(ctx context.Context, envelopeID, callerID uuid.UUID, index int) (model.Attachment, io.ReadCloser, error)
}

// Mail handles the pgpmail.Mail service.
type Mail struct {
	service        MailService
	contextManager model.ContextManager
	logger         *logger.Logger
}

var _ proto.MailServer = (*Mail)(nil)

// NewMail creates a new Mail handler.
func NewMail(service MailService, contextManager model.ContextManager, logger *logger.Logger) *Mail {
	return &Mail{
		service:        service,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Send encrypts and stores a message for the recipient.
func (h *Mail) Send(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	senderID, err := contextIdentity(ctx, h.contextManager)
	if err != nil {
		return nil, err
	}

	attachments, err := attachmentUploads(req)
	if err != nil {
		return nil, handleError(err)
	}

	result, err := h.service.Send(ctx, senderID, model.SendParams{
		RecipientAddress: stringField(req, "recipient"),
		Subject:          stringField(req, "subject"),
		Body:             stringField(req, "body"),
		Attachments:      attachments,
	})
	if err != nil {
		h.logger.Error("Mail handler: send failed",
			"sender_id", senderID,
			"error", err.Error())
		return nil, handleError(err)
	}

	return newStruct(map[string]any{
		"envelope_id": result.EnvelopeID.String(),
		"sent_at":     timestamp(result.SentAt),
	})
}

// ListInbox returns the caller's envelopes newest first.
func (h *Mail) ListInbox(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	callerID, err := contextIdentity(ctx, h.contextManager)
	if err != nil {
		return nil, err
	}

	items, err := h.service.ListInbox(ctx, callerID)
	if err != nil {
		h.logger.Error("Mail handler: list inbox failed",
			"identity_id", callerID,
			"error", err.Error())
		return nil, handleError(err)
	}

	messages := make([]any, 0, len(items))
	for _, item := range items {
		messages = append(messages, inboxItemFields(item))
	}

	return newStruct(map[string]any{"messages": messages})
}

// ReadOne returns one of the caller's envelopes and marks it read.
func (h *Mail) ReadOne(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	callerID, err := contextIdentity(ctx, h.contextManager)
	if err != nil {
		return nil, err
	}
	envelopeID, err := uuidField(req, "id")
	if err != nil {
		return nil, handleError(err)
	}

	envelope, err := h.service.ReadOne(ctx, envelopeID, callerID)
	if err != nil {
		h.logger.Debug("Mail handler: read failed",
			"identity_id", callerID,
			"envelope_id", envelopeID,
			"error", err.Error())
		return nil, handleError(err)
	}

	return newStruct(map[string]any{"message": envelopeFields(envelope)})
}

// Decrypt decrypts ciphertext with caller-supplied key material. The result
// always carries plaintext_base64; plaintext is set only for valid UTF-8.
func (h *Mail) Decrypt(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	plaintext, err := h.service.DecryptOne(ctx, model.DecryptParams{
		Ciphertext: stringField(req, "ciphertext"),
		PrivateKey: stringField(req, "private_key"),
		Passphrase: stringField(req, "passphrase"),
	})
	if err != nil {
		h.logger.Debug("Mail handler: decrypt failed",
			"error", err.Error())
		return nil, handleError(err)
	}

	fields := map[string]any{
		"plaintext_base64": base64.StdEncoding.EncodeToString(plaintext),
	}
	if utf8.Valid(plaintext) {
		fields["plaintext"] = string(plaintext)
	}

	return newStruct(fields)
}

// OpenAttachment returns one attachment of one of the caller's envelopes,
// base64 encoded.
func (h *Mail) OpenAttachment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	callerID, err := contextIdentity(ctx, h.contextManager)
	if err != nil {
		return nil, err
	}
	envelopeID, err := uuidField(req, "id")
	if err != nil {
		return nil, handleError(err)
	}
	index, err := indexField(req, "index")
	if err != nil {
		return nil, handleError(err)
	}

	attachment, content, err := h.service.OpenAttachment(ctx, envelopeID, callerID, index)
	if err != nil {
		h.logger.Error("Mail handler: open attachment failed",
			"identity_id", callerID,
			"envelope_id", envelopeID,
			"error", err.Error())
		return nil, handleError(err)
	}
	defer content.Close()

	data, err := io.ReadAll(content)
	if err != nil {
		return nil, handleError(fmt.Errorf("failed to read attachment: %w", err))
	}

	return newStruct(map[string]any{
		"filename":     attachment.Filename,
		"content_type": attachment.ContentType,
		"size":         len(data),
		"content":      base64.StdEncoding.EncodeToString(data),
	})
}
