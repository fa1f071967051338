package handler

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/pgpmail-server/internal/apierrors"
	"github.com/dtroode/pgpmail-server/internal/model"
)

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

func uuidField(req *structpb.Struct, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(stringField(req, name))
	if err != nil {
		return uuid.Nil, apierrors.NewErrValidation(fmt.Sprintf("%s must be a valid id", name))
	}
	return id, nil
}

func indexField(req *structpb.Struct, name string) (int, error) {
	v, ok := req.GetFields()[name].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, apierrors.NewErrValidation(fmt.Sprintf("%s is required", name))
	}
	n := v.NumberValue
	if n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
		return 0, apierrors.NewErrValidation(fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return int(n), nil
}

func attachmentUploads(req *structpb.Struct) ([]model.AttachmentUpload, error) {
	values := req.GetFields()["attachments"].GetListValue().GetValues()
	if len(values) == 0 {
		return nil, nil
	}

	uploads := make([]model.AttachmentUpload, 0, len(values))
	for i, v := range values {
		fields := v.GetStructValue()
		if fields == nil {
			return nil, apierrors.NewErrValidation(fmt.Sprintf("attachment %d must be an object", i))
		}
		content, err := base64.StdEncoding.DecodeString(stringField(fields, "content"))
		if err != nil {
			return nil, apierrors.NewErrValidation(fmt.Sprintf("attachment %d content must be base64", i))
		}
		uploads = append(uploads, model.AttachmentUpload{
			Filename:    stringField(fields, "filename"),
			ContentType: stringField(fields, "content_type"),
			Content:     content,
		})
	}
	return uploads, nil
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func profileFields(p model.Profile) map[string]any {
	return map[string]any{
		"id":         p.ID.String(),
		"handle":     p.Handle,
		"address":    p.Address,
		"public_key": p.PublicKey,
		"created_at": timestamp(p.CreatedAt),
	}
}

func sessionFields(s model.Session) map[string]any {
	return map[string]any{
		"profile":      profileFields(s.Profile),
		"access_token": s.AccessToken,
	}
}

// envelopeFields projects an envelope. Storage locations stay internal;
// attachments are addressed by index.
func envelopeFields(e model.Envelope) map[string]any {
	attachments := make([]any, 0, len(e.Attachments))
	for i, a := range e.Attachments {
		attachments = append(attachments, map[string]any{
			"index":        i,
			"filename":     a.Filename,
			"content_type": a.ContentType,
			"size":         a.Size,
		})
	}

	return map[string]any{
		"id":           e.ID.String(),
		"sender_id":    e.SenderID.String(),
		"recipient_id": e.RecipientID.String(),
		"subject":      e.Subject,
		"body":         e.Body,
		"is_read":      e.IsRead,
		"sent_at":      timestamp(e.SentAt),
		"attachments":  attachments,
	}
}

func inboxItemFields(item model.InboxItem) map[string]any {
	fields := envelopeFields(item.Envelope)
	fields["sender_handle"] = item.SenderHandle
	fields["sender_address"] = item.SenderAddress
	return fields
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, handleError(fmt.Errorf("failed to build response: %w", err))
	}
	return out, nil
}

// contextIdentity returns the identity the authenticate middleware stored.
func contextIdentity(ctx context.Context, cm model.ContextManager) (uuid.UUID, error) {
	identityID, ok := cm.GetIdentityIDFromContext(ctx)
	if !ok {
		return uuid.Nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	return identityID, nil
}
