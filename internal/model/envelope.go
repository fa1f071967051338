package model

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ArmoredMessageHeader opens every armored OpenPGP message.
const ArmoredMessageHeader = "-----BEGIN PGP MESSAGE-----"

// EnvelopeStore defines persistence operations for encrypted mail.
type EnvelopeStore interface {
	Append(ctx context.Context, envelope Envelope) (Envelope, error)
	ListForRecipient(ctx context.Context, recipientID uuid.UUID) ([]Envelope, error)
	GetForRecipient(ctx context.Context, envelopeID, recipientID uuid.UUID) (Envelope, error)
	MarkRead(ctx context.Context, envelopeID uuid.UUID) error
}

// Envelope is one stored message. Subject and Body are armored ciphertext.
type Envelope struct {
	ID          uuid.UUID
	SenderID    uuid.UUID
	RecipientID uuid.UUID
	Subject     string
	Body        string
	IsRead      bool
	SentAt      time.Time
	Attachments []Attachment
}

// Validate enforces that only ciphertext reaches a store.
func (e Envelope) Validate() error {
	if !IsArmoredMessage(e.Subject) || !IsArmoredMessage(e.Body) {
		return ErrPlaintextRejected
	}
	return nil
}

// IsArmoredMessage reports whether s looks like an armored OpenPGP message.
func IsArmoredMessage(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), ArmoredMessageHeader)
}

// Attachment describes a blob stored next to an envelope. The server does
// not encrypt attachment content.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Location    string `json:"location"`
	Size        int64  `json:"size"`
}

// Storage keeps attachment blobs under the keys recorded in Attachment.Location.
type Storage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// AttachmentUpload is an attachment as supplied by the sender.
type AttachmentUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// SendParams contains parameters to send a message.
type SendParams struct {
	RecipientAddress string
	Subject          string
	Body             string
	Attachments      []AttachmentUpload
}

// SendResult acknowledges a stored envelope.
type SendResult struct {
	EnvelopeID uuid.UUID
	SentAt     time.Time
}

// DecryptParams contains parameters for an explicit decryption request.
type DecryptParams struct {
	Ciphertext string
	PrivateKey string
	Passphrase string
}

// InboxItem is an envelope together with its sender's public identity.
type InboxItem struct {
	Envelope
	SenderHandle  string
	SenderAddress string
}
