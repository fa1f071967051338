package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/pgpmail-server/internal/model"
)

const envelopeColumns = `id, sender_id, recipient_id, subject, body, is_read, sent_at, attachments`

var _ model.EnvelopeStore = (*EnvelopeRepository)(nil)

type EnvelopeRepository struct {
	db DBTX
}

func NewEnvelopeRepository(db DBTX) *EnvelopeRepository {
	return &EnvelopeRepository{
		db: db,
	}
}

func (r *EnvelopeRepository) Append(ctx context.Context, envelope model.Envelope) (model.Envelope, error) {
	if err := envelope.Validate(); err != nil {
		return model.Envelope{}, err
	}

	attachments := envelope.Attachments
	if attachments == nil {
		attachments = []model.Attachment{}
	}
	rawAttachments, err := json.Marshal(attachments)
	if err != nil {
		return model.Envelope{}, fmt.Errorf("failed to marshal attachments: %w", err)
	}

	query := `INSERT INTO envelopes (` + envelopeColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING ` + envelopeColumns

	saved, err := scanEnvelope(r.db.QueryRowContext(ctx, query,
		envelope.ID, envelope.SenderID, envelope.RecipientID, envelope.Subject, envelope.Body,
		envelope.IsRead, envelope.SentAt, string(rawAttachments),
	))
	if err != nil {
		if _, ok := constraintViolation(err, checkViolation); ok {
			return model.Envelope{}, model.ErrPlaintextRejected
		}
		return model.Envelope{}, fmt.Errorf("failed to append envelope: %w", err)
	}

	return saved, nil
}

func (r *EnvelopeRepository) ListForRecipient(ctx context.Context, recipientID uuid.UUID) ([]model.Envelope, error) {
	query := `SELECT ` + envelopeColumns + `
			  FROM envelopes
			  WHERE recipient_id = $1
			  ORDER BY sent_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list envelopes: %w", err)
	}
	defer rows.Close()

	envelopes := []model.Envelope{}
	for rows.Next() {
		envelope, err := scanEnvelope(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan envelope: %w", err)
		}
		envelopes = append(envelopes, envelope)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate envelopes: %w", err)
	}

	return envelopes, nil
}

// GetForRecipient returns ErrNotFound both for unknown ids and for
// envelopes addressed to someone else.
func (r *EnvelopeRepository) GetForRecipient(ctx context.Context, envelopeID, recipientID uuid.UUID) (model.Envelope, error) {
	query := `SELECT ` + envelopeColumns + ` FROM envelopes WHERE id = $1 AND recipient_id = $2`

	envelope, err := scanEnvelope(r.db.QueryRowContext(ctx, query, envelopeID, recipientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Envelope{}, model.ErrNotFound
		}
		return model.Envelope{}, fmt.Errorf("failed to get envelope: %w", err)
	}

	return envelope, nil
}

func (r *EnvelopeRepository) MarkRead(ctx context.Context, envelopeID uuid.UUID) error {
	const query = `UPDATE envelopes SET is_read = TRUE WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, envelopeID)
	if err != nil {
		return fmt.Errorf("failed to mark envelope read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark envelope read: %w", err)
	}
	if affected == 0 {
		return model.ErrNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEnvelope(row scanner) (model.Envelope, error) {
	var (
		e              model.Envelope
		rawAttachments []byte
	)
	err := row.Scan(
		&e.ID, &e.SenderID, &e.RecipientID, &e.Subject, &e.Body,
		&e.IsRead, &e.SentAt, &rawAttachments,
	)
	if err != nil {
		return model.Envelope{}, err
	}

	if len(rawAttachments) > 0 {
		if err := json.Unmarshal(rawAttachments, &e.Attachments); err != nil {
			return model.Envelope{}, fmt.Errorf("failed to unmarshal attachments: %w", err)
		}
	}

	return e, nil
}
