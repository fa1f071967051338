package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/dtroode/pgpmail-server/internal/model"
)

const (
	envelopeByIDPrefix        = "envelope/id/"
	envelopeByRecipientPrefix = "envelope/recipient/"
)

var _ model.EnvelopeStore = (*EnvelopeRepository)(nil)

type EnvelopeRepository struct {
	db *DB
}

func NewEnvelopeRepository(db *DB) *EnvelopeRepository {
	return &EnvelopeRepository{
		db: db,
	}
}

func envelopeKey(id uuid.UUID) []byte {
	return []byte(envelopeByIDPrefix + id.String())
}

func recipientPrefix(recipientID uuid.UUID) []byte {
	return []byte(envelopeByRecipientPrefix + recipientID.String() + "/")
}

// recipientIndexKey sorts newest first: the timestamp is inverted and hex
// encoded at a fixed width, so byte order is reverse chronological order.
func recipientIndexKey(e model.Envelope) []byte {
	inverted := uint64(math.MaxInt64 - e.SentAt.UnixNano())
	return fmt.Appendf(recipientPrefix(e.RecipientID), "%016x/%s", inverted, e.ID)
}

func (r *EnvelopeRepository) Append(ctx context.Context, envelope model.Envelope) (model.Envelope, error) {
	if err := envelope.Validate(); err != nil {
		return model.Envelope{}, err
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return model.Envelope{}, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	err = r.db.update(ctx, func(txn *badgerdb.Txn) error {
		if err := txn.Set(envelopeKey(envelope.ID), data); err != nil {
			return err
		}
		return txn.Set(recipientIndexKey(envelope), []byte(envelope.ID.String()))
	})
	if err != nil {
		return model.Envelope{}, fmt.Errorf("failed to append envelope: %w", err)
	}

	return envelope, nil
}

func (r *EnvelopeRepository) ListForRecipient(ctx context.Context, recipientID uuid.UUID) ([]model.Envelope, error) {
	envelopes := []model.Envelope{}

	err := r.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = recipientPrefix(recipientID)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			envelope, err := getEnvelope(txn, envelopeByIDPrefix+string(id))
			if err != nil {
				return err
			}
			envelopes = append(envelopes, envelope)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list envelopes: %w", err)
	}

	return envelopes, nil
}

// GetForRecipient returns ErrNotFound both for unknown ids and for
// envelopes addressed to someone else.
func (r *EnvelopeRepository) GetForRecipient(ctx context.Context, envelopeID, recipientID uuid.UUID) (model.Envelope, error) {
	var envelope model.Envelope
	err := r.db.View(func(txn *badgerdb.Txn) error {
		var err error
		envelope, err = getEnvelope(txn, string(envelopeKey(envelopeID)))
		return err
	})
	if err != nil {
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return model.Envelope{}, model.ErrNotFound
		}
		return model.Envelope{}, fmt.Errorf("failed to get envelope: %w", err)
	}

	if envelope.RecipientID != recipientID {
		return model.Envelope{}, model.ErrNotFound
	}

	return envelope, nil
}

func (r *EnvelopeRepository) MarkRead(ctx context.Context, envelopeID uuid.UUID) error {
	err := r.db.update(ctx, func(txn *badgerdb.Txn) error {
		key := envelopeKey(envelopeID)
		envelope, err := getEnvelope(txn, string(key))
		if err != nil {
			return err
		}
		if envelope.IsRead {
			return nil
		}

		envelope.IsRead = true
		data, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return model.ErrNotFound
		}
		return fmt.Errorf("failed to mark envelope read: %w", err)
	}

	return nil
}

func getEnvelope(txn *badgerdb.Txn, key string) (model.Envelope, error) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return model.Envelope{}, err
	}

	var envelope model.Envelope
	err = item.Value(func(v []byte) error {
		return json.Unmarshal(v, &envelope)
	})
	return envelope, err
}
