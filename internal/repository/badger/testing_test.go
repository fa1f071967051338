package badger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/pgpmail-server/internal/model"
)

const armored = model.ArmoredMessageHeader + "\n\nwcBMA\n-----END PGP MESSAGE-----"

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newIdentity(handle string) model.Identity {
	now := time.Now().UTC()
	return model.Identity{
		ID:           uuid.New(),
		Handle:       handle,
		Address:      handle + "@example.com",
		PasswordHash: "hash",
		PublicKey:    "pub",
		PrivateKey:   "priv",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func newEnvelope(recipient uuid.UUID, sentAt time.Time) model.Envelope {
	return model.Envelope{
		ID:          uuid.New(),
		SenderID:    uuid.New(),
		RecipientID: recipient,
		Subject:     armored,
		Body:        armored,
		SentAt:      sentAt,
	}
}
