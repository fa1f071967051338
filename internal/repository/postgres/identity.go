package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/pgpmail-server/internal/model"
)

const identityColumns = `id, handle, address, password_hash, public_key, private_key, created_at, updated_at`

var _ model.IdentityStore = (*IdentityRepository)(nil)

type IdentityRepository struct {
	db DBTX
}

func NewIdentityRepository(db DBTX) *IdentityRepository {
	return &IdentityRepository{
		db: db,
	}
}

// Create inserts identity. Uniqueness of address and handle is enforced by
// the table constraints, so concurrent creates cannot both succeed.
func (r *IdentityRepository) Create(ctx context.Context, identity model.Identity) (model.Identity, error) {
	if err := identity.Validate(); err != nil {
		return model.Identity{}, err
	}

	query := `INSERT INTO identities (` + identityColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING ` + identityColumns

	saved, err := scanIdentity(r.db.QueryRowContext(ctx, query,
		identity.ID, identity.Handle, identity.Address, identity.PasswordHash,
		identity.PublicKey, identity.PrivateKey, identity.CreatedAt, identity.UpdatedAt,
	))
	if err != nil {
		if constraint, ok := constraintViolation(err, uniqueViolation); ok {
			switch constraint {
			case "identities_address_key":
				return model.Identity{}, model.ErrDuplicateAddress
			case "identities_handle_key":
				return model.Identity{}, model.ErrDuplicateHandle
			}
		}
		if _, ok := constraintViolation(err, checkViolation); ok {
			return model.Identity{}, model.ErrIncompleteKeyMaterial
		}
		return model.Identity{}, fmt.Errorf("failed to create identity: %w", err)
	}

	return saved, nil
}

func (r *IdentityRepository) FindByID(ctx context.Context, id uuid.UUID) (model.Identity, error) {
	return r.findBy(ctx, "id", id)
}

func (r *IdentityRepository) FindByAddress(ctx context.Context, address string) (model.Identity, error) {
	return r.findBy(ctx, "address", address)
}

func (r *IdentityRepository) FindByHandle(ctx context.Context, handle string) (model.Identity, error) {
	return r.findBy(ctx, "handle", handle)
}

// column is never user input.
func (r *IdentityRepository) findBy(ctx context.Context, column string, value any) (model.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE ` + column + ` = $1`

	identity, err := scanIdentity(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Identity{}, model.ErrNotFound
		}
		return model.Identity{}, fmt.Errorf("failed to get identity by %s: %w", column, err)
	}

	return identity, nil
}

func scanIdentity(row *sql.Row) (model.Identity, error) {
	var i model.Identity
	err := row.Scan(
		&i.ID, &i.Handle, &i.Address, &i.PasswordHash,
		&i.PublicKey, &i.PrivateKey, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}
