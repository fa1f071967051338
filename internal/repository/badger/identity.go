package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/dtroode/pgpmail-server/internal/model"
)

const (
	identityByIDPrefix      = "identity/id/"
	identityByAddressPrefix = "identity/address/"
	identityByHandlePrefix  = "identity/handle/"
)

var _ model.IdentityStore = (*IdentityRepository)(nil)

type IdentityRepository struct {
	db *DB
}

func NewIdentityRepository(db *DB) *IdentityRepository {
	return &IdentityRepository{
		db: db,
	}
}

// Create writes the identity and both uniqueness index entries in one
// transaction. Two racing creates read the same index key, so one of them
// conflicts on commit and sees the winner's entry when retried.
func (r *IdentityRepository) Create(ctx context.Context, identity model.Identity) (model.Identity, error) {
	if err := identity.Validate(); err != nil {
		return model.Identity{}, err
	}

	data, err := json.Marshal(identity)
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to marshal identity: %w", err)
	}

	idKey := []byte(identityByIDPrefix + identity.ID.String())
	addressKey := []byte(identityByAddressPrefix + identity.Address)
	handleKey := []byte(identityByHandlePrefix + identity.Handle)

	err = r.db.update(ctx, func(txn *badgerdb.Txn) error {
		taken, err := exists(txn, addressKey)
		if err != nil {
			return err
		}
		if taken {
			return model.ErrDuplicateAddress
		}

		taken, err = exists(txn, handleKey)
		if err != nil {
			return err
		}
		if taken {
			return model.ErrDuplicateHandle
		}

		if err := txn.Set(idKey, data); err != nil {
			return err
		}
		if err := txn.Set(addressKey, []byte(identity.ID.String())); err != nil {
			return err
		}
		return txn.Set(handleKey, []byte(identity.ID.String()))
	})
	if err != nil {
		if errors.Is(err, model.ErrDuplicateAddress) || errors.Is(err, model.ErrDuplicateHandle) {
			return model.Identity{}, err
		}
		return model.Identity{}, fmt.Errorf("failed to create identity: %w", err)
	}

	return identity, nil
}

func (r *IdentityRepository) FindByID(ctx context.Context, id uuid.UUID) (model.Identity, error) {
	var identity model.Identity
	err := r.db.View(func(txn *badgerdb.Txn) error {
		var err error
		identity, err = getIdentity(txn, id.String())
		return err
	})
	if err != nil {
		return model.Identity{}, wrapFind(err, "id")
	}

	return identity, nil
}

func (r *IdentityRepository) FindByAddress(ctx context.Context, address string) (model.Identity, error) {
	return r.findByIndex(identityByAddressPrefix+address, "address")
}

func (r *IdentityRepository) FindByHandle(ctx context.Context, handle string) (model.Identity, error) {
	return r.findByIndex(identityByHandlePrefix+handle, "handle")
}

func (r *IdentityRepository) findByIndex(indexKey, by string) (model.Identity, error) {
	var identity model.Identity
	err := r.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(indexKey))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		identity, err = getIdentity(txn, string(id))
		return err
	})
	if err != nil {
		return model.Identity{}, wrapFind(err, by)
	}

	return identity, nil
}

func getIdentity(txn *badgerdb.Txn, id string) (model.Identity, error) {
	item, err := txn.Get([]byte(identityByIDPrefix + id))
	if err != nil {
		return model.Identity{}, err
	}

	var identity model.Identity
	err = item.Value(func(v []byte) error {
		return json.Unmarshal(v, &identity)
	})
	return identity, err
}

func wrapFind(err error, by string) error {
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return model.ErrNotFound
	}
	return fmt.Errorf("failed to get identity by %s: %w", by, err)
}
