// Package badger stores identities and envelopes in an embedded badger
// database. It needs no external service and backs STORAGE_DRIVER=badger.
package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/dtroode/pgpmail-server/internal/logger"
)

const maxTxnRetries = 16

// DB wraps a badger database.
type DB struct {
	*badgerdb.DB
}

// Open opens the database in dir. An empty dir opens an in-memory database.
func Open(dir string, log *logger.Logger) (*DB, error) {
	opts := badgerdb.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(&badgerLogger{log: log})

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &DB{DB: db}, nil
}

// update runs fn in a read-write transaction and retries it when a
// concurrent transaction commits a conflicting write first.
func (d *DB) update(ctx context.Context, fn func(txn *badgerdb.Txn) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := d.DB.Update(fn)
		if !errors.Is(err, badgerdb.ErrConflict) || attempt >= maxTxnRetries {
			return err
		}
	}
}

func exists(txn *badgerdb.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badgerdb.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

type badgerLogger struct {
	log *logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	if l.log != nil {
		l.log.Error("Badger: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
	}
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	if l.log != nil {
		l.log.Warn("Badger: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
	}
}

func (l *badgerLogger) Infof(format string, args ...any) {
	if l.log != nil {
		l.log.Debug("Badger: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
	}
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	if l.log != nil {
		l.log.Debug("Badger: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
	}
}
