package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/dtroode/pgpmail-server/database"
)

const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Connection owns the pgx pool and a database/sql view of it.
type Connection struct {
	Pool *pgxpool.Pool
	DB   *sql.DB
}

func NewConnection(ctx context.Context, dsn string) (*Connection, error) {
	conf, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection pool: %w", err)
	}

	db := openSQL(conf)

	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		pool.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Connection{
		Pool: pool,
		DB:   db,
	}, nil
}

// openSQL opens a database/sql handle sharing the pool's connection settings.
func openSQL(conf *pgxpool.Config) *sql.DB {
	return stdlib.OpenDB(*conf.ConnConfig)
}

func (c *Connection) Close() error {
	var err error
	if c.DB != nil {
		err = c.DB.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
	return err
}

func (c *Connection) Ping(ctx context.Context) error {
	if c.Pool == nil {
		return fmt.Errorf("connection pool is nil")
	}
	return c.Pool.Ping(ctx)
}

func constraintViolation(err error, code string) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr.ConstraintName, true
	}
	return "", false
}
