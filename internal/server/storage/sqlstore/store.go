// Package sqlstore implements storage.Store over database/sql. The sqlite and
// postgres backends supply a Dialect and share all queries and invariants.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/iudanet/snipkeeper/internal/dbx"
	"github.com/iudanet/snipkeeper/internal/server/storage"
)

// Dialect captures what differs between SQL engines.
type Dialect interface {
	// Name is used in logs and errors
	Name() string

	// GooseDialect selects the goose query set for the version table
	GooseDialect() goose.Dialect

	// Migrations returns the embedded goose SQL files at the root of the FS
	Migrations() fs.FS

	// Rebind converts '?' placeholders to the engine's syntax
	Rebind(query string) string

	// IsUniqueViolation reports a unique constraint failure
	IsUniqueViolation(err error) bool

	// ColumnExists reports whether table has column
	ColumnExists(ctx context.Context, db dbx.DBTX, table, column string) (bool, error)

	// DropSingleColumnUnique removes unique constraints or indexes that
	// cover only column of table. It returns the names it dropped.
	DropSingleColumnUnique(ctx context.Context, db dbx.DBTX, table, column string) ([]string, error)
}

// Store is the shared SQL backend.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New wraps an open, migrated database. The Store owns db.
func New(db *sql.DB, dialect Dialect, opts ...storage.Option) *Store {
	o := storage.ApplyOptions(opts)
	return &Store{db: db, dialect: dialect, now: o.Now}
}

// DB returns the underlying database connection for testing purposes
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return storage.Unavailable("ping "+s.dialect.Name(), s.db.PingContext(ctx))
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) q(query string) string {
	return s.dialect.Rebind(query)
}

func (s *Store) millis() int64 {
	return storage.Timestamp(s.now()).UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func (s *Store) withTx(ctx context.Context, op string, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return classify(op, dbx.WithTx(ctx, s.db, nil, fn))
}

// classify keeps domain errors intact and marks driver failures unavailable.
func classify(op string, err error) error {
	if err == nil || storage.IsClientError(err) || errors.Is(err, storage.ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return storage.Unavailable(op, err)
}

type scanner interface {
	Scan(dest ...any) error
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func countQuery(ctx context.Context, tx dbx.DBTX, query string, args ...any) (int, error) {
	var n int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
