package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"

	"github.com/iudanet/snipkeeper/internal/dbx"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// uniqueViolation is the SQLSTATE of unique_violation.
const uniqueViolation = "23505"

// Dialect is the sqlstore.Dialect for PostgreSQL.
type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) GooseDialect() goose.Dialect { return goose.DialectPostgres }

func (Dialect) Migrations() fs.FS {
	sub, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		panic(err) // embedded path is fixed at compile time
	}
	return sub
}

// Rebind turns '?' placeholders into $1, $2, ...
func (Dialect) Rebind(query string) string {
	n := strings.Count(query, "?")
	if n == 0 {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + n*2)
	arg := 0
	for _, r := range query {
		if r == '?' {
			arg++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(arg))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (Dialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (Dialect) ColumnExists(ctx context.Context, db dbx.DBTX, table, column string) (bool, error) {
	var ok bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS (
		SELECT 1 FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2)`,
		table, column).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	return ok, nil
}

// DropSingleColumnUnique drops UNIQUE constraints and standalone unique
// indexes that cover only column.
func (Dialect) DropSingleColumnUnique(ctx context.Context, db dbx.DBTX, table, column string) ([]string, error) {
	constraints, err := names(ctx, db, `SELECT c.conname
		FROM pg_constraint c
		JOIN pg_class t ON t.oid = c.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attname = $2
		WHERE c.contype = 'u' AND t.relname = $1 AND n.nspname = current_schema()
		AND c.conkey = ARRAY[a.attnum]`, table, column)
	if err != nil {
		return nil, fmt.Errorf("failed to list constraints: %w", err)
	}
	for _, name := range constraints {
		stmt := fmt.Sprintf(`ALTER TABLE %s DROP CONSTRAINT %s`, quoteIdent(table), quoteIdent(name))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to drop constraint %s: %w", name, err)
		}
	}

	indexes, err := names(ctx, db, `SELECT i.relname
		FROM pg_index x
		JOIN pg_class i ON i.oid = x.indexrelid
		JOIN pg_class t ON t.oid = x.indrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attname = $2
		WHERE x.indisunique AND NOT x.indisprimary
		AND t.relname = $1 AND n.nspname = current_schema()
		AND x.indnatts = 1 AND x.indkey[0] = a.attnum
		AND NOT EXISTS (SELECT 1 FROM pg_constraint c WHERE c.conindid = x.indexrelid)`, table, column)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}
	for _, name := range indexes {
		if _, err := db.ExecContext(ctx, `DROP INDEX `+quoteIdent(name)); err != nil {
			return nil, fmt.Errorf("failed to drop index %s: %w", name, err)
		}
	}

	return append(constraints, indexes...), nil
}

func names(ctx context.Context, db dbx.DBTX, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
