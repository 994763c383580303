package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/iudanet/snipkeeper/internal/dbx"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Dialect is the sqlstore.Dialect for SQLite.
type Dialect struct{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) GooseDialect() goose.Dialect { return goose.DialectSQLite3 }

func (Dialect) Migrations() fs.FS {
	sub, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		panic(err) // embedded path is fixed at compile time
	}
	return sub
}

// Rebind is a no-op: SQLite understands '?'.
func (Dialect) Rebind(query string) string { return query }

// IsUniqueViolation matches the driver's constraint message.
func (Dialect) IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (Dialect) ColumnExists(ctx context.Context, db dbx.DBTX, table, column string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	return n > 0, nil
}

type indexInfo struct {
	name   string
	origin string // "c" CREATE INDEX, "u" UNIQUE constraint, "pk" primary key
}

// DropSingleColumnUnique drops unique indexes on exactly column. A UNIQUE
// written inside CREATE TABLE cannot be dropped, so the table is rebuilt
// without it.
func (d Dialect) DropSingleColumnUnique(ctx context.Context, db dbx.DBTX, table, column string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, origin FROM pragma_index_list(?) WHERE "unique" = 1`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}
	var candidates []indexInfo
	for rows.Next() {
		var idx indexInfo
		if err := rows.Scan(&idx.name, &idx.origin); err != nil {
			rows.Close()
			return nil, err
		}
		if idx.origin != "pk" {
			candidates = append(candidates, idx)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	var (
		dropped []string
		rebuild bool
	)
	for _, idx := range candidates {
		cols, err := indexColumns(ctx, db, idx.name)
		if err != nil {
			return nil, err
		}
		if !slices.Equal(cols, []string{column}) {
			continue
		}
		if idx.origin == "c" {
			if _, err := db.ExecContext(ctx, `DROP INDEX `+quoteIdent(idx.name)); err != nil {
				return nil, fmt.Errorf("failed to drop index %s: %w", idx.name, err)
			}
		} else {
			rebuild = true
		}
		dropped = append(dropped, idx.name)
	}

	if rebuild {
		if err := rebuildWithoutUnique(ctx, db, table); err != nil {
			return nil, err
		}
	}
	return dropped, nil
}

func indexColumns(ctx context.Context, db dbx.DBTX, index string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM pragma_index_info(?) ORDER BY seqno`, index)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect index %s: %w", index, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name.String)
	}
	return cols, rows.Err()
}

type columnInfo struct {
	name    string
	typ     string
	dflt    sql.NullString
	notNull bool
	pk      int
}

// rebuildWithoutUnique recreates table from its column list, keeping types,
// defaults, NOT NULL and the primary key but no other constraints.
func rebuildWithoutUnique(ctx context.Context, db dbx.DBTX, table string) error {
	rows, err := db.QueryContext(ctx, `SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	var cols []columnInfo
	for rows.Next() {
		var c columnInfo
		if err := rows.Scan(&c.name, &c.typ, &c.notNull, &c.dflt, &c.pk); err != nil {
			rows.Close()
			return err
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	tmp := table + "__rebuild"
	var (
		defs  []string
		names []string
		pks   []columnInfo
	)
	for _, c := range cols {
		def := quoteIdent(c.name)
		if c.typ != "" {
			def += " " + c.typ
		}
		if c.notNull {
			def += " NOT NULL"
		}
		if c.dflt.Valid {
			def += " DEFAULT " + c.dflt.String
		}
		defs = append(defs, def)
		names = append(names, quoteIdent(c.name))
		if c.pk > 0 {
			pks = append(pks, c)
		}
	}
	if len(pks) > 0 {
		slices.SortFunc(pks, func(a, b columnInfo) int { return a.pk - b.pk })
		pkNames := make([]string, 0, len(pks))
		for _, c := range pks {
			pkNames = append(pkNames, quoteIdent(c.name))
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(pkNames, ", ")+")")
	}

	colList := strings.Join(names, ", ")
	stmts := []string{
		fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(tmp), strings.Join(defs, ", ")),
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", quoteIdent(tmp), colList, colList, quoteIdent(table)),
		fmt.Sprintf("DROP TABLE %s", quoteIdent(table)),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quoteIdent(tmp), quoteIdent(table)),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to rebuild %s: %w", table, err)
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
