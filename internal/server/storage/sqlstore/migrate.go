package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/iudanet/snipkeeper/internal/dbx"
	"github.com/iudanet/snipkeeper/internal/server/storage"
)

// repairVersion is the goose version of the Go migration that upgrades
// older schemas. The embedded SQL files own the versions below it.
const repairVersion = 2

var entityTables = []string{"folders", "snippets", "clipboard_items"}

// indexes are created with IF NOT EXISTS once user_id is guaranteed.
var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_folders_user_id ON folders (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_snippets_user_id ON snippets (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_snippets_trigger ON snippets ("trigger")`,
	`CREATE INDEX IF NOT EXISTS idx_snippets_folder_id ON snippets (folder_id)`,
	`CREATE INDEX IF NOT EXISTS idx_clipboard_items_user_id ON clipboard_items (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_clipboard_items_created_at ON clipboard_items (created_at)`,
}

var uniqueIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_folders_user_name ON folders (user_id, name)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_snippets_user_trigger ON snippets (user_id, "trigger")`,
}

// Migrate brings db to the current schema. Tables come from the dialect's
// embedded goose files; the repair migration then fixes older layouts. Every
// step checks before it changes anything, so a rerun after a failure
// resumes where the last one stopped.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect, logger *slog.Logger) error {
	m := &migrator{
		dialect: dialect,
		logger:  logger,
		store:   &Store{dialect: dialect, now: time.Now},
	}

	repair := goose.NewGoMigration(repairVersion, &goose.GoFunc{
		RunTx: func(ctx context.Context, tx *sql.Tx) error {
			return m.repair(ctx, tx)
		},
	}, nil)

	provider, err := goose.NewProvider(dialect.GooseDialect(), db, dialect.Migrations(),
		goose.WithGoMigrations(repair),
	)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	for _, r := range results {
		logger.InfoContext(ctx, "Migration applied",
			slog.String("dialect", dialect.Name()),
			slog.Int64("version", r.Source.Version),
			slog.Duration("duration", r.Duration),
		)
	}
	return nil
}

type migrator struct {
	dialect Dialect
	logger  *slog.Logger
	store   *Store
}

func (m *migrator) repair(ctx context.Context, tx dbx.DBTX) error {
	steps := []struct {
		name string
		run  func(context.Context, dbx.DBTX) error
	}{
		{"add missing user_id columns", m.addUserIDColumns},
		{"drop legacy unique constraints", m.dropLegacyUnique},
		{"create indexes", m.createIndexes},
		{"backfill general folders", m.backfillGeneral},
		{"flatten nested folders", m.flattenFolders},
		{"create unique indexes", m.createUniqueIndexes},
	}
	for _, step := range steps {
		if err := step.run(ctx, tx); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return nil
}

func (m *migrator) addUserIDColumns(ctx context.Context, tx dbx.DBTX) error {
	for _, table := range entityTables {
		ok, err := m.dialect.ColumnExists(ctx, tx, table, "user_id")
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN user_id TEXT NOT NULL DEFAULT '%s'`, table, storage.LegacyUserID)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", table, err)
		}
		m.logger.WarnContext(ctx, "Added user_id column to legacy table",
			slog.String("table", table),
			slog.String("placeholder", storage.LegacyUserID),
		)
	}
	return nil
}

func (m *migrator) dropLegacyUnique(ctx context.Context, tx dbx.DBTX) error {
	for _, target := range []struct{ table, column string }{
		{"folders", "name"},
		{"snippets", "trigger"},
	} {
		dropped, err := m.dialect.DropSingleColumnUnique(ctx, tx, target.table, target.column)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", target.table, target.column, err)
		}
		if len(dropped) > 0 {
			m.logger.WarnContext(ctx, "Dropped legacy unique constraint",
				slog.String("table", target.table),
				slog.String("column", target.column),
				slog.Any("constraints", dropped),
			)
		}
	}
	return nil
}

func (m *migrator) createIndexes(ctx context.Context, tx dbx.DBTX) error {
	for _, stmt := range indexes {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (m *migrator) createUniqueIndexes(ctx context.Context, tx dbx.DBTX) error {
	for _, stmt := range uniqueIndexes {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// backfillGeneral gives every owner a General folder and points snippets
// without a folder at it.
func (m *migrator) backfillGeneral(ctx context.Context, tx dbx.DBTX) error {
	owners, err := queryStrings(ctx, tx, `SELECT user_id FROM folders
		UNION SELECT user_id FROM snippets WHERE folder_id IS NULL`)
	if err != nil {
		return err
	}

	for _, owner := range owners {
		general, err := m.store.ensureGeneral(ctx, tx, owner)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			m.dialect.Rebind(`UPDATE snippets SET folder_id = ? WHERE user_id = ? AND folder_id IS NULL`),
			general.ID, owner)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			m.logger.InfoContext(ctx, "Moved unassigned snippets to General",
				slog.String("user_id", shortID(owner)),
				slog.Int64("snippets", n),
			)
		}
	}
	return nil
}

// flattenFolders removes folders that have a parent, moving their snippets
// to the owner's General folder.
func (m *migrator) flattenFolders(ctx context.Context, tx dbx.DBTX) error {
	ok, err := m.dialect.ColumnExists(ctx, tx, "folders", "parent_id")
	if err != nil || !ok {
		return err
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, user_id FROM folders WHERE parent_id IS NOT NULL`)
	if err != nil {
		return err
	}
	type nested struct{ id, owner string }
	var folders []nested
	for rows.Next() {
		var n nested
		if err := rows.Scan(&n.id, &n.owner); err != nil {
			rows.Close()
			return err
		}
		folders = append(folders, n)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, f := range folders {
		general, err := m.store.ensureGeneral(ctx, tx, f.owner)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			m.dialect.Rebind(`UPDATE snippets SET folder_id = ? WHERE folder_id = ?`), general.ID, f.id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, m.dialect.Rebind(`DELETE FROM folders WHERE id = ?`), f.id); err != nil {
			return err
		}
	}
	if len(folders) > 0 {
		m.logger.WarnContext(ctx, "Flattened nested folders", slog.Int("folders", len(folders)))
	}
	return nil
}

func queryStrings(ctx context.Context, tx dbx.DBTX, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// shortID trims a user id for logs.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
