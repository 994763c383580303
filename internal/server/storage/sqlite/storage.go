// Package sqlite is the embedded SQL backend on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/iudanet/snipkeeper/internal/server/storage"
	"github.com/iudanet/snipkeeper/internal/server/storage/sqlstore"
)

// New opens the database at dbPath, runs migrations and returns a ready Store.
// Use ":memory:" for an in-memory database (useful for testing).
func New(ctx context.Context, dbPath string, logger *slog.Logger, opts ...storage.Option) (*sqlstore.Store, error) {
	db, err := Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	// Запускаем миграции
	if err := sqlstore.Migrate(ctx, db, Dialect{}, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return sqlstore.New(db, Dialect{}, opts...), nil
}

// Open opens the database and applies the connection pragmas without migrating.
func Open(ctx context.Context, dbPath string) (*sql.DB, error) {
	// Открываем соединение с БД
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Проверяем соединение
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite с WAL mode может поддерживать несколько читателей, но только одного писателя.
	// Одно соединение к тому же сохраняет ":memory:" базу между запросами.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Включаем WAL mode и другие оптимизации
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	return db, nil
}
