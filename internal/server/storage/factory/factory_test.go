package factory

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/snipkeeper/internal/server/storage"
	"github.com/iudanet/snipkeeper/internal/server/storage/kvstore"
	"github.com/iudanet/snipkeeper/internal/server/storage/sqlstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConfig_Resolve(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "empty defaults to sqlite", cfg: Config{}, want: BackendSQLite},
		{name: "auto without url", cfg: Config{Backend: BackendAuto}, want: BackendSQLite},
		{name: "auto with url", cfg: Config{Backend: BackendAuto, DatabaseURL: "postgres://x"}, want: BackendPostgres},
		{name: "explicit wins", cfg: Config{Backend: BackendBolt, DatabaseURL: "postgres://x"}, want: BackendBolt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Resolve())
		})
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		check   func(t *testing.T, s storage.Store, dir string)
		name    string
		backend string
	}{
		{
			name:    "sqlite under data dir",
			backend: BackendAuto,
			check: func(t *testing.T, s storage.Store, dir string) {
				assert.IsType(t, &sqlstore.Store{}, s)
				assert.FileExists(t, filepath.Join(dir, DefaultSQLiteFile))
			},
		},
		{
			name:    "bolt under data dir",
			backend: BackendBolt,
			check: func(t *testing.T, s storage.Store, dir string) {
				assert.IsType(t, &kvstore.Store{}, s)
				assert.FileExists(t, filepath.Join(dir, DefaultBoltFile))
			},
		},
		{
			name:    "flat files",
			backend: BackendFile,
			check: func(t *testing.T, s storage.Store, dir string) {
				_, err := s.CreateFolder(context.Background(), "Work", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
				require.NoError(t, err)
				assert.FileExists(t, filepath.Join(dir, "folders.json"))
			},
		},
		{
			name:    "memory",
			backend: BackendMemory,
			check: func(t *testing.T, s storage.Store, dir string) {
				entries, err := os.ReadDir(dir)
				require.NoError(t, err)
				assert.Empty(t, entries)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			dir := filepath.Join(t.TempDir(), "data")
			require.NoError(t, os.MkdirAll(dir, 0o700))

			s, err := Open(ctx, Config{Backend: tt.backend, DataDir: dir}, testLogger())
			require.NoError(t, err)
			defer s.Close()

			require.NoError(t, s.Ping(ctx))
			tt.check(t, s, dir)
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Config{Backend: "mongo"}, testLogger())
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = Open(ctx, Config{Backend: BackendPostgres}, testLogger())
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	_, err = Open(ctx, Config{Backend: BackendSQLite, SQLitePath: filepath.Join(blocker, "db.sqlite")}, testLogger())
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}
