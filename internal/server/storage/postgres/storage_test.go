package postgres

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/snipkeeper/internal/server/storage"
	"github.com/iudanet/snipkeeper/internal/server/storage/storetest"
)

// testDSN points at a disposable database; its tables are truncated.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("SNIPKEEPER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SNIPKEEPER_TEST_POSTGRES_DSN is not set")
	}
	return dsn
}

func TestCompliance(t *testing.T) {
	dsn := testDSN(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	storetest.Run(t, func(t *testing.T, clock *storetest.Clock) storage.Store {
		ctx := context.Background()
		s, err := New(ctx, dsn, logger, storage.WithClock(clock.Now))
		require.NoError(t, err)
		_, err = s.DB().ExecContext(ctx, `TRUNCATE folders, snippets, clipboard_items, settings`)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestDialect_Rebind(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "no placeholders", query: "SELECT 1", want: "SELECT 1"},
		{name: "one", query: "SELECT * FROM t WHERE id = ?", want: "SELECT * FROM t WHERE id = $1"},
		{
			name:  "many",
			query: "UPDATE t SET a = ?, b = ? WHERE id = ? AND user_id = ?",
			want:  "UPDATE t SET a = $1, b = $2 WHERE id = $3 AND user_id = $4",
		},
		{name: "double digits", query: "VALUES (?,?,?,?,?,?,?,?,?,?)", want: "VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Dialect{}.Rebind(tt.query))
		})
	}
}

func TestDialect_IsUniqueViolation(t *testing.T) {
	assert.False(t, Dialect{}.IsUniqueViolation(nil))
	assert.False(t, Dialect{}.IsUniqueViolation(assert.AnError))
}

func TestDialect_Migrations(t *testing.T) {
	entries, err := fsReadDir(Dialect{})
	require.NoError(t, err)
	assert.Contains(t, entries, "00001_init.sql")
}

func fsReadDir(d Dialect) ([]string, error) {
	entries, err := fs.ReadDir(d.Migrations(), ".")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
