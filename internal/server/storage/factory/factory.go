// Package factory picks and opens the storage backend once at startup.
package factory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/iudanet/snipkeeper/internal/server/storage"
	"github.com/iudanet/snipkeeper/internal/server/storage/boltdb"
	"github.com/iudanet/snipkeeper/internal/server/storage/filestore"
	"github.com/iudanet/snipkeeper/internal/server/storage/memstore"
	"github.com/iudanet/snipkeeper/internal/server/storage/postgres"
	"github.com/iudanet/snipkeeper/internal/server/storage/sqlite"
)

// Backend names accepted in Config.Backend.
const (
	BackendAuto     = "auto"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendBolt     = "bolt"
	BackendFile     = "file"
	BackendMemory   = "memory"
)

// Default file names under Config.DataDir.
const (
	DefaultSQLiteFile = "snipkeeper.db"
	DefaultBoltFile   = "snipkeeper.bolt"
)

// ErrUnknownBackend is returned for an unsupported Config.Backend.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Config selects the backend.
type Config struct {
	Backend     string
	DatabaseURL string
	SQLitePath  string
	BoltPath    string
	DataDir     string
}

// Resolve turns "auto" into a concrete backend: postgres when a database
// URL is configured, sqlite otherwise.
func (c Config) Resolve() string {
	if c.Backend == "" || c.Backend == BackendAuto {
		if c.DatabaseURL != "" {
			return BackendPostgres
		}
		return BackendSQLite
	}
	return c.Backend
}

func (c Config) path(explicit, name string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Join(c.DataDir, name)
}

// Open returns the configured backend. Failures to reach it wrap
// storage.ErrUnavailable.
func Open(ctx context.Context, cfg Config, logger *slog.Logger, opts ...storage.Option) (storage.Store, error) {
	backend := cfg.Resolve()

	var (
		s   storage.Store
		err error
	)
	switch backend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, storage.Unavailable("open postgres", errors.New("database URL is not configured"))
		}
		s, err = postgres.New(ctx, cfg.DatabaseURL, logger, opts...)
	case BackendSQLite:
		path := cfg.path(cfg.SQLitePath, DefaultSQLiteFile)
		if err = ensureDir(path); err == nil {
			s, err = sqlite.New(ctx, path, logger, opts...)
		}
	case BackendBolt:
		path := cfg.path(cfg.BoltPath, DefaultBoltFile)
		if err = ensureDir(path); err == nil {
			s, err = boltdb.New(ctx, path, opts...)
		}
	case BackendFile:
		s, err = filestore.New(ctx, cfg.DataDir, logger, opts...)
	case BackendMemory:
		logger.WarnContext(ctx, "In-memory storage selected, data is lost on restart")
		s = memstore.New(opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, storage.Unavailable("open "+backend, err)
	}

	logger.InfoContext(ctx, "Storage opened", slog.String("backend", backend))
	return s, nil
}

func ensureDir(path string) error {
	if path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o700)
}
