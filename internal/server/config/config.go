// Package config loads server settings from the environment.
//
// Every variable is read with the SNIPKEEPER_ prefix first and then without
// it, so SNIPKEEPER_DATABASE_URL wins over DATABASE_URL.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/iudanet/snipkeeper/internal/server/storage/factory"
)

// Prefix of the environment variables.
const Prefix = "SNIPKEEPER"

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// ErrInvalid is the root of every validation failure returned by Load.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the server configuration
type Config struct {
	// HTTP
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	MaxBodyBytes    int64         `envconfig:"MAX_BODY_BYTES" default:"1048576"`

	// Storage: auto|postgres|sqlite|bolt|file|memory
	Backend     string `envconfig:"STORAGE_BACKEND" default:"auto"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	SQLitePath  string `envconfig:"SQLITE_PATH"`
	BoltPath    string `envconfig:"BOLT_PATH"`
	DataDir     string `envconfig:"DATA_DIR" default:"./data"`

	// Identity. An empty secret falls back to a built-in constant.
	ServerSecret string `envconfig:"SERVER_SECRET"`

	// DevMode accepts the raw user-id header and exposes internal error text
	DevMode bool `envconfig:"DEV_MODE" default:"false"`

	// Sessions
	SessionTTL           time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	MaxSessionsPerUser   int           `envconfig:"MAX_SESSIONS_PER_USER" default:"5"`
	SessionSweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"1h"`

	// Login rate limit per client IP
	LoginRateLimit  int           `envconfig:"LOGIN_RATE_LIMIT" default:"10"`
	LoginRateWindow time.Duration `envconfig:"LOGIN_RATE_WINDOW" default:"1m"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case "", factory.BackendAuto, factory.BackendPostgres, factory.BackendSQLite,
		factory.BackendBolt, factory.BackendFile, factory.BackendMemory:
	default:
		return fmt.Errorf("%w: unsupported STORAGE_BACKEND %q", ErrInvalid, c.Backend)
	}
	if c.Storage().Resolve() == factory.BackendPostgres && c.DatabaseURL == "" {
		return fmt.Errorf("%w: DATABASE_URL is required for the postgres backend", ErrInvalid)
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case LogFormatJSON, LogFormatText:
	default:
		return fmt.Errorf("%w: unsupported LOG_FORMAT %q", ErrInvalid, c.LogFormat)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("%w: SESSION_TTL must be positive", ErrInvalid)
	}
	if c.MaxSessionsPerUser < 1 {
		return fmt.Errorf("%w: MAX_SESSIONS_PER_USER must be at least 1", ErrInvalid)
	}
	if c.SessionSweepInterval <= 0 {
		return fmt.Errorf("%w: SESSION_SWEEP_INTERVAL must be positive", ErrInvalid)
	}
	if c.LoginRateLimit < 1 || c.LoginRateWindow <= 0 {
		return fmt.Errorf("%w: LOGIN_RATE_LIMIT and LOGIN_RATE_WINDOW must be positive", ErrInvalid)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: MAX_BODY_BYTES must be positive", ErrInvalid)
	}
	return nil
}

// Storage returns the backend selection for factory.Open.
func (c *Config) Storage() factory.Config {
	return factory.Config{
		Backend:     c.Backend,
		DatabaseURL: c.DatabaseURL,
		SQLitePath:  c.SQLitePath,
		BoltPath:    c.BoltPath,
		DataDir:     c.DataDir,
	}
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: unsupported LOG_LEVEL %q", ErrInvalid, c.LogLevel)
	}
	return level, nil
}

// NewLogger builds the process logger described by LogLevel and LogFormat.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.ToLower(c.LogFormat) == LogFormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// LogValue hides the secret and the database credentials.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("http_addr", c.HTTPAddr),
		slog.String("backend", c.Storage().Resolve()),
		slog.Bool("database_url_set", c.DatabaseURL != ""),
		slog.String("data_dir", c.DataDir),
		slog.Bool("server_secret_set", c.ServerSecret != ""),
		slog.Bool("dev_mode", c.DevMode),
		slog.Duration("session_ttl", c.SessionTTL),
		slog.Int("max_sessions_per_user", c.MaxSessionsPerUser),
		slog.String("log_level", c.LogLevel),
	)
}
