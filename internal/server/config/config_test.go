package config

import (
	"bytes"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/snipkeeper/internal/server/storage/factory"
)

var managedVars = []string{
	"HTTP_ADDR", "SHUTDOWN_TIMEOUT", "MAX_BODY_BYTES", "STORAGE_BACKEND", "DATABASE_URL",
	"SQLITE_PATH", "BOLT_PATH", "DATA_DIR", "SERVER_SECRET", "DEV_MODE", "SESSION_TTL",
	"MAX_SESSIONS_PER_USER", "SESSION_SWEEP_INTERVAL", "LOGIN_RATE_LIMIT", "LOGIN_RATE_WINDOW",
	"LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv unsets every variable Load looks at, prefixed and not
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range managedVars {
		for _, key := range []string{name, Prefix + "_" + name} {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, factory.BackendAuto, cfg.Backend)
	assert.Equal(t, factory.BackendSQLite, cfg.Storage().Resolve())
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Empty(t, cfg.ServerSecret)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5, cfg.MaxSessionsPerUser)
	assert.Equal(t, time.Hour, cfg.SessionSweepInterval)
	assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_PrefixedAndFallbackNames(t *testing.T) {
	tests := []struct {
		env   map[string]string
		check func(t *testing.T, cfg *Config)
		name  string
	}{
		{
			name: "unprefixed fallbacks",
			env: map[string]string{
				"DATABASE_URL":  "postgres://u:p@localhost/db",
				"SERVER_SECRET": "s3cret",
				"DEV_MODE":      "true",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres://u:p@localhost/db", cfg.DatabaseURL)
				assert.Equal(t, factory.BackendPostgres, cfg.Storage().Resolve())
				assert.Equal(t, "s3cret", cfg.ServerSecret)
				assert.True(t, cfg.DevMode)
			},
		},
		{
			name: "prefixed wins",
			env: map[string]string{
				"SERVER_SECRET":            "plain",
				"SNIPKEEPER_SERVER_SECRET": "prefixed",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "prefixed", cfg.ServerSecret)
			},
		},
		{
			name: "explicit backend and durations",
			env: map[string]string{
				"SNIPKEEPER_STORAGE_BACKEND":       "Bolt",
				"SNIPKEEPER_SESSION_TTL":           "30m",
				"SNIPKEEPER_MAX_SESSIONS_PER_USER": "2",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, factory.BackendBolt, cfg.Backend)
				assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
				assert.Equal(t, 2, cfg.MaxSessionsPerUser)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		env  map[string]string
		name string
	}{
		{name: "unknown backend", env: map[string]string{"SNIPKEEPER_STORAGE_BACKEND": "mongo"}},
		{name: "postgres without url", env: map[string]string{"SNIPKEEPER_STORAGE_BACKEND": "postgres"}},
		{name: "bad log level", env: map[string]string{"SNIPKEEPER_LOG_LEVEL": "loud"}},
		{name: "bad log format", env: map[string]string{"SNIPKEEPER_LOG_FORMAT": "xml"}},
		{name: "zero ttl", env: map[string]string{"SNIPKEEPER_SESSION_TTL": "0s"}},
		{name: "zero cap", env: map[string]string{"SNIPKEEPER_MAX_SESSIONS_PER_USER": "0"}},
		{name: "zero body limit", env: map[string]string{"SNIPKEEPER_MAX_BODY_BYTES": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	t.Run("unparsable duration", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SNIPKEEPER_SESSION_TTL", "soon")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestConfig_NewLogger(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		contains string
	}{
		{name: "json", format: LogFormatJSON, contains: `"msg":"hello"`},
		{name: "text", format: LogFormatText, contains: "msg=hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			cfg := &Config{LogLevel: "warn", LogFormat: tt.format}

			logger := cfg.NewLogger(&buf)
			logger.Info("dropped")
			logger.Warn("hello")

			assert.Contains(t, buf.String(), tt.contains)
			assert.NotContains(t, buf.String(), "dropped")
		})
	}
}

func TestConfig_LogValueHidesSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	cfg := &Config{
		DatabaseURL:  "postgres://user:hunter2@db/snip",
		ServerSecret: "topsecret",
	}

	logger.Info("config", slog.Any("config", cfg))

	assert.NotContains(t, buf.String(), "hunter2")
	assert.NotContains(t, buf.String(), "topsecret")
	assert.Contains(t, buf.String(), "server_secret_set=true")
}
