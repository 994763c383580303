// Package session keeps bearer tokens that map to a user identifier.
//
// Sessions live only in process memory. Each token is either active, expired
// (past ExpiresAt) or revoked (logout or eviction by the per-user cap).
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Defaults used when Config fields are zero.
const (
	DefaultTTL           = 24 * time.Hour
	DefaultMaxPerUser    = 5
	DefaultSweepInterval = time.Hour

	tokenBytes = 32
)

// Session is an issued bearer token.
type Session struct {
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Token     string    `json:"-"`
	UserID    string    `json:"userId"`
}

// Config controls token lifetime and per-user limits.
type Config struct {
	TTL           time.Duration
	MaxPerUser    int
	SweepInterval time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager issues, resolves and revokes sessions. It is safe for concurrent use.
type Manager struct {
	now    func() time.Time
	logger *slog.Logger

	sessions map[string]*Session
	// byUser keeps tokens in creation order, oldest first.
	byUser map[string][]string

	cfg Config
	mu  sync.Mutex
}

// NewManager creates a Manager. Zero Config fields take the defaults.
func NewManager(cfg Config, logger *slog.Logger, opts ...Option) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxPerUser <= 0 {
		cfg.MaxPerUser = DefaultMaxPerUser
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m := &Manager{
		now:      time.Now,
		logger:   logger,
		sessions: make(map[string]*Session),
		byUser:   make(map[string][]string),
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create issues a new token for userID. When the user already holds
// MaxPerUser sessions the oldest ones are revoked.
func (m *Manager) Create(userID string) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	s := &Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.TTL),
	}
	m.sessions[token] = s
	tokens := append(m.byUser[userID], token)

	// Сверх лимита вытесняем самые старые сессии пользователя
	evicted := 0
	for len(tokens) > m.cfg.MaxPerUser {
		delete(m.sessions, tokens[0])
		tokens = tokens[1:]
		evicted++
	}
	m.byUser[userID] = tokens

	if evicted > 0 {
		m.logger.Info("evicted oldest sessions",
			slog.String("user", ShortID(userID)),
			slog.Int("evicted", evicted))
	}

	out := *s
	return &out, nil
}

// Get resolves token. Unknown and expired tokens report false; an expired
// token is dropped on the way.
func (m *Manager) Get(token string) (*Session, bool) {
	if token == "" {
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return nil, false
	}
	// Истекшую сессию удаляем сразу, не дожидаясь sweeper
	if !m.now().Before(s.ExpiresAt) {
		m.removeLocked(token)
		return nil, false
	}

	out := *s
	return &out, true
}

// Remove revokes a single token and reports whether it existed.
func (m *Manager) Remove(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[token]; !ok {
		return false
	}
	m.removeLocked(token)
	return true
}

// RemoveAll revokes every token of userID and returns how many were active.
func (m *Manager) RemoveAll(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	tokens := m.byUser[userID]
	for _, token := range tokens {
		delete(m.sessions, token)
	}
	delete(m.byUser, userID)
	return len(tokens)
}

// SweepExpired drops every expired token and returns the count.
func (m *Manager) SweepExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for token, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			m.removeLocked(token)
			removed++
		}
	}
	return removed
}

// Count returns the number of tracked sessions, expired ones included
// until the next sweep.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run sweeps expired sessions every SweepInterval until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.SweepExpired(); n > 0 {
				m.logger.Info("swept expired sessions", slog.Int("removed", n))
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// removeLocked deletes token from both indexes. m.mu must be held.
func (m *Manager) removeLocked(token string) {
	s, ok := m.sessions[token]
	if !ok {
		return
	}
	delete(m.sessions, token)

	tokens := m.byUser[s.UserID]
	for i, t := range tokens {
		if t == token {
			tokens = append(tokens[:i:i], tokens[i+1:]...)
			break
		}
	}
	if len(tokens) == 0 {
		delete(m.byUser, s.UserID)
	} else {
		m.byUser[s.UserID] = tokens
	}
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ShortID shortens an identifier for log output.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
