// Package identity turns a PIN and passphrase into a stable user identifier.
//
// There is no account table: the identifier is a keyed hash of the
// credentials, so the same credentials on the same server always map to the
// same data. Changing the server secret changes every identifier; use
// snipctl remap to move data after a rotation.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"regexp"
)

// FallbackSecret is used when no server secret is configured.
// Identifiers derived with it are not portable across deployments.
const FallbackSecret = "snipkeeper-default-server-secret"

// IDLength is the number of hex characters in a user identifier.
const IDLength = 32

var idPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Deriver derives user identifiers. It is safe for concurrent use.
type Deriver struct {
	secret   string
	fallback bool
}

// NewDeriver creates a Deriver bound to secret. An empty secret selects
// FallbackSecret and logs a warning.
func NewDeriver(secret string, logger *slog.Logger) *Deriver {
	d := &Deriver{secret: secret}
	// Без секрета идентификаторы всё равно стабильны, но предсказуемы
	if secret == "" {
		d.secret = FallbackSecret
		d.fallback = true
		if logger != nil {
			logger.Warn("server secret is not configured, using built-in fallback; " +
				"user identifiers will change if a secret is set later")
		}
	}
	return d
}

// Derive returns the first 32 hex characters of
// SHA-256(pin + ":" + passphrase + ":" + secret).
// Credentials must be validated by the caller.
func (d *Deriver) Derive(pin, passphrase string) string {
	sum := sha256.Sum256([]byte(pin + ":" + passphrase + ":" + d.secret))
	return hex.EncodeToString(sum[:])[:IDLength]
}

// UsingFallback reports whether the built-in secret is in use.
func (d *Deriver) UsingFallback() bool {
	return d.fallback
}

// IsUserID reports whether s has the shape of a derived identifier.
func IsUserID(s string) bool {
	return idPattern.MatchString(s)
}
