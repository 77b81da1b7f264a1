package config

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinTokenSecretLength is the shortest signing secret accepted outside dev mode.
	MinTokenSecretLength = 32

	devTokenSecret = "civicline-dev-only-signing-secret-change-me"
)

// AuthConfig groups token signing and password hashing configuration.
type AuthConfig struct {
	// TokenSecret is the HMAC key used to sign bearer tokens.
	TokenSecret string `env:"AUTH_TOKEN_SECRET"`

	// TokenIssuer is written to the iss claim of every token.
	TokenIssuer string `env:"AUTH_TOKEN_ISSUER" envDefault:"civicline"`

	// TokenLifetime is added to the issue time to produce exp.
	TokenLifetime time.Duration `env:"AUTH_TOKEN_LIFETIME" envDefault:"24h"`

	// CookieName is the cookie consulted after the Authorization header.
	CookieName string `env:"AUTH_COOKIE_NAME" envDefault:"auth_token"`

	// BcryptCost is the work factor for new password hashes. Stored hashes
	// with a lower cost are upgraded on the next successful login.
	BcryptCost int `env:"AUTH_BCRYPT_COST" envDefault:"12"`

	// LegacyTokenPaths lists request paths that may also carry the token in a
	// form field or query parameter. Every other path ignores those sources.
	LegacyTokenPaths []string `env:"AUTH_LEGACY_TOKEN_PATHS" envSeparator:";"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize(isDev bool) {
	a.TokenIssuer = strings.TrimSpace(a.TokenIssuer)
	if a.TokenIssuer == "" {
		a.TokenIssuer = "civicline"
	}
	if a.TokenLifetime <= 0 {
		a.TokenLifetime = 24 * time.Hour
	}
	if strings.TrimSpace(a.CookieName) == "" {
		a.CookieName = "auth_token"
	}
	if a.BcryptCost < bcrypt.MinCost {
		a.BcryptCost = bcrypt.MinCost
	}
	if a.BcryptCost > bcrypt.MaxCost {
		a.BcryptCost = bcrypt.MaxCost
	}

	paths := make([]string, 0, len(a.LegacyTokenPaths))
	for _, p := range a.LegacyTokenPaths {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	a.LegacyTokenPaths = paths

	if isDev && a.TokenSecret == "" {
		a.TokenSecret = devTokenSecret
	}
}

// Validate rejects missing or weak signing secrets outside dev mode.
func (a *AuthConfig) Validate(isDev bool) error {
	if a.TokenSecret == "" {
		return errors.New("AUTH_TOKEN_SECRET is required")
	}
	if !isDev && len(a.TokenSecret) < MinTokenSecretLength {
		return errors.New("AUTH_TOKEN_SECRET must be at least 32 bytes")
	}
	return nil
}
