// Package tokencodec signs and verifies HS256 bearer tokens that embed an
// identity snapshot.
package tokencodec

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "github.com/civicline/civicline-api/internal/domain/auth"
)

var segmentEncoding = base64.RawURLEncoding

// Config holds the signing parameters.
type Config struct {
	Secret   []byte
	Issuer   string
	Lifetime time.Duration
}

// Codec implements ports.TokenCodec. It is safe for concurrent use.
type Codec struct {
	secret   []byte
	issuer   string
	lifetime time.Duration
}

type header struct {
	Alg string `json:"alg"`
}

// New constructs a Codec.
func New(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if cfg.Lifetime <= 0 {
		return nil, errors.New("token lifetime must be positive")
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	return &Codec{secret: secret, issuer: cfg.Issuer, lifetime: cfg.Lifetime}, nil
}

// Lifetime returns the configured token lifetime.
func (c *Codec) Lifetime() time.Duration { return c.lifetime }

// Issue signs a token for identity. iat is now and exp is exactly now plus
// the configured lifetime, both kept to the nanosecond.
func (c *Codec) Issue(identity domainauth.Snapshot, now time.Time) (domainauth.IssuedToken, error) {
	iat := now.UTC()
	exp := iat.Add(c.lifetime)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Issuer:    c.issuer,
		IssuedAt:  numericTime{iat},
		ExpiresAt: numericTime{exp},
		User:      identity,
	})
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return domainauth.IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}
	return domainauth.IssuedToken{Token: signed, IssuedAt: iat, ExpiresAt: exp}, nil
}

// Verify checks structure, signature and expiry, in that order. The
// signature covers the raw header.payload text, so any edit to either
// segment fails as ErrBadSignature before the payload is parsed.
func (c *Codec) Verify(token string, now time.Time) (domainauth.Snapshot, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return domainauth.Snapshot{}, domainauth.ErrMalformedToken
	}

	sig, err := segmentEncoding.DecodeString(parts[2])
	if err != nil {
		return domainauth.Snapshot{}, domainauth.ErrMalformedToken
	}
	signingString := parts[0] + "." + parts[1]
	if verr := jwt.SigningMethodHS256.Verify(signingString, sig, c.secret); verr != nil {
		return domainauth.Snapshot{}, domainauth.ErrBadSignature
	}
	// Lenient decoding ignores trailing bits; only the canonical encoding is ours.
	if segmentEncoding.EncodeToString(sig) != parts[2] {
		return domainauth.Snapshot{}, domainauth.ErrBadSignature
	}

	var h header
	if err := decodeSegment(parts[0], &h); err != nil || h.Alg != jwt.SigningMethodHS256.Alg() {
		return domainauth.Snapshot{}, domainauth.ErrMalformedToken
	}
	var cl claims
	if err := decodeSegment(parts[1], &cl); err != nil || cl.ExpiresAt.IsZero() {
		return domainauth.Snapshot{}, domainauth.ErrMalformedToken
	}

	if !now.Before(cl.ExpiresAt.Time) {
		return domainauth.Snapshot{}, domainauth.ErrTokenExpired
	}
	return cl.User, nil
}

func decodeSegment(seg string, v any) error {
	raw, err := segmentEncoding.DecodeString(seg)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
