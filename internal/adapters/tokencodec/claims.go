package tokencodec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "github.com/civicline/civicline-api/internal/domain/auth"
)

const nanoDigits = 9

var errNumericDate = errors.New("invalid numeric date")

// numericTime is a JWT NumericDate that keeps the full sub-second part. It
// encodes as a JSON number of seconds with up to nine fractional digits and
// decodes by splitting on the decimal point, so no float rounding occurs.
type numericTime struct {
	time.Time
}

// MarshalJSON implements json.Marshaler.
func (n numericTime) MarshalJSON() ([]byte, error) {
	sec, ns := n.Unix(), n.Nanosecond()
	out := strconv.AppendInt(nil, sec, 10)
	if ns == 0 {
		return out, nil
	}
	frac := strings.TrimRight(fmt.Sprintf("%0*d", nanoDigits, ns), "0")
	return append(append(out, '.'), frac...), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *numericTime) UnmarshalJSON(b []byte) error {
	whole, frac, hasFrac := strings.Cut(string(b), ".")
	sec, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || sec < 0 {
		return errNumericDate
	}
	var ns int64
	if hasFrac {
		if frac == "" || len(frac) > nanoDigits || strings.Trim(frac, "0123456789") != "" {
			return errNumericDate
		}
		ns, _ = strconv.ParseInt(frac+strings.Repeat("0", nanoDigits-len(frac)), 10, 64)
	}
	n.Time = time.Unix(sec, ns).UTC()
	return nil
}

func (n numericTime) numericDate() *jwt.NumericDate {
	if n.IsZero() {
		return nil
	}
	return &jwt.NumericDate{Time: n.Time}
}

// claims is the canonical payload: registered claims plus a nested identity.
type claims struct {
	Issuer    string              `json:"iss,omitempty"`
	IssuedAt  numericTime         `json:"iat"`
	ExpiresAt numericTime         `json:"exp"`
	User      domainauth.Snapshot `json:"user"`
}

var _ jwt.Claims = claims{}

func (c claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt.numericDate(), nil }
func (c claims) GetIssuedAt() (*jwt.NumericDate, error) { return c.IssuedAt.numericDate(), nil }
func (c claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c claims) GetIssuer() (string, error) { return c.Issuer, nil }
func (c claims) GetSubject() (string, error) { return "", nil }
func (c claims) GetAudience() (jwt.ClaimStrings, error) { return nil, nil }
