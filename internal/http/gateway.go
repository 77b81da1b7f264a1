package httpx

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	domainauth "github.com/civicline/civicline-api/internal/domain/auth"
	"github.com/civicline/civicline-api/internal/service"
)

const legacyTokenField = "token"

// CredentialExtractor finds the bearer credential on a request.
//
// Order: Authorization header, then the auth cookie, then (only for paths
// listed in LegacyPaths) the "token" form field and query parameter.
type CredentialExtractor struct {
	CookieName  string
	LegacyPaths []string
}

// Extract returns the credential, or "" when none is present.
func (e CredentialExtractor) Extract(r *http.Request) string {
	if tok, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return tok
	}
	if e.CookieName != "" {
		if c, err := r.Cookie(e.CookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}
	if !slices.Contains(e.LegacyPaths, r.URL.Path) {
		return ""
	}
	if isFormRequest(r) {
		if tok := strings.TrimSpace(r.PostFormValue(legacyTokenField)); tok != "" {
			return tok
		}
	}
	return strings.TrimSpace(r.URL.Query().Get(legacyTokenField))
}

func bearerToken(header string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

func isFormRequest(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

// GatewayOptions groups dependencies for Gateway.
type GatewayOptions struct {
	Authorizer *service.Authorizer
	Extractor  CredentialExtractor
	Logger     *slog.Logger
	Clock      func() time.Time
}

// Gateway authenticates and authorizes requests before they reach handlers.
type Gateway struct {
	authz     *service.Authorizer
	extractor CredentialExtractor
	logger    *slog.Logger
	now       func() time.Time
}

// NewGateway constructs a Gateway.
func NewGateway(opts GatewayOptions) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Gateway{
		authz:     opts.Authorizer,
		extractor: opts.Extractor,
		logger:    logger.With("component", "gateway"),
		now:       now,
	}
}

// Require admits requests whose token is valid and whose role is in roles.
// Missing or invalid credentials get 401; a valid identity with the wrong
// role gets 403. Admitted requests carry the identity in their context.
func (g *Gateway) Require(roles ...domainauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := g.extractor.Extract(r)
			decision := g.authz.Authorize(token, roles, g.now())
			if !decision.Allowed {
				g.deny(w, r, decision)
				return
			}
			next.ServeHTTP(w, r.WithContext(SetIdentityInContext(r.Context(), decision.Identity)))
		})
	}
}

// RequireAny admits any authenticated identity.
func (g *Gateway) RequireAny() func(http.Handler) http.Handler {
	return g.Require(domainauth.AllRoles()...)
}

func (g *Gateway) deny(w http.ResponseWriter, r *http.Request, d domainauth.Decision) {
	if d.Reason == domainauth.ReasonForbidden {
		g.logger.InfoContext(r.Context(), "access denied",
			"request_id", RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"user_id", d.Identity.ID,
			"role", d.Identity.Role,
		)
		WriteError(r.Context(), w, g.logger, domainauth.ErrForbidden)
		return
	}
	if d.Err != nil && !errors.Is(d.Err, domainauth.ErrUnauthenticated) {
		g.logger.DebugContext(r.Context(), "token rejected", "path", r.URL.Path, "error", d.Err)
	}
	WriteError(r.Context(), w, g.logger, domainauth.ErrUnauthenticated)
}

// ClientIP resolves the caller's address for rate limiting. With
// trustedHops > 0 it reads X-Forwarded-For that many entries from the right,
// the last address appended by the outermost trusted proxy. Otherwise, or
// when the header is too short or unparseable, RemoteAddr is used.
func ClientIP(r *http.Request, trustedHops int) string {
	if trustedHops > 0 {
		if ip := forwardedFor(r.Header.Values("X-Forwarded-For"), trustedHops); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// forwardedFor flattens repeated X-Forwarded-For headers and picks the entry
// trustedHops from the right.
func forwardedFor(values []string, trustedHops int) string {
	var hops []string
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			hops = append(hops, strings.TrimSpace(part))
		}
	}
	if len(hops) < trustedHops {
		return ""
	}
	ip := net.ParseIP(hops[len(hops)-trustedHops])
	if ip == nil {
		return ""
	}
	return ip.String()
}
