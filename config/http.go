package config

import (
	"strings"
	"time"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CookieDomain is the domain for the auth cookie.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// AllowedOrigin is the single cross-origin address allowed to call the API
	// with credentials. Empty disables CORS headers.
	AllowedOrigin string `env:"HTTP_ALLOWED_ORIGIN" envDefault:""`

	// TrustProxyHeaders makes client address resolution honour X-Forwarded-For.
	TrustProxyHeaders bool `env:"HTTP_TRUST_PROXY_HEADERS" envDefault:"false"`

	// TrustedProxyHops is the number of proxies in front of the server that
	// append to X-Forwarded-For. The client address is read that many entries
	// from the right; anything further left is caller supplied.
	TrustedProxyHops int `env:"HTTP_TRUSTED_PROXY_HOPS" envDefault:"1"`

	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if strings.TrimSpace(h.Addr) == "" {
		h.Addr = ":8080"
	}
	h.AllowedOrigin = strings.TrimRight(strings.TrimSpace(h.AllowedOrigin), "/")
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
	if h.TrustedProxyHops < 1 {
		h.TrustedProxyHops = 1
	}
}

// ForwardedHops returns how many X-Forwarded-For entries to trust, or 0 when
// forwarded headers are ignored.
func (h HTTPConfig) ForwardedHops() int {
	if !h.TrustProxyHeaders {
		return 0
	}
	return max(h.TrustedProxyHops, 1)
}
