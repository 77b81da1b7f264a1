package httpx

import (
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/civicline/civicline-api/internal/domain/auth"
	"github.com/civicline/civicline-api/internal/observability/metrics"
	"github.com/civicline/civicline-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth       AuthServiceInterface
	Complaints ComplaintServiceInterface
	Users      UserAdminServiceInterface
	Authorizer *service.Authorizer

	// Credential extraction and cookie settings.
	CookieName   string
	CookieDomain string
	LegacyPaths  []string

	// TrustedProxyHops counts X-Forwarded-For entries added by trusted
	// proxies. Zero ignores the header.
	TrustedProxyHops int
	AllowedOrigin    string

	// Optional: Prometheus registry. When MetricsPath is set the scrape
	// endpoint is mounted there.
	Metrics     *metrics.Registry
	MetricsPath string

	Logger *slog.Logger
	// Optional: clock used for token verification. Defaults to time.Now.
	Clock func() time.Time
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	gw := NewGateway(GatewayOptions{
		Authorizer: services.Authorizer,
		Extractor:  CredentialExtractor{CookieName: services.CookieName, LegacyPaths: services.LegacyPaths},
		Logger:     logger,
		Clock:      services.Clock,
	})

	registerAuthRoutes(mux, gw, &AuthHandlers{
		Svc:              services.Auth,
		CookieName:       services.CookieName,
		CookieDomain:     services.CookieDomain,
		TrustedProxyHops: services.TrustedProxyHops,
		Logger:           logger,
	})
	registerComplaintRoutes(mux, gw, &ComplaintHandlers{Svc: services.Complaints, Logger: logger})
	registerAdminRoutes(mux, gw, &UserHandlers{Svc: services.Users, Logger: logger})

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	if services.Metrics != nil && services.MetricsPath != "" {
		mux.Handle("GET "+services.MetricsPath, services.Metrics.Handler())
	}
	mux.Handle("/", http.HandlerFunc(notFoundHandler))

	var h http.Handler = mux
	h = CORS(services.AllowedOrigin)(h)
	h = SecurityHeaders()(h)
	h = Recover(logger)(h)
	h = services.Metrics.Instrument(routeLabel)(h)
	h = Logging(logger)(h)
	return RequestID()(h)
}

func registerAuthRoutes(mux *http.ServeMux, gw *Gateway, h *AuthHandlers) {
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.Handle("GET /api/auth/me", gw.RequireAny()(http.HandlerFunc(h.Me)))
	mux.Handle("GET /api/auth/profile", gw.RequireAny()(http.HandlerFunc(h.Profile)))
	mux.Handle("POST /api/auth/change-password", gw.RequireAny()(http.HandlerFunc(h.ChangePassword)))
}

func registerComplaintRoutes(mux *http.ServeMux, gw *Gateway, h *ComplaintHandlers) {
	mux.Handle("POST /api/complaints", gw.Require(domainauth.RoleCitizen)(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/complaints", gw.RequireAny()(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/complaints/{id}", gw.RequireAny()(http.HandlerFunc(h.Get)))
	mux.Handle("PATCH /api/complaints/{id}/status",
		gw.Require(domainauth.RoleStaff, domainauth.RoleAdmin)(http.HandlerFunc(h.UpdateStatus)))
	mux.Handle("POST /api/complaints/{id}/assign", gw.Require(domainauth.RoleAdmin)(http.HandlerFunc(h.Assign)))
}

func registerAdminRoutes(mux *http.ServeMux, gw *Gateway, h *UserHandlers) {
	admin := gw.Require(domainauth.RoleAdmin)
	mux.Handle("GET /api/admin/users", admin(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/admin/users/{id}", admin(http.HandlerFunc(h.Get)))
	mux.Handle("PATCH /api/admin/users/{id}", admin(http.HandlerFunc(h.Update)))
	mux.Handle("POST /api/admin/staff", admin(http.HandlerFunc(h.CreateStaff)))
}

// routeLabel reports the matched mux pattern so metric labels stay bounded.
func routeLabel(r *http.Request) string {
	if r.Pattern == "" || r.Pattern == "/" {
		return "unmatched"
	}
	return r.Pattern
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusNotFound, Envelope{Message: "Not found"})
}
