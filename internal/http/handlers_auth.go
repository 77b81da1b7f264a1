package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/civicline/civicline-api/internal/domain/auth"
	"github.com/civicline/civicline-api/internal/domain/model"
	"github.com/civicline/civicline-api/internal/service"
)

const msgRegistrationAccepted = "If the details are valid, your account is ready. Please sign in."

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
	Register(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error)
	CurrentUser(ctx context.Context, identity domainauth.Snapshot) (*model.User, error)
	ChangePassword(ctx context.Context, identity domainauth.Snapshot, req model.ChangePasswordRequest) error
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc              AuthServiceInterface
	CookieName       string
	CookieDomain     string
	TrustedProxyHops int
	Logger           *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.Svc.Login(r.Context(), service.LoginInput{
		Request:  req,
		SourceIP: ClientIP(r, h.TrustedProxyHops),
	})
	if err != nil {
		WriteError(r.Context(), w, h.logger(), err)
		return
	}

	h.setAuthCookie(w, r, res.Token)
	WriteSuccess(w, http.StatusOK, "Login successful", loginResponse{
		Token:     res.Token.Token,
		ExpiresAt: res.Token.ExpiresAt,
		User:      res.User,
	})
}

// Register handles POST /api/auth/register. New and already-registered
// emails get the same response.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if _, err := h.Svc.Register(r.Context(), service.RegisterInput{
		Request:  req,
		SourceIP: ClientIP(r, h.TrustedProxyHops),
	}); err != nil {
		WriteError(r.Context(), w, h.logger(), err)
		return
	}

	WriteSuccess(w, http.StatusAccepted, msgRegistrationAccepted, nil)
}

// Me handles GET /api/auth/me and returns the identity carried by the token.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		WriteError(r.Context(), w, h.logger(), domainauth.ErrUnauthenticated)
		return
	}
	WriteSuccess(w, http.StatusOK, "", identity)
}

// Profile handles GET /api/auth/profile and returns the live account.
func (h *AuthHandlers) Profile(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		WriteError(r.Context(), w, h.logger(), domainauth.ErrUnauthenticated)
		return
	}
	user, err := h.Svc.CurrentUser(r.Context(), identity)
	if err != nil {
		WriteError(r.Context(), w, h.logger(), err)
		return
	}
	WriteSuccess(w, http.StatusOK, "", user)
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so this only
// clears the cookie.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, r)
	WriteSuccess(w, http.StatusOK, "Logged out", nil)
}

// ChangePassword handles POST /api/auth/change-password.
func (h *AuthHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		WriteError(r.Context(), w, h.logger(), domainauth.ErrUnauthenticated)
		return
	}
	var req model.ChangePasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := h.Svc.ChangePassword(r.Context(), identity, req); err != nil {
		WriteError(r.Context(), w, h.logger(), err)
		return
	}
	WriteSuccess(w, http.StatusOK, "Password updated", nil)
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func (h *AuthHandlers) setAuthCookie(w http.ResponseWriter, r *http.Request, tok domainauth.IssuedToken) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.CookieName,
		Value:    tok.Token,
		Path:     "/",
		Domain:   h.CookieDomain,
		Expires:  tok.ExpiresAt.UTC(),
		MaxAge:   max(int(tok.ExpiresAt.Sub(tok.IssuedAt).Seconds()), 1),
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// clearCookie mirrors the attributes used when setting the cookie so
// browsers match it for deletion.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}
