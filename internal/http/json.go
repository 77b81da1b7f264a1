package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	domainauth "github.com/civicline/civicline-api/internal/domain/auth"
	"github.com/civicline/civicline-api/internal/domain/ratelimit"
	apperrors "github.com/civicline/civicline-api/internal/errors"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgUnauthenticated    = "Authentication required"
	msgForbidden          = "You do not have permission to perform this action"
	msgRateLimited        = "Too many attempts, please try again later"
	msgInternal           = "Internal server error"
	msgSelfDemotion       = "Administrators cannot change their own role"
	msgSelfDeactivation   = "Administrators cannot deactivate their own account"
	msgInvalidJSON        = "Request body must be valid JSON"

	maxBodyBytes = 1 << 20
)

// Envelope is the shape of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	// Field names the offending input on validation failures.
	Field string `json:"field,omitempty"`
	// RetryAfterSeconds is set only on 429 responses.
	RetryAfterSeconds int `json:"retryAfterSeconds,omitempty"`
}

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteJSON(w, http.StatusBadRequest, Envelope{Message: msgInvalidJSON})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// WriteSuccess writes a success envelope.
func WriteSuccess(w http.ResponseWriter, code int, message string, data any) {
	WriteJSON(w, code, Envelope{Success: true, Message: message, Data: data})
}

// WriteError maps err onto the response contract. Only curated messages reach
// the client; the raw error is logged for 5xx responses.
func WriteError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) {
	status, env := errorResponse(err)
	if env.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(env.RetryAfterSeconds))
	}
	if status >= http.StatusInternalServerError {
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(ctx, "request failed",
			"request_id", RequestIDFromContext(ctx),
			"status", status,
			"error", err,
		)
	}
	WriteJSON(w, status, env)
}

func errorResponse(err error) (int, Envelope) {
	var limited *ratelimit.LimitedError
	switch {
	case errors.As(err, &limited):
		return http.StatusTooManyRequests, Envelope{Message: msgRateLimited, RetryAfterSeconds: limited.RetryAfterSeconds()}
	case errors.Is(err, domainauth.ErrStoreUnavailable):
		return http.StatusInternalServerError, Envelope{Message: msgInternal}
	case errors.Is(err, domainauth.ErrInvalidCredentials):
		return http.StatusUnauthorized, Envelope{Message: msgInvalidCredentials}
	case domainauth.IsTokenError(err), errors.Is(err, domainauth.ErrUnauthenticated):
		return http.StatusUnauthorized, Envelope{Message: msgUnauthenticated}
	case errors.Is(err, domainauth.ErrSelfDemotion):
		return http.StatusForbidden, Envelope{Message: msgSelfDemotion}
	case errors.Is(err, domainauth.ErrSelfDeactivation):
		return http.StatusForbidden, Envelope{Message: msgSelfDeactivation}
	case errors.Is(err, domainauth.ErrForbidden):
		return http.StatusForbidden, Envelope{Message: msgForbidden}
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, Envelope{Message: msgInternal}
	}
	switch appErr.Code {
	case apperrors.ErrCodeValidation, apperrors.ErrCodeForeignKey:
		return http.StatusBadRequest, Envelope{Message: appErr.Message, Field: appErr.Field}
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound, Envelope{Message: appErr.Message}
	case apperrors.ErrCodeConflict:
		return http.StatusConflict, Envelope{Message: appErr.Message, Field: appErr.Field}
	case apperrors.ErrCodeUnauthenticated:
		return http.StatusUnauthorized, Envelope{Message: msgUnauthenticated}
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden, Envelope{Message: msgForbidden}
	case apperrors.ErrCodeRateLimited:
		return http.StatusTooManyRequests, Envelope{Message: msgRateLimited, RetryAfterSeconds: 1}
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout, Envelope{Message: "Request timed out"}
	default:
		return http.StatusInternalServerError, Envelope{Message: msgInternal}
	}
}
