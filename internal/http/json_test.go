package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/civicline/civicline-api/internal/domain/auth"
	"github.com/civicline/civicline-api/internal/domain/ratelimit"
	apperrors "github.com/civicline/civicline-api/internal/errors"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"invalid credentials", domainauth.ErrInvalidCredentials, http.StatusUnauthorized, msgInvalidCredentials},
		{"expired token", fmt.Errorf("verify: %w", domainauth.ErrTokenExpired), http.StatusUnauthorized, msgUnauthenticated},
		{"bad signature", domainauth.ErrBadSignature, http.StatusUnauthorized, msgUnauthenticated},
		{"unauthenticated", domainauth.ErrUnauthenticated, http.StatusUnauthorized, msgUnauthenticated},
		{"forbidden", domainauth.ErrForbidden, http.StatusForbidden, msgForbidden},
		{"self demotion", domainauth.ErrSelfDemotion, http.StatusForbidden, msgSelfDemotion},
		{"self deactivation", domainauth.ErrSelfDeactivation, http.StatusForbidden, msgSelfDeactivation},
		{
			"store unavailable hides cause",
			fmt.Errorf("find account: %w", errors.Join(domainauth.ErrStoreUnavailable, errors.New("dial tcp 10.0.0.5:5432"))),
			http.StatusInternalServerError, msgInternal,
		},
		{"validation", apperrors.ValidationField("email", "a valid email is required"), http.StatusBadRequest, "a valid email is required"},
		{"not found", fmt.Errorf("get: %w", apperrors.NotFound("complaint not found")), http.StatusNotFound, "complaint not found"},
		{"conflict", apperrors.Conflict("already exists"), http.StatusConflict, "already exists"},
		{"timeout", apperrors.New(apperrors.ErrCodeTimeout, "slow"), http.StatusGatewayTimeout, "Request timed out"},
		{"internal app error", apperrors.Wrap(errors.New("pq: boom"), apperrors.ErrCodeInternal, "db"), http.StatusInternalServerError, msgInternal},
		{"plain error", errors.New("/src/file.go:12 nil pointer"), http.StatusInternalServerError, msgInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := errorResponse(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, env.Message)
			assert.False(t, env.Success)
		})
	}
}

func TestWriteError_RateLimited(t *testing.T) {
	rec := httptest.NewRecorder()
	err := fmt.Errorf("guard: %w", &ratelimit.LimitedError{Endpoint: ratelimit.EndpointLogin, RetryAfter: 90500 * time.Millisecond})

	WriteError(context.Background(), rec, nil, err)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "91", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"success":false,"message":"`+msgRateLimited+`","data":null,"retryAfterSeconds":91}`, rec.Body.String())
}

func TestWriteError_ValidationIncludesField(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), rec, nil, apperrors.ValidationField("title", "title is required"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"title is required","data":null,"field":"title"}`, rec.Body.String())
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	var dst struct {
		Email string `json:"email"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", jsonBody(`{"email":"a@b.c","admin":true}`))
	rec := httptest.NewRecorder()

	require.False(t, DecodeJSON(rec, r, &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
