package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_NilIsNoop(t *testing.T) {
	var r *Registry
	r.AuthAttempt("login", "success")
	r.RateLimitDecision("login", DecisionAllowed)
	r.StoreError("window", errors.New("x"))
	r.SweepCompleted(3, nil)
	r.RelayPublished("complaint.created", nil)

	h := r.Instrument(func(*http.Request) string { return "x" })(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRegistry_Instrument(t *testing.T) {
	r := New()
	h := r.Instrument(func(*http.Request) string { return "GET /api/complaints/{id}" })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.WriteHeader(http.StatusOK)
		}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/complaints/7", nil))

	assert.InDelta(t, 1, testutil.ToFloat64(r.httpRequestsTotal.WithLabelValues("GET", "GET /api/complaints/{id}", "403")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(r.httpInFlight), 0)
}

func TestRegistry_Counters(t *testing.T) {
	r := New()
	r.RateLimitDecision("login", DecisionLimited)
	r.RateLimitDecision("login", DecisionLimited)
	r.SweepCompleted(5, nil)
	r.SweepCompleted(0, nil)
	r.SweepCompleted(0, errors.New("down"))
	r.RelayPublished("complaint.created", errors.New("timeout"))

	assert.InDelta(t, 2, testutil.ToFloat64(r.rateLimitDecision.WithLabelValues("login", DecisionLimited)), 0)
	assert.InDelta(t, 5, testutil.ToFloat64(r.sweepRemoved), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.sweepRuns.WithLabelValues(ResultNoop)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.sweepRuns.WithLabelValues(ResultError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.relayPublished.WithLabelValues("complaint.created", ResultError)), 0)
}

func TestRegistry_Handler(t *testing.T) {
	r := New()
	r.AuthAttempt("login", "invalid_credentials")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `auth_attempts_total{endpoint="login",outcome="invalid_credentials"} 1`))
}
