package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/civicline/civicline-api/config"
	"github.com/civicline/civicline-api/internal/adapters/passwordhash"
	"github.com/civicline/civicline-api/internal/adapters/tokencodec"
	domainauth "github.com/civicline/civicline-api/internal/domain/auth"
	"github.com/civicline/civicline-api/internal/domain/model"
	"github.com/civicline/civicline-api/internal/domain/ratelimit"
	mockauth "github.com/civicline/civicline-api/internal/mocks/auth"
	"github.com/civicline/civicline-api/internal/mocks/memory"
	"github.com/civicline/civicline-api/internal/observability/metrics"
	"github.com/civicline/civicline-api/internal/service"
	tu "github.com/civicline/civicline-api/internal/testutil"
)

const (
	testPassword   = "correct horse battery"
	testRemoteAddr = "192.0.2.1:41234"
	testClientIP   = "192.0.2.1"
	testCookieName = "auth_token"
	testLegacyPath = "/api/auth/me"
)

type harness struct {
	handler    http.Handler
	accounts   *mockauth.MemoryAccountStore
	limits     *mockauth.MemoryRateLimitStore
	complaints *memory.ComplaintRepo
	publisher  *mockauth.RecordingPublisher
	limiter    *service.RateLimitService
	codec      *tokencodec.Codec
	hasher     *passwordhash.Hasher
	clock      *tu.TestTimeProvider
	metrics    *metrics.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		accounts:   mockauth.NewMemoryAccountStore(),
		limits:     mockauth.NewMemoryRateLimitStore(),
		complaints: memory.NewComplaintRepo(),
		publisher:  &mockauth.RecordingPublisher{},
		hasher:     passwordhash.New(bcrypt.MinCost),
		clock:      tu.NewTestTimeProvider(tu.TestTime()),
		metrics:    metrics.New(),
	}

	var err error
	h.codec, err = tokencodec.New(tokencodec.Config{
		Secret:   []byte("gateway-test-secret-gateway-test-secret"),
		Issuer:   "civicline-test",
		Lifetime: 24 * time.Hour,
	})
	require.NoError(t, err)

	h.limiter, err = service.NewRateLimitService(service.RateLimitServiceOptions{
		Store: h.limits,
		Config: config.RateLimitConfig{
			LoginMaxAttempts:    10,
			LoginWindow:         5 * time.Minute,
			RegisterMaxAttempts: 5,
			RegisterWindow:      time.Hour,
			RegisterScope:       config.RegisterScopeSource,
		},
		Metrics: h.metrics,
	})
	require.NoError(t, err)

	authSvc, err := service.NewAuthService(service.AuthServiceOptions{
		Accounts: h.accounts,
		Security: service.AuthSecurity{Hasher: h.hasher, Codec: h.codec},
		Limiter:  h.limiter,
		Metrics:  h.metrics,
		Clock:    h.clock.Now,
	})
	require.NoError(t, err)

	complaintSvc, err := service.NewComplaintService(service.ComplaintServiceOptions{
		Repo:      h.complaints,
		Accounts:  h.accounts,
		Publisher: h.publisher,
		Clock:     h.clock.Now,
	})
	require.NoError(t, err)

	userSvc, err := service.NewUserAdminService(service.UserAdminServiceOptions{
		Accounts: h.accounts,
		Hasher:   h.hasher,
	})
	require.NoError(t, err)

	authz, err := service.NewAuthorizer(h.codec)
	require.NoError(t, err)

	h.handler = NewRouter(RouterServices{
		Auth:        authSvc,
		Complaints:  complaintSvc,
		Users:       userSvc,
		Authorizer:  authz,
		CookieName:  testCookieName,
		LegacyPaths: []string{testLegacyPath},
		Metrics:     h.metrics,
		MetricsPath: "/metrics",
		Clock:       h.clock.Now,
	})
	return h
}

func (h *harness) seed(t *testing.T, b *tu.AccountBuilder) *domainauth.Account {
	t.Helper()
	hash, err := h.hasher.Hash(testPassword)
	require.NoError(t, err)
	return h.accounts.Seed(b.WithPasswordHash(hash).Build())
}

func (h *harness) tokenFor(t *testing.T, acc *domainauth.Account) string {
	t.Helper()
	tok, err := h.codec.Issue(acc.Snapshot(), h.clock.Now())
	require.NoError(t, err)
	return tok.Token
}

type apiRequest struct {
	method string
	path   string
	body   any
	token  string
}

func (h *harness) do(t *testing.T, req apiRequest) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	r := httptest.NewRequest(req.method, req.path, body)
	r.RemoteAddr = testRemoteAddr
	if req.body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		r.Header.Set("Authorization", "Bearer "+req.token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, r)
	return rec
}

func (h *harness) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	return h.do(t, apiRequest{
		method: http.MethodPost,
		path:   "/api/auth/login",
		body:   model.LoginRequest{Email: email, Password: password},
	})
}

type envelope struct {
	Success           bool            `json:"success"`
	Message           string          `json:"message"`
	Data              json.RawMessage `json:"data"`
	Field             string          `json:"field"`
	RetryAfterSeconds int             `json:"retryAfterSeconds"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func loginKey() string { return ratelimit.Key(ratelimit.EndpointLogin, testClientIP) }

func TestLogin_UnknownEmailIsGenericAndRecorded(t *testing.T) {
	h := newHarness(t)

	rec := h.login(t, "nobody@example.com", "whatever-password")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "Invalid email or password", env.Message)
	assert.Equal(t, "null", string(env.Data))
	assert.Equal(t, 1, h.limits.Count(loginKey()))
}

func TestLogin_WrongPasswordMatchesUnknownEmail(t *testing.T) {
	h := newHarness(t)
	h.seed(t, tu.NewAccount().WithEmail("known@example.com"))

	known := h.login(t, "known@example.com", "wrong-password")
	unknown := h.login(t, "unknown@example.com", "wrong-password")

	assert.Equal(t, unknown.Code, known.Code)
	assert.JSONEq(t, unknown.Body.String(), known.Body.String())
}

func TestLogin_RateLimitedBeforeStoreLookup(t *testing.T) {
	h := newHarness(t)

	for range 10 {
		rec := h.login(t, "victim@example.com", "guess-password")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		h.clock.AddTime(10 * time.Second)
	}
	lookups := h.accounts.EmailLookups()

	rec := h.login(t, "victim@example.com", "guess-password")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Positive(t, env.RetryAfterSeconds)
	assert.Equal(t, "200", rec.Header().Get("Retry-After"))
	assert.Equal(t, 200, env.RetryAfterSeconds)
	assert.Equal(t, lookups, h.accounts.EmailLookups(), "no credential lookup once limited")
}

func TestLogin_SuccessClearsPriorFailures(t *testing.T) {
	h := newHarness(t)
	acc := h.seed(t, tu.NewAccount().WithEmail("citizen@example.com"))

	for range 3 {
		require.Equal(t, http.StatusUnauthorized, h.login(t, acc.Email, "wrong-password").Code)
	}
	require.Equal(t, 3, h.limits.Count(loginKey()))

	rec := h.login(t, acc.Email, testPassword)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	var data loginResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	identity, err := h.codec.Verify(data.Token, h.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, acc.ID, identity.ID)
	assert.Equal(t, h.clock.Now().Add(24*time.Hour).Unix(), data.ExpiresAt.Unix())

	d := h.limiter.Check(t.Context(), h.limiter.LoginPolicy(), testClientIP, h.clock.Now())
	assert.True(t, d.Allowed)
	assert.Zero(t, h.limits.Count(loginKey()))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, testCookieName, cookies[0].Name)
	assert.Equal(t, data.Token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLogin_InactiveAccountIsGeneric(t *testing.T) {
	h := newHarness(t)
	acc := h.seed(t, tu.NewAccount().WithEmail("gone@example.com").Inactive())

	rec := h.login(t, acc.Email, testPassword)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", decodeEnvelope(t, rec).Message)
}

func TestLogin_MalformedBody(t *testing.T) {
	h := newHarness(t)
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":`))
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, h.limits.Count(loginKey()))
}

func TestRegister_DuplicateIsIndistinguishable(t *testing.T) {
	h := newHarness(t)
	h.seed(t, tu.NewAccount().WithEmail("taken@example.com"))

	fresh := h.do(t, apiRequest{method: http.MethodPost, path: "/api/auth/register", body: model.RegisterRequest{
		FullName: "New Person", Email: "new@example.com", Password: testPassword,
	}})
	dup := h.do(t, apiRequest{method: http.MethodPost, path: "/api/auth/register", body: model.RegisterRequest{
		FullName: "Someone Else", Email: "taken@example.com", Password: testPassword,
	}})

	assert.Equal(t, http.StatusAccepted, fresh.Code)
	assert.Equal(t, fresh.Code, dup.Code)
	assert.JSONEq(t, fresh.Body.String(), dup.Body.String())

	acc, err := h.accounts.FindByEmail(t.Context(), "new@example.com")
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, domainauth.RoleCitizen, acc.Role)
}

func TestRegister_ThrottledAfterLimit(t *testing.T) {
	h := newHarness(t)
	for i := range 5 {
		rec := h.do(t, apiRequest{method: http.MethodPost, path: "/api/auth/register", body: model.RegisterRequest{
			FullName: "Bulk", Email: "bulk" + string(rune('a'+i)) + "@example.com", Password: testPassword,
		}})
		require.Equal(t, http.StatusAccepted, rec.Code)
	}

	rec := h.do(t, apiRequest{method: http.MethodPost, path: "/api/auth/register", body: model.RegisterRequest{
		FullName: "Bulk", Email: "bulkz@example.com", Password: testPassword,
	}})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRegister_ValidationError(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, apiRequest{method: http.MethodPost, path: "/api/auth/register", body: model.RegisterRequest{
		FullName: "Short", Email: "short@example.com", Password: "short",
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password", decodeEnvelope(t, rec).Field)
}

func TestComplaint_StaffNotAssignedIsForbidden(t *testing.T) {
	h := newHarness(t)
	staff := h.seed(t, tu.NewAccount().WithID(2).WithEmail("staff@example.com").WithRole(domainauth.RoleStaff))
	h.seed(t, tu.NewAccount().WithID(3).WithEmail("other@example.com").WithRole(domainauth.RoleStaff))
	h.complaints.Seed(tu.NewComplaint().WithID(7).OwnedBy(10).AssignedTo(3).Build())

	rec := h.do(t, apiRequest{method: http.MethodGet, path: "/api/complaints/7", token: h.tokenFor(t, staff)})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, msgForbidden, env.Message)
}

func TestGateway_ExpiredTokenRejected(t *testing.T) {
	h := newHarness(t)
	acc := h.seed(t, tu.NewAccount().WithEmail("citizen@example.com"))

	now := h.clock.Now()
	tok, err := h.codec.Issue(acc.Snapshot(), now.Add(-24*time.Hour-time.Second))
	require.NoError(t, err)
	require.Equal(t, now.Add(-time.Second).Unix(), tok.ExpiresAt.Unix())

	_, err = h.codec.Verify(tok.Token, now)
	require.ErrorIs(t, err, domainauth.ErrTokenExpired)

	rec := h.do(t, apiRequest{method: http.MethodGet, path: "/api/auth/me", token: tok.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, msgUnauthenticated, decodeEnvelope(t, rec).Message)
}

func TestGateway_MissingAndWrongRole(t *testing.T) {
	h := newHarness(t)
	citizen := h.seed(t, tu.NewAccount().WithEmail("citizen@example.com"))

	rec := h.do(t, apiRequest{method: http.MethodGet, path: "/api/admin/users"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, apiRequest{method: http.MethodGet, path: "/api/admin/users", token: h.tokenFor(t, citizen)})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, apiRequest{method: http.MethodGet, path: "/api/admin/users", token: "not.a.token"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMe_FromCookieAndLegacyQuery(t *testing.T) {
	h := newHarness(t)
	acc := h.seed(t, tu.NewAccount().WithEmail("citizen@example.com").WithName("Cora Citizen"))
	tok := h.tokenFor(t, acc)

	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	r.AddCookie(&http.Cookie{Name: testCookieName, Value: tok})
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)
	var identity domainauth.Snapshot
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &identity))
	assert.Equal(t, "Cora Citizen", identity.Name)

	r = httptest.NewRequest(http.MethodGet, "/api/auth/me?token="+tok, nil)
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code, "legacy path accepts the query token")

	r = httptest.NewRequest(http.MethodGet, "/api/complaints?token="+tok, nil)
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "other paths ignore the query token")
}

func TestComplaintLifecycle(t *testing.T) {
	h := newHarness(t)
	admin := h.seed(t, tu.NewAccount().WithID(1).WithEmail("admin@example.com").WithRole(domainauth.RoleAdmin))
	staff := h.seed(t, tu.NewAccount().WithID(2).WithEmail("staff@example.com").WithRole(domainauth.RoleStaff))
	citizen := h.seed(t, tu.NewAccount().WithID(10).WithEmail("citizen@example.com"))

	rec := h.do(t, apiRequest{method: http.MethodPost, path: "/api/complaints", token: h.tokenFor(t, citizen),
		body: model.CreateComplaintRequest{Title: "Pothole", Description: "Deep pothole on Main St", Category: "roads"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created model.Complaint
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &created))
	assert.Equal(t, citizen.ID, created.UserID)

	rec = h.do(t, apiRequest{method: http.MethodPost, path: "/api/complaints", token: h.tokenFor(t, staff),
		body: model.CreateComplaintRequest{Title: "x", Description: "y", Category: "z"}})
	assert.Equal(t, http.StatusForbidden, rec.Code, "only citizens file complaints")

	path := "/api/complaints/" + jsonNumber(created.ID)
	rec = h.do(t, apiRequest{method: http.MethodPatch, path: path + "/status", token: h.tokenFor(t, staff),
		body: model.UpdateComplaintStatusRequest{Status: model.ComplaintStatusInProgress}})
	assert.Equal(t, http.StatusForbidden, rec.Code, "unassigned staff cannot update")

	rec = h.do(t, apiRequest{method: http.MethodPost, path: path + "/assign", token: h.tokenFor(t, admin),
		body: model.AssignComplaintRequest{AssigneeID: staff.ID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, apiRequest{method: http.MethodPatch, path: path + "/status", token: h.tokenFor(t, staff),
		body: model.UpdateComplaintStatusRequest{Status: model.ComplaintStatusInProgress}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, apiRequest{method: http.MethodGet, path: "/api/complaints", token: h.tokenFor(t, citizen)})
	require.Equal(t, http.StatusOK, rec.Code)
	var page model.ComplaintPage
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, model.ComplaintStatusInProgress, page.Items[0].Status)

	assert.Len(t, h.publisher.Events(), 3)
}

func TestAdmin_SelfDemotionForbidden(t *testing.T) {
	h := newHarness(t)
	admin := h.seed(t, tu.NewAccount().WithID(1).WithEmail("admin@example.com").WithRole(domainauth.RoleAdmin))

	role := domainauth.RoleStaff
	rec := h.do(t, apiRequest{method: http.MethodPatch, path: "/api/admin/users/1", token: h.tokenFor(t, admin),
		body: model.UpdateUserRequest{Role: &role}})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, msgSelfDemotion, decodeEnvelope(t, rec).Message)

	acc, err := h.accounts.FindByID(t.Context(), admin.ID)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, acc.Role)
}

func TestAdmin_CreateStaffAndList(t *testing.T) {
	h := newHarness(t)
	admin := h.seed(t, tu.NewAccount().WithID(1).WithEmail("admin@example.com").WithRole(domainauth.RoleAdmin))
	tok := h.tokenFor(t, admin)

	rec := h.do(t, apiRequest{method: http.MethodPost, path: "/api/admin/staff", token: tok,
		body: model.CreateStaffRequest{FullName: "Sam Staff", Email: "sam@example.com", Password: testPassword}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(t, apiRequest{method: http.MethodPost, path: "/api/admin/staff", token: tok,
		body: model.CreateStaffRequest{FullName: "Sam Again", Email: "sam@example.com", Password: testPassword}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(t, apiRequest{method: http.MethodGet, path: "/api/admin/users?role=staff", token: tok})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sam@example.com")
	assert.NotContains(t, rec.Body.String(), "password")

	rec = h.do(t, apiRequest{method: http.MethodGet, path: "/api/admin/users?role=wizard", token: tok})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangePasswordAndLogout(t *testing.T) {
	h := newHarness(t)
	acc := h.seed(t, tu.NewAccount().WithEmail("citizen@example.com"))
	tok := h.tokenFor(t, acc)

	rec := h.do(t, apiRequest{method: http.MethodPost, path: "/api/auth/change-password", token: tok,
		body: model.ChangePasswordRequest{CurrentPassword: "not-it-at-all", NewPassword: "a brand new secret"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, apiRequest{method: http.MethodPost, path: "/api/auth/change-password", token: tok,
		body: model.ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: "a brand new secret"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusOK, h.login(t, acc.Email, "a brand new secret").Code)

	rec = h.do(t, apiRequest{method: http.MethodPost, path: "/api/auth/logout"})
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestRouter_HealthMetricsAndNotFound(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, apiRequest{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Success)
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = h.do(t, apiRequest{method: http.MethodGet, path: "/nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)

	h.login(t, "nobody@example.com", "whatever-password")
	rec = h.do(t, apiRequest{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",route="GET /healthz",status="200"} 1`)
	assert.Contains(t, body, `route="unmatched"`)
	assert.Contains(t, body, "auth_attempts_total")
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
