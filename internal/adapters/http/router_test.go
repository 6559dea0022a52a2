package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	httpadapter "github.com/campusrecords/campus-auth/internal/adapters/http"
	"github.com/campusrecords/campus-auth/internal/adapters/memory"
	"github.com/campusrecords/campus-auth/internal/adapters/security"
	"github.com/campusrecords/campus-auth/internal/application"
	"github.com/campusrecords/campus-auth/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type capturedResets struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (c *capturedResets) SendResetToken(_ context.Context, d ports.ResetTokenDelivery) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[d.Email] = d.Token
	return nil
}

func (c *capturedResets) token(email string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens[email]
}

type fixture struct {
	router  http.Handler
	service *application.Service
	resets  *capturedResets
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	hasher, err := security.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := security.NewTokenIssuer(security.TokenConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		Issuer:        "campus-auth",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	})
	require.NoError(t, err)
	resets := &capturedResets{tokens: map[string]string{}}
	svc := application.NewService(application.Dependencies{
		Config:        application.Config{FailedLoginThreshold: 5, LockoutDuration: 30 * time.Minute},
		Accounts:      store.Accounts(),
		LoginAttempts: store.LoginAttempts(),
		Hasher:        hasher,
		Tokens:        tokens,
		ResetSender:   resets,
	})
	handler := httpadapter.NewHandler(svc, httpadapter.WithReadiness(store.Ping))
	return &fixture{router: httpadapter.NewRouter(handler), service: svc, resets: resets}
}

func (f *fixture) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res
}

type authBody struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type errorBody struct {
	Code    string            `json:"code"`
	Details map[string]string `json:"details"`
}

func decode[T any](t *testing.T, res *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out), res.Body.String())
	return out
}

func (f *fixture) signup(t *testing.T, email, role string) authBody {
	t.Helper()
	res := f.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": email, "password": "secret123", "firstName": "Ada", "lastName": "Lovelace", "role": role,
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	return decode[authBody](t, res)
}

func (f *fixture) admin(t *testing.T) authBody {
	t.Helper()
	_, err := f.service.Provision(context.Background(), application.SignupRequest{
		Email: "registrar@campus.edu", Password: "secret123", FirstName: "Reg", LastName: "Istrar", Role: "admin",
	})
	require.NoError(t, err)
	res := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "registrar@campus.edu", "password": "secret123"})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	return decode[authBody](t, res)
}

func TestSignupReturnsTokensWithoutPasswordHash(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "Student@Campus.edu", "password": "secret123", "firstName": "Ada", "lastName": "Lovelace",
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	body := decode[authBody](t, res)
	assert.Equal(t, "student@campus.edu", body.User.Email)
	assert.Equal(t, "student", body.User.Role)
	assert.NotEmpty(t, body.Token)
	assert.NotEmpty(t, body.RefreshToken)
	assert.NotContains(t, strings.ToLower(res.Body.String()), "password")
	assert.Contains(t, res.Header().Get("Set-Cookie"), "refreshToken=")
	assert.Contains(t, res.Header().Get("Set-Cookie"), "HttpOnly")
}

func TestSignupRejectsDuplicateEmailAndWeakPassword(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "dup@campus.edu", "")

	res := f.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "DUP@campus.edu", "password": "secret123", "firstName": "A", "lastName": "B",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "EMAIL_TAKEN", decode[errorBody](t, res).Code)

	res = f.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "short@campus.edu", "password": "123", "firstName": "A", "lastName": "B",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	body := decode[errorBody](t, res)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Contains(t, body.Details, "password")
}

func TestSignupAdminRoleRequiresAdminCaller(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "eve@campus.edu", "password": "secret123", "firstName": "Eve", "lastName": "X", "role": "admin",
	})
	require.Equal(t, http.StatusBadRequest, res.Code)
	body := decode[errorBody](t, res)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Contains(t, body.Details, "role")

	admin := f.admin(t)
	res = f.do(t, http.MethodPost, "/auth/signup", admin.Token, map[string]string{
		"email": "dean@campus.edu", "password": "secret123", "firstName": "Dean", "lastName": "Y", "role": "admin",
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	assert.Equal(t, "admin", decode[authBody](t, res).User.Role)

	res = f.do(t, http.MethodPost, "/auth/signup", "not-a-token", map[string]string{
		"email": "mallory@campus.edu", "password": "secret123", "firstName": "M", "lastName": "Z",
	})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestSignupIgnoresProfileFields(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "ada@campus.edu", "password": "secret1", "firstName": "Ada", "lastName": "L", "role": "student",
		"department": "CS", "studentId": "S-1",
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	assert.Equal(t, "ada@campus.edu", decode[authBody](t, res).User.Email)

	res = f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ada@campus.edu", "password": "secret1", "deviceName": "kiosk-3",
	})
	assert.Equal(t, http.StatusOK, res.Code, res.Body.String())
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "lock@campus.edu", "")

	for i := 0; i < 4; i++ {
		res := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "lock@campus.edu", "password": "wrong-pass"})
		require.Equal(t, http.StatusUnauthorized, res.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", decode[errorBody](t, res).Code)
	}

	// the threshold-reaching failure itself answers 423 (DESIGN.md "Lockout boundary")
	res := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "lock@campus.edu", "password": "wrong-pass"})
	require.Equal(t, http.StatusLocked, res.Code)
	assert.NotEmpty(t, res.Header().Get("Retry-After"))

	// correct password is still refused while locked
	res = f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "lock@campus.edu", "password": "secret123"})
	assert.Equal(t, http.StatusLocked, res.Code)
}

func TestLoginUnknownEmailMatchesWrongPassword(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "known@campus.edu", "")

	unknown := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ghost@campus.edu", "password": "secret123"})
	wrong := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "known@campus.edu", "password": "nope-nope"})
	assert.Equal(t, wrong.Code, unknown.Code)
	assert.JSONEq(t, wrong.Body.String(), unknown.Body.String())
}

func TestRefreshRotatesAndRejectsReplay(t *testing.T) {
	f := newFixture(t)
	signup := f.signup(t, "rotate@campus.edu", "")

	res := f.do(t, http.MethodPost, "/auth/refresh-token", "", map[string]string{"refreshToken": signup.RefreshToken})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	rotated := decode[authBody](t, res)
	assert.NotEqual(t, signup.RefreshToken, rotated.RefreshToken)

	res = f.do(t, http.MethodPost, "/auth/refresh-token", "", map[string]string{"refreshToken": signup.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "TOKEN_REVOKED", decode[errorBody](t, res).Code)

	// an access token is not accepted as a refresh token
	res = f.do(t, http.MethodPost, "/auth/refresh-token", "", map[string]string{"refreshToken": rotated.Token})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "TOKEN_INVALID", decode[errorBody](t, res).Code)
}

func TestRefreshReadsCookie(t *testing.T) {
	f := newFixture(t)
	signup := f.signup(t, "cookie@campus.edu", "")

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: signup.RefreshToken})
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code, res.Body.String())
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	f := newFixture(t)
	signup := f.signup(t, "bye@campus.edu", "")

	res := f.do(t, http.MethodPost, "/auth/logout", "", map[string]string{"refreshToken": signup.RefreshToken})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Contains(t, res.Header().Get("Set-Cookie"), "Max-Age=0")

	res = f.do(t, http.MethodPost, "/auth/refresh-token", "", map[string]string{"refreshToken": signup.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = f.do(t, http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestGateRejectsMissingAndInvalidTokens(t *testing.T) {
	f := newFixture(t)

	res := f.do(t, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "UNAUTHENTICATED", decode[errorBody](t, res).Code)

	res = f.do(t, http.MethodGet, "/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	signup := f.signup(t, "me@campus.edu", "faculty")
	res = f.do(t, http.MethodGet, "/auth/me", signup.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = f.do(t, http.MethodGet, "/auth/me", signup.Token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"role":"faculty"`)
}

func TestAccountRoutesEnforceOwnerOrAdmin(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice@campus.edu", "")
	bob := f.signup(t, "bob@campus.edu", "")
	admin := f.admin(t)

	res := f.do(t, http.MethodGet, "/auth/accounts/"+alice.User.ID+"/", alice.Token, nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = f.do(t, http.MethodGet, "/auth/accounts/"+alice.User.ID+"/login-history", bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = f.do(t, http.MethodGet, "/auth/accounts/"+alice.User.ID+"/login-history", admin.Token, nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = f.do(t, http.MethodPost, "/auth/accounts/"+alice.User.ID+"/unlock", alice.Token, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestAdminDeactivationBlocksAccessToken(t *testing.T) {
	f := newFixture(t)
	student := f.signup(t, "inactive@campus.edu", "")
	admin := f.admin(t)

	res := f.do(t, http.MethodPatch, "/auth/accounts/"+student.User.ID+"/status", admin.Token, map[string]bool{"active": false})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res = f.do(t, http.MethodGet, "/auth/me", student.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "inactive@campus.edu", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "ACCOUNT_DEACTIVATED", decode[errorBody](t, res).Code)
}

func TestAdminUnlockClearsLockout(t *testing.T) {
	f := newFixture(t)
	student := f.signup(t, "locked@campus.edu", "")
	admin := f.admin(t)
	for i := 0; i < 5; i++ {
		f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "locked@campus.edu", "password": "wrong-pass"})
	}

	res := f.do(t, http.MethodPost, "/auth/accounts/"+student.User.ID+"/unlock", admin.Token, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res = f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "locked@campus.edu", "password": "secret123"})
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "forgot@campus.edu", "")

	unknown := f.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": "nobody@campus.edu"})
	known := f.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": "forgot@campus.edu"})
	require.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, unknown.Code, known.Code)
	assert.JSONEq(t, unknown.Body.String(), known.Body.String())

	f.service.Drain()
	token := f.resets.token("forgot@campus.edu")
	require.NotEmpty(t, token)
	assert.Empty(t, f.resets.token("nobody@campus.edu"))

	res := f.do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{"token": token, "password": "brand-new-pass"})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res = f.do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{"token": token, "password": "another-pass"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "INVALID_RESET_TOKEN", decode[errorBody](t, res).Code)

	res = f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "forgot@campus.edu", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	res = f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "forgot@campus.edu", "password": "brand-new-pass"})
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestChangePasswordRequiresCurrentPassword(t *testing.T) {
	f := newFixture(t)
	signup := f.signup(t, "change@campus.edu", "")

	res := f.do(t, http.MethodPost, "/auth/change-password", signup.Token, map[string]string{"currentPassword": "wrong-pass", "newPassword": "next-pass-1"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = f.do(t, http.MethodPost, "/auth/change-password", signup.Token, map[string]string{"currentPassword": "secret123", "newPassword": "next-pass-1"})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res = f.do(t, http.MethodPost, "/auth/refresh-token", "", map[string]string{"refreshToken": signup.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestHealthAndReadiness(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/readyz", "", nil).Code)
}

func TestMalformedBodyIsValidationError(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{not json"))
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[errorBody](t, res).Code)
}
