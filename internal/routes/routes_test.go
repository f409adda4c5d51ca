package routes

import (
	"bytes"
	"context"
	"elearning/internal/handlers"
	"elearning/internal/logger"
	"elearning/internal/metrics"
	"elearning/internal/models"
	"elearning/internal/services"
	"elearning/internal/testutil"
	"elearning/internal/utils"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	router *mux.Router
	store  *testutil.MemStore
	mail   *testutil.MailRecorder
	tokens *utils.TokenManager
	auth   *services.AuthService
	now    time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		store: testutil.NewMemStore(),
		mail:  &testutil.MailRecorder{},
		now:   time.Now(),
	}
	hasher := utils.NewPasswordHasher(bcrypt.MinCost, 4)
	ts.tokens = utils.NewTokenManager("test-secret", time.Hour)
	m := metrics.New()

	ts.auth = services.NewAuthService(ts.store, hasher, ts.tokens, ts.mail, m)
	pwd := services.NewPasswordService(ts.store, hasher, ts.mail, m, "http://localhost:3000", 10*time.Minute).
		WithClock(func() time.Time { return ts.now })
	users := services.NewUserService(ts.store)

	ts.router = mux.NewRouter()
	InitRoutes(ts.router,
		handlers.NewAuthHandler(ts.auth),
		handlers.NewPasswordHandler(pwd, ts.tokens),
		handlers.NewUserHandler(users),
		ts.tokens, ts.store, m,
	)
	return ts
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	User    json.RawMessage `json:"user"`
	Data    json.RawMessage `json:"data"`
	Count   int             `json:"count"`
	Total   int             `json:"total"`
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)

	var resp apiResponse
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	}
	return rr.Code, resp
}

func (ts *testServer) register(t *testing.T, name, email, password, role string) string {
	t.Helper()
	code, resp := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": password, "role": role,
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	return resp.Token
}

func TestAliceScenario(t *testing.T) {
	ts := newTestServer(t)

	code, resp := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, resp.Success)
	require.NotEmpty(t, resp.Token)

	var summary models.UserSummary
	require.NoError(t, json.Unmarshal(resp.User, &summary))
	assert.Equal(t, "alice@example.com", summary.Email)
	assert.Equal(t, models.RoleStudent, summary.Role)
	assert.NotContains(t, string(resp.User), "password")

	code, resp = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, code)
	token := resp.Token
	require.NoError(t, json.Unmarshal(resp.User, &summary))
	assert.Equal(t, models.RoleStudent, summary.Role)

	code, resp = ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Alice Again", "email": "alice@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Email already registered", resp.Message)

	code, resp = ts.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(resp.Data), `"email":"alice@example.com"`)
	assert.NotContains(t, string(resp.Data), "reset")

	code, resp = ts.do(t, http.MethodPost, "/api/auth/forgotpassword", "", map[string]string{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Email sent with password reset instructions", resp.Message)
	secret := ts.mail.ResetSecret()
	require.Len(t, secret, 40)

	code, resp = ts.do(t, http.MethodPut, "/api/auth/resetpassword/"+secret, "", map[string]string{"password": "secret2"})
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, resp.Token)

	code, _ = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "secret2"})
	assert.Equal(t, http.StatusOK, code)

	code, resp = ts.do(t, http.MethodPut, "/api/auth/resetpassword/"+secret, "", map[string]string{"password": "again12"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid token", resp.Message)
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })
	return logs
}

func TestResetSecretNeverLogged(t *testing.T) {
	logs := observeLogs(t)
	ts := newTestServer(t)
	ts.register(t, "Alice", "alice@x.io", "secret1", "")

	code, _ := ts.do(t, http.MethodPost, "/api/auth/forgotpassword", "", map[string]string{"email": "alice@x.io"})
	require.Equal(t, http.StatusOK, code)
	secret := ts.mail.ResetSecret()
	require.NotEmpty(t, secret)

	code, _ = ts.do(t, http.MethodPut, "/api/auth/resetpassword/"+secret, "", map[string]string{"password": "123"})
	require.Equal(t, http.StatusBadRequest, code)
	code, _ = ts.do(t, http.MethodPut, "/api/auth/resetpassword/"+secret, "", map[string]string{"password": "secret2"})
	require.Equal(t, http.StatusOK, code)

	var accessPaths []string
	for _, e := range logs.All() {
		assert.NotContains(t, e.Message, secret)
		for k, v := range e.ContextMap() {
			assert.NotContains(t, fmt.Sprint(v), secret, "field %q of %q", k, e.Message)
		}
		if e.Message == "HTTP-запрос" && e.ContextMap()["method"] == http.MethodPut {
			accessPaths = append(accessPaths, e.ContextMap()["path"].(string))
		}
	}
	assert.Equal(t, []string{"/api/auth/resetpassword/{resettoken}", "/api/auth/resetpassword/{resettoken}"}, accessPaths)
}

func TestRegisterAndLoginErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "Alice", "alice@x.io", "secret1", "")

	tests := []struct {
		name    string
		path    string
		body    map[string]string
		status  int
		message string
	}{
		{"duplicate email", "/api/auth/register", map[string]string{"name": "A", "email": "ALICE@x.io", "password": "secret1"}, http.StatusBadRequest, "Email already registered"},
		{"short password", "/api/auth/register", map[string]string{"name": "B", "email": "b@x.io", "password": "123"}, http.StatusBadRequest, "Password must be at least 6 characters long"},
		{"bad role", "/api/auth/register", map[string]string{"name": "B", "email": "b@x.io", "password": "secret1", "role": "root"}, http.StatusBadRequest, "Invalid role"},
		{"login missing", "/api/auth/login", map[string]string{"email": "alice@x.io"}, http.StatusBadRequest, "Please provide email and password"},
		{"login wrong password", "/api/auth/login", map[string]string{"email": "alice@x.io", "password": "nope123"}, http.StatusUnauthorized, "Invalid credentials"},
		{"login unknown email", "/api/auth/login", map[string]string{"email": "bob@x.io", "password": "secret1"}, http.StatusUnauthorized, "Invalid credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := ts.do(t, http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, tt.status, code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.message, resp.Message)
		})
	}
}

func TestForgotPasswordErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "Alice", "alice@x.io", "secret1", "")

	code, resp := ts.do(t, http.MethodPost, "/api/auth/forgotpassword", "", map[string]string{"email": "ghost@x.io"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "No user found with that email", resp.Message)

	ts.mail.Fail = testutil.ErrMailDown
	code, resp = ts.do(t, http.MethodPost, "/api/auth/forgotpassword", "", map[string]string{"email": "alice@x.io"})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Email could not be sent", resp.Message)

	u, err := ts.store.GetUserByEmail(context.Background(), "alice@x.io")
	require.NoError(t, err)
	assert.Nil(t, u.ResetTokenHash)
}

func TestResetPasswordExpired(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "Alice", "alice@x.io", "secret1", "")

	code, _ := ts.do(t, http.MethodPost, "/api/auth/forgotpassword", "", map[string]string{"email": "alice@x.io"})
	require.Equal(t, http.StatusOK, code)
	secret := ts.mail.ResetSecret()

	ts.now = ts.now.Add(11 * time.Minute)
	code, resp := ts.do(t, http.MethodPut, "/api/auth/resetpassword/"+secret, "", map[string]string{"password": "newpass1"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid token", resp.Message)
}

func TestUpdatePasswordAndDeleteAccount(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "Alice", "alice@x.io", "secret1", "")

	tests := []struct {
		name    string
		body    map[string]string
		status  int
		message string
	}{
		{"missing", map[string]string{"currentPassword": "secret1"}, http.StatusBadRequest, "Please provide current and new passwords"},
		{"wrong current", map[string]string{"currentPassword": "nope123", "newPassword": "newpass1"}, http.StatusUnauthorized, "Invalid current password"},
		{"too short", map[string]string{"currentPassword": "secret1", "newPassword": "123"}, http.StatusBadRequest, "New password must be at least 6 characters long"},
		{"ok", map[string]string{"currentPassword": "secret1", "newPassword": "newpass1"}, http.StatusOK, "Password updated successfully"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := ts.do(t, http.MethodPut, "/api/auth/updatepassword", token, tt.body)
			assert.Equal(t, tt.status, code)
			assert.Equal(t, tt.message, resp.Message)
		})
	}

	code, resp := ts.do(t, http.MethodDelete, "/api/auth/deleteaccount", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Account deleted successfully", resp.Message)

	code, resp = ts.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Not authorized to access this route", resp.Message)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/api/auth/me", "/api/users", "/api/db-admin/status"} {
		code, resp := ts.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, path)
		assert.Equal(t, "Not authorized to access this route", resp.Message, path)
	}
}

func TestUserAdministration(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.auth.EnsureAdmin(context.Background(), "admin@x.io", "adminpass"))
	_, adminToken, err := ts.auth.Login(context.Background(), "admin@x.io", "adminpass")
	require.NoError(t, err)

	studentToken := ts.register(t, "Sam", "sam@x.io", "secret1", "")
	ts.register(t, "Olga", "olga@x.io", "secret1", "instructor")
	sam, err := ts.store.GetUserByEmail(context.Background(), "sam@x.io")
	require.NoError(t, err)
	olga, err := ts.store.GetUserByEmail(context.Background(), "olga@x.io")
	require.NoError(t, err)

	code, resp := ts.do(t, http.MethodGet, "/api/users", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "User role student is not authorized to access this route", resp.Message)

	newUser := map[string]string{"name": "Ivan", "email": "ivan@x.io", "password": "secret1", "role": "instructor"}
	code, resp = ts.do(t, http.MethodPost, "/api/users", studentToken, newUser)
	assert.Equal(t, http.StatusForbidden, code)
	code, resp = ts.do(t, http.MethodPost, "/api/users", adminToken, newUser)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	assert.Contains(t, string(resp.Data), `"role":"instructor"`)
	assert.Empty(t, resp.Token)
	code, resp = ts.do(t, http.MethodPost, "/api/users", adminToken, newUser)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Email already registered", resp.Message)

	code, resp = ts.do(t, http.MethodGet, "/api/users?page=1&limit=2", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 4, resp.Total)

	code, _ = ts.do(t, http.MethodGet, "/api/users/"+olga.ID.String(), studentToken, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = ts.do(t, http.MethodGet, "/api/users/not-a-uuid", studentToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = ts.do(t, http.MethodPut, "/api/users/"+sam.ID.String(), studentToken, map[string]string{"bio": "hello"})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(resp.Data), `"bio":"hello"`)

	code, _ = ts.do(t, http.MethodPut, "/api/users/"+olga.ID.String(), studentToken, map[string]string{"bio": "x"})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = ts.do(t, http.MethodPut, "/api/users/"+sam.ID.String(), studentToken, map[string]string{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = ts.do(t, http.MethodPut, "/api/users/"+sam.ID.String(), adminToken, map[string]string{"role": "instructor"})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(resp.Data), `"role":"instructor"`)

	code, _ = ts.do(t, http.MethodDelete, "/api/users/"+olga.ID.String(), studentToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = ts.do(t, http.MethodDelete, "/api/users/"+olga.ID.String(), adminToken, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = ts.do(t, http.MethodDelete, "/api/users/"+olga.ID.String(), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = ts.do(t, http.MethodGet, "/api/db-admin/status", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(resp.Data), `"connection":"connected"`)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "Alice", "alice@x.io", "secret1", "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `elearning_auth_events_total{event="register",outcome="success"} 1`)
	assert.Contains(t, body, `route="/api/auth/register"`)
}
