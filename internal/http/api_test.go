package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"secure-auth/internal/domain"
	"secure-auth/internal/lockout"
	"secure-auth/internal/password"
	"secure-auth/internal/repository"
	"secure-auth/internal/repository/sqlite"
	"secure-auth/internal/service"
	"secure-auth/internal/token"
)

type testEnv struct {
	router   *gin.Engine
	accounts repository.AccountRepository
	tokens   *token.Issuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	accounts := sqlite.NewAccountRepository(db)
	require.NoError(t, accounts.Init(context.Background()))

	hasher := password.NewHasher(bcrypt.MinCost)
	issuer := token.NewIssuer("test-secret", time.Hour)
	svc := service.NewAuthService(accounts, hasher, lockout.Default(), issuer)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	router := gin.New()
	NewHandler(svc, issuer, logger).RegisterRoutes(router, []string{"http://localhost:3000"})

	return &testEnv{router: router, accounts: accounts, tokens: issuer}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func registerBody() map[string]string {
	return map[string]string{
		"username":        "alice",
		"email":           "alice@x.com",
		"password":        "Abc12345!",
		"confirmPassword": "Abc12345!",
	}
}

func TestRegisterEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", registerBody(), "")
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode(t, rec)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "user", user["role"])
	assert.NotContains(t, rec.Body.String(), "password")

	// second registration with the same username is rejected
	rec = env.do(t, http.MethodPost, "/api/auth/register", registerBody(), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterEndpointValidation(t *testing.T) {
	env := newTestEnv(t)

	body := registerBody()
	body["username"] = "a!"
	body["password"] = "weak"
	body["confirmPassword"] = "weak"

	rec := env.do(t, http.MethodPost, "/api/auth/register", body, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	errs := decode(t, rec)["errors"].([]any)
	assert.Len(t, errs, 2)
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/auth/register", registerBody(), "")

	t.Run("success", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
			"email":    "alice@x.com",
			"password": "Abc12345!",
		}, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, decode(t, rec)["token"])
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		unknown := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
			"email":    "nobody@x.com",
			"password": "Abc12345!",
		}, "")
		wrong := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
			"email":    "alice@x.com",
			"password": "wrong-password",
		}, "")

		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, http.StatusUnauthorized, wrong.Code)
		assert.Equal(t, unknown.Body.String(), wrong.Body.String())
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "alice@x.com"}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginEndpointLockout(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/auth/register", registerBody(), "")

	for i := 0; i < 5; i++ {
		rec := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
			"email":    "alice@x.com",
			"password": "wrong-password",
		}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	rec := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "alice@x.com",
		"password": "Abc12345!",
	}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCurrentAccountEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", registerBody(), "")
	signed := decode(t, rec)["token"].(string)

	t.Run("with valid token", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/auth/me", nil, signed)
		require.Equal(t, http.StatusOK, rec.Code)
		user := decode(t, rec)["user"].(map[string]any)
		assert.Equal(t, "alice", user["username"])
	})

	t.Run("without token", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/auth/me", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("with garbage token", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/auth/me", nil, "garbage")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("with expired token", func(t *testing.T) {
		expired, err := token.NewIssuer("test-secret", -time.Minute).Issue("some-id", domain.RoleUser)
		require.NoError(t, err)
		rec := env.do(t, http.MethodGet, "/api/auth/me", nil, expired)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Token expired")
	})

	t.Run("valid token for deleted account", func(t *testing.T) {
		orphan, err := env.tokens.Issue(uuid.NewString(), domain.RoleUser)
		require.NoError(t, err)
		rec := env.do(t, http.MethodGet, "/api/auth/me", nil, orphan)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAdminEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := env.do(t, http.MethodPost, "/api/auth/register", registerBody(), "")
	userToken := decode(t, rec)["token"].(string)

	admin := &domain.Account{
		ID:           uuid.NewString(),
		Username:     "admin",
		Email:        "admin@example.com",
		PasswordHash: "irrelevant",
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}
	require.NoError(t, env.accounts.Create(ctx, admin))
	adminToken, err := env.tokens.Issue(admin.ID, admin.Role)
	require.NoError(t, err)

	t.Run("list requires admin role", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/auth/users", nil, userToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("list excludes password hashes", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/auth/users", nil, adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, float64(2), body["count"])
		assert.NotContains(t, rec.Body.String(), "irrelevant")
	})

	t.Run("delete account", func(t *testing.T) {
		accounts, err := env.accounts.List(ctx)
		require.NoError(t, err)

		var aliceID string
		for _, a := range accounts {
			if a.Username == "alice" {
				aliceID = a.ID
			}
		}
		require.NotEmpty(t, aliceID)

		rec := env.do(t, http.MethodDelete, "/api/auth/users/"+aliceID, nil, adminToken)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, http.MethodDelete, "/api/auth/users/"+aliceID, nil, adminToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
