package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mahalbangetid-beep/scb-sub003/core/database"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/security"
	"github.com/mahalbangetid-beep/scb-sub003/repository"
	"github.com/mahalbangetid-beep/scb-sub003/ui/rest/middleware"
	"github.com/mahalbangetid-beep/scb-sub003/usecase"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details []json.RawMessage `json:"details"`
	} `json:"error"`
	Meta *struct {
		Page  int   `json:"page"`
		Total int64 `json:"total"`
	} `json:"meta"`
}

type testServer struct {
	app *fiber.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.NewInMemory()
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(context.Background(), db))
	t.Cleanup(func() { _ = database.Close(db) })

	tokens := security.NewTokenManager("test-secret", time.Hour)
	wallet := usecase.NewWalletService(repository.NewWalletGormRepository(db, "NPR"), nil)
	users := usecase.NewUserService(repository.NewUserGormRepository(db), wallet, tokens)
	require.NoError(t, users.EnsureAdmin(context.Background(), "admin@example.com", "admin-password"))

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(middleware.Recovery())
	app.Get("/boom", func(*fiber.Ctx) error { panic("kaboom") })
	Register(app.Group("/api"), tokens, Services{Users: users, Wallet: wallet})
	app.Use(middleware.NotFound)
	return &testServer{app: app}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (s *testServer) login(t *testing.T, email, password string) (token string, userID string) {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, status)
	var out struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out.Token, out.User.ID
}

func TestRegisterLoginAndMe(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Sita", "email": "sita@example.com", "password": "long-password",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)

	token, _ := s.login(t, "sita@example.com", "long-password")
	status, env = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "sita@example.com")
	assert.NotContains(t, string(env.Data), "password")
}

func TestValidationErrorsCarryDetails(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.NotEmpty(t, env.Error.Details)
}

func TestLoginWithWrongPassword(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "nope-nope",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodGet, "/api/wallet", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, _ = s.do(t, http.MethodGet, "/api/wallet", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAdminRoutesNeedAdminRole(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Hari", "email": "hari@example.com", "password": "long-password",
	})
	userToken, userID := s.login(t, "hari@example.com", "long-password")

	status, env := s.do(t, http.MethodPost, "/api/admin/wallet/credit", userToken, map[string]any{
		"user_id": userID, "amount": 100, "description": "gift",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	adminToken, _ := s.login(t, "admin@example.com", "admin-password")
	status, _ = s.do(t, http.MethodPost, "/api/admin/wallet/credit", adminToken, map[string]any{
		"user_id": userID, "amount": 100, "description": "manual top-up",
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, "/api/admin/wallet/debit", adminToken, map[string]any{
		"user_id": userID, "amount": 500, "description": "too much",
	})
	assert.Equal(t, http.StatusPaymentRequired, status)

	status, env = s.do(t, http.MethodGet, "/api/wallet", userToken, nil)
	require.Equal(t, http.StatusOK, status)
	var wallet struct {
		Balance float64 `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &wallet))
	assert.InDelta(t, 100, wallet.Balance, 0.001)

	status, env = s.do(t, http.MethodGet, "/api/wallet/transactions?page=1&limit=5", userToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(1), env.Meta.Total)
}

func TestUnknownRouteAndPanic(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	status, env = s.do(t, http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.False(t, env.Success)
}
