package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalog/service/internal/middleware"
	"github.com/catalog/service/internal/validation"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestRouter(t *testing.T) (http.Handler, *fakeProvider, string) {
	t.Helper()
	log, _ := test.NewNullLogger()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	p := newFakeProvider()
	p.users[token] = p.users["good-token"]

	svc := NewService(p, "http://localhost:3000", log)
	h := NewHandler(svc, validation.New(), log)

	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.SignUp)
		r.Post("/signin", h.SignIn)
		r.Post("/refresh", h.Refresh)
		r.Post("/reset-password", h.ResetPassword)
		r.Post("/verify-token", h.VerifyToken)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(svc, log))
			r.Post("/signout", h.SignOut)
			r.Get("/me", h.Me)
		})
	})
	return r, p, token
}

func do(t *testing.T, h http.Handler, method, path, body, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestHandlerSignUp(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rec, env := do(t, h, http.MethodPost, "/auth/signup", `{"email":"new@example.com","password":"secret1"}`, "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)

	rec, env = do(t, h, http.MethodPost, "/auth/signup", `{"email":"not-an-email","password":"x"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "email must be a valid email address")
}

func TestHandlerSignIn(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rec, env := do(t, h, http.MethodPost, "/auth/signin", `{"email":"jane@example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var pair TokenPair
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	assert.Equal(t, "good-token", pair.AccessToken)

	rec, env = do(t, h, http.MethodPost, "/auth/signin", `{"email":"jane@example.com","password":"wrong-pass"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid login credentials", env.Error)
}

func TestHandlerMeAndSignOut(t *testing.T) {
	h, p, token := newTestRouter(t)

	rec, _ := do(t, h, http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := do(t, h, http.MethodGet, "/auth/me", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var me meData
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "u1", me.User.ID)

	rec, _ = do(t, h, http.MethodPost, "/auth/signout", "", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{token}, p.signedOut)
}

func TestHandlerVerifyToken(t *testing.T) {
	h, _, token := newTestRouter(t)

	rec, env := do(t, h, http.MethodPost, "/auth/verify-token", `{"token":"`+token+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res VerifyResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.Valid)

	rec, env = do(t, h, http.MethodPost, "/auth/verify-token", `{"token":"nope"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.False(t, res.Valid)

	rec, _ = do(t, h, http.MethodPost, "/auth/verify-token", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerResetPasswordAndRefresh(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rec, _ := do(t, h, http.MethodPost, "/auth/reset-password", `{"email":"jane@example.com"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/auth/refresh", `{"refresh_token":"rt-1"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/auth/refresh", `{"refresh_token":"old"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/auth/refresh", `not json`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerRejectsOversizedBody(t *testing.T) {
	h, _, _ := newTestRouter(t)
	body := `{"email":"jane@example.com","password":"secret1","pad":"` + strings.Repeat("a", maxJSONBody) + `"}`

	rec, env := do(t, h, http.MethodPost, "/auth/signin", body, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", env.Error)
}
