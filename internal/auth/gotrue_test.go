package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGoTrue(t *testing.T, h http.HandlerFunc) *GoTrueProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewGoTrueProvider(srv.URL+"/auth/v1/", "anon-key", srv.Client())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGoTrueSignIn(t *testing.T) {
	p := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		var body credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "jane@example.com", body.Email)

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"access_token":  "at",
			"refresh_token": "rt",
			"token_type":    "bearer",
			"expires_in":    3600,
			"user":          map[string]interface{}{"id": "u1", "email": "jane@example.com"},
		})
	})

	sess, err := p.SignIn(context.Background(), "jane@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "at", sess.AccessToken)
	assert.Equal(t, "rt", sess.RefreshToken)
	require.NotNil(t, sess.User)
	assert.Equal(t, "u1", sess.User.ID)
}

func TestGoTrueSignInRejected(t *testing.T) {
	p := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "invalid_grant",
			"error_description": "Invalid login credentials",
		})
	})

	_, err := p.SignIn(context.Background(), "jane@example.com", "wrong")

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.True(t, perr.Rejected())
	assert.Equal(t, "Invalid login credentials", perr.Message)
}

func TestGoTrueSignUpWithoutSession(t *testing.T) {
	p := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": "u2", "email": "new@example.com", "aud": "authenticated"})
	})

	u, sess, err := p.SignUp(context.Background(), "new@example.com", "secret1")
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Equal(t, "u2", u.ID)
}

func TestGoTrueGetUserUsesBearer(t *testing.T) {
	p := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer user-token" {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"code": 401, "msg": "invalid JWT"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": "u1", "role": "authenticated"})
	})

	u, err := p.GetUser(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "authenticated", u.Role)

	_, err = p.GetUser(context.Background(), "other")
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "invalid JWT", perr.Message)
}

func TestGoTrueResetPasswordRedirect(t *testing.T) {
	p := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/recover", r.URL.Path)
		assert.Equal(t, "http://localhost:3000/reset-password", r.URL.Query().Get("redirect_to"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})

	require.NoError(t, p.ResetPassword(context.Background(), "jane@example.com", "http://localhost:3000/reset-password"))
}

func TestGoTrueServerError(t *testing.T) {
	p := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := p.SignOut(context.Background(), "tok")
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.False(t, perr.Rejected())
	assert.Equal(t, "502 Bad Gateway", perr.Message)
}
