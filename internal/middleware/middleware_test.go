package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalog/service/internal/apperror"
)

type stubVerifier struct {
	identity *Identity
	err      error
	calls    int
}

func (s *stubVerifier) Verify(_ context.Context, _ string) (*Identity, error) {
	s.calls++
	return s.identity, s.err
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("provider-secret"))
	require.NoError(t, err)
	return token
}

func serve(t *testing.T, v TokenVerifier, header string) (*httptest.ResponseRecorder, *Identity) {
	t.Helper()
	log, _ := test.NewNullLogger()
	var seen *Identity
	h := RequireAuth(v, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFrom(r.Context())
		assert.NotEmpty(t, AccessTokenFrom(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func TestRequireAuthInjectsIdentity(t *testing.T) {
	v := &stubVerifier{identity: &Identity{ID: "user-1", Email: "a@b.c", Role: "authenticated"}}

	rec, seen := serve(t, v, "Bearer "+signedToken(t, time.Now().Add(time.Hour)))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "user-1", seen.ID)
	assert.Equal(t, 1, v.calls)
}

func TestRequireAuthRejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
		err    error
		calls  int
	}{
		{"missing header", "", nil, 0},
		{"wrong scheme", "Basic abc", nil, 0},
		{"not a jwt", "Bearer not-a-token", nil, 0},
		{"expired", "Bearer " + signedToken(t, time.Now().Add(-time.Minute)), nil, 0},
		{"provider rejects", "Bearer " + signedToken(t, time.Now().Add(time.Hour)), apperror.Auth("bad jwt"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &stubVerifier{err: tt.err}
			rec, seen := serve(t, v, tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, seen)
			assert.Equal(t, tt.calls, v.calls)
		})
	}
}

func TestRequireAuthProviderOutage(t *testing.T) {
	v := &stubVerifier{err: apperror.Internal(errors.New("dial tcp: connection refused"))}

	rec, _ := serve(t, v, "Bearer "+signedToken(t, time.Now().Add(time.Hour)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestLoggerRecordsStatus(t *testing.T) {
	log, hook := test.NewNullLogger()
	h := Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/x", nil))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, http.StatusNotFound, entry.Data["status"])
	assert.Equal(t, "/products/x", entry.Data["path"])
}
