package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/catalog/service/internal/apperror"
	"github.com/catalog/service/internal/response"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const (
	identityKey contextKey = "identity"
	tokenKey    contextKey = "accessToken"
)

// Identity is the authenticated caller as reported by the auth provider.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Aud   string `json:"aud"`
}

// TokenVerifier resolves an access token to an identity. Implementations call the auth provider.
type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (*Identity, error)
}

// IdentityFrom returns the identity injected by RequireAuth.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

// AccessTokenFrom returns the raw bearer token accepted by RequireAuth.
func AccessTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// WithIdentity stores identity and token on ctx. RequireAuth uses it; tests may too.
func WithIdentity(ctx context.Context, identity *Identity, accessToken string) context.Context {
	ctx = context.WithValue(ctx, identityKey, identity)
	return context.WithValue(ctx, tokenKey, accessToken)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header required")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errors.New("invalid authorization header format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// RequireAuth returns middleware that validates a Bearer token against the auth provider
// and injects the resolved identity into the request context.
//
// Tokens that are not well-formed JWTs or whose exp claim has passed are rejected locally;
// everything else is checked by verifier on every request.
func RequireAuth(verifier TokenVerifier, log logrus.FieldLogger) func(http.Handler) http.Handler {
	parser := jwt.NewParser()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			claims := jwt.MapClaims{}
			if _, _, err := parser.ParseUnverified(token, claims); err != nil {
				response.Unauthorized(w, "invalid or expired token")
				return
			}
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(time.Now()) {
				response.Unauthorized(w, "invalid or expired token")
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				if errors.Is(err, apperror.ErrAuth) {
					response.Unauthorized(w, "invalid or expired token")
					return
				}
				response.FromError(w, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity, token)))
		})
	}
}
