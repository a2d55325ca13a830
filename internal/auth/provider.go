// Package auth delegates user authentication to a hosted GoTrue-compatible auth provider
// (for example Supabase Auth) and exposes the /auth endpoints.
package auth

import (
	"context"
	"fmt"
	"time"
)

// User is the provider's view of an account.
type User struct {
	ID           string                 `json:"id"`
	Aud          string                 `json:"aud"`
	Role         string                 `json:"role"`
	Email        string                 `json:"email"`
	ConfirmedAt  *time.Time             `json:"confirmed_at,omitempty"`
	LastSignInAt *time.Time             `json:"last_sign_in_at,omitempty"`
	AppMetadata  map[string]interface{} `json:"app_metadata,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// Session is an issued token pair.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	User         *User  `json:"user,omitempty"`
}

// Provider is the capability surface of the hosted auth service.
type Provider interface {
	// SignUp registers an account. The returned session is nil when the provider
	// requires email confirmation first.
	SignUp(ctx context.Context, email, password string) (*User, *Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	// SignOut revokes the session that accessToken belongs to.
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*User, error)
	ResetPassword(ctx context.Context, email, redirectTo string) error
}

// ProviderError is a non-2xx answer from the provider.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("auth provider: %d %s", e.Status, e.Message)
}

// Rejected reports whether the provider refused the request (4xx) rather than failing.
func (e *ProviderError) Rejected() bool {
	return e.Status >= 400 && e.Status < 500
}
