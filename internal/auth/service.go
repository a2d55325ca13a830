package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/catalog/service/internal/apperror"
	"github.com/catalog/service/internal/middleware"
)

// SignUpResult is returned by SignUp. Session is nil until the email is confirmed.
type SignUpResult struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
	Message string   `json:"message"`
}

// TokenPair is returned by SignIn and Refresh.
type TokenPair struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// VerifyResult reports whether a token is accepted by the provider.
type VerifyResult struct {
	Valid bool   `json:"valid"`
	User  *User  `json:"user,omitempty"`
	Error string `json:"error,omitempty"`
}

// Service contains the business logic for provider-backed authentication.
type Service struct {
	provider    Provider
	frontendURL string
	log         logrus.FieldLogger
}

// NewService creates a new auth Service. frontendURL is the base of the password reset redirect.
func NewService(provider Provider, frontendURL string, log logrus.FieldLogger) *Service {
	return &Service{
		provider:    provider,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log.WithField("component", "auth"),
	}
}

// SignUp registers an account with the provider.
func (s *Service) SignUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	u, sess, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, s.classify(err, apperror.ErrValidation, "sign up")
	}
	return &SignUpResult{
		User:    u,
		Session: sess,
		Message: "User created successfully. Please check your email for verification.",
	}, nil
}

// SignIn exchanges credentials for a token pair.
func (s *Service) SignIn(ctx context.Context, email, password string) (*TokenPair, error) {
	sess, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, s.classify(err, apperror.ErrAuth, "sign in")
	}
	return pair(sess), nil
}

// Refresh rotates a refresh token into a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	sess, err := s.provider.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, s.classify(err, apperror.ErrAuth, "refresh")
	}
	return pair(sess), nil
}

// SignOut revokes the caller's session.
func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	if err := s.provider.SignOut(ctx, accessToken); err != nil {
		return s.classify(err, apperror.ErrAuth, "sign out")
	}
	return nil
}

// ResetPassword asks the provider to email a recovery link pointing at the frontend.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	if err := s.provider.ResetPassword(ctx, email, s.frontendURL+"/reset-password"); err != nil {
		return s.classify(err, apperror.ErrValidation, "reset password")
	}
	return nil
}

// VerifyToken reports whether token is accepted by the provider. A rejected token is a
// result, not an error; provider outages are errors.
func (s *Service) VerifyToken(ctx context.Context, token string) (*VerifyResult, error) {
	u, err := s.provider.GetUser(ctx, token)
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) && perr.Rejected() {
			return &VerifyResult{Valid: false, Error: perr.Message}, nil
		}
		return nil, s.classify(err, apperror.ErrAuth, "verify token")
	}
	return &VerifyResult{Valid: true, User: u}, nil
}

// Verify implements middleware.TokenVerifier.
func (s *Service) Verify(ctx context.Context, accessToken string) (*middleware.Identity, error) {
	u, err := s.provider.GetUser(ctx, accessToken)
	if err != nil {
		return nil, s.classify(err, apperror.ErrAuth, "get user")
	}
	return &middleware.Identity{ID: u.ID, Email: u.Email, Role: u.Role, Aud: u.Aud}, nil
}

// classify maps a provider rejection to rejectKind with the provider's message and anything
// else to an internal error.
func (s *Service) classify(err error, rejectKind error, op string) error {
	var perr *ProviderError
	if errors.As(err, &perr) && perr.Rejected() {
		s.log.WithFields(logrus.Fields{"op": op, "status": perr.Status}).Debug(perr.Message)
		return &apperror.Error{Kind: rejectKind, Message: perr.Message, Err: err}
	}
	s.log.WithError(err).WithField("op", op).Error("auth provider call failed")
	return apperror.Internal(err)
}

func pair(sess *Session) *TokenPair {
	return &TokenPair{
		User:         sess.User,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
	}
}
