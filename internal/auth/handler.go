package auth

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/catalog/service/internal/middleware"
	"github.com/catalog/service/internal/response"
	"github.com/catalog/service/internal/validation"
)

const maxJSONBody = 1 << 20

// Handler holds HTTP handlers for auth endpoints.
type Handler struct {
	svc      *Service
	validate *validation.Validator
	log      logrus.FieldLogger
}

// NewHandler creates a new auth Handler.
func NewHandler(svc *Service, validate *validation.Validator, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, validate: validate, log: log}
}

type credentialsRequest struct {
	Email    string `json:"email"    validate:"required,email"        example:"jane@example.com"`
	Password string `json:"password" validate:"required,min=6,max=72" example:"s3cret-pass"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required" example:"v1.MnKq..."`
}

type resetPasswordRequest struct {
	Email string `json:"email" validate:"required,email" example:"jane@example.com"`
}

type verifyTokenRequest struct {
	Token string `json:"token" validate:"required" example:"eyJhbGci..."`
}

type messageData struct {
	Message string `json:"message" example:"Signed out successfully"`
}

type meData struct {
	User    *middleware.Identity `json:"user"`
	Message string               `json:"message" example:"User authenticated successfully"`
}

// decode reads a JSON body into dst and validates it. It writes the error response itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		response.FromError(w, h.log, err)
		return false
	}
	return true
}

// SignUp godoc
//
//	@Summary		Register
//	@Description	Create an account at the auth provider. The session is null until the email address is confirmed.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		credentialsRequest	true	"Email and password"
//	@Success		201		{object}	response.Envelope{data=SignUpResult}
//	@Failure		400		{object}	response.Envelope
//	@Router			/auth/signup [post]
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.svc.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Created(w, result)
}

// SignIn godoc
//
//	@Summary		Log in
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		credentialsRequest	true	"Email and password"
//	@Success		200		{object}	response.Envelope{data=TokenPair}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Router			/auth/signin [post]
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}
	pair, err := h.svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, pair)
}

// SignOut godoc
//
//	@Summary		Log out
//	@Description	Revoke the session that the bearer token belongs to.
//	@Tags			auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=messageData}
//	@Failure		401	{object}	response.Envelope
//	@Router			/auth/signout [post]
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SignOut(r.Context(), middleware.AccessTokenFrom(r.Context())); err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, messageData{Message: "Signed out successfully"})
}

// Refresh godoc
//
//	@Summary		Refresh access token
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		refreshRequest	true	"Refresh token"
//	@Success		200		{object}	response.Envelope{data=TokenPair}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Router			/auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}
	pair, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, pair)
}

// Me godoc
//
//	@Summary		Current user
//	@Tags			auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=meData}
//	@Failure		401	{object}	response.Envelope
//	@Router			/auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	response.OK(w, meData{User: identity, Message: "User authenticated successfully"})
}

// ResetPassword godoc
//
//	@Summary		Request password reset
//	@Description	Ask the auth provider to email a recovery link that redirects to the frontend.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		resetPasswordRequest	true	"Account email"
//	@Success		200		{object}	response.Envelope{data=messageData}
//	@Failure		400		{object}	response.Envelope
//	@Router			/auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.Email); err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, messageData{Message: "Password reset email sent"})
}

// VerifyToken godoc
//
//	@Summary		Verify token
//	@Description	Report whether an access token is accepted by the auth provider.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		verifyTokenRequest	true	"Access token"
//	@Success		200		{object}	response.Envelope{data=VerifyResult}
//	@Failure		400		{object}	response.Envelope
//	@Router			/auth/verify-token [post]
func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var req verifyTokenRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.svc.VerifyToken(r.Context(), req.Token)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, result)
}
