package category

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/catalog/service/internal/response"
	"github.com/catalog/service/internal/validation"
)

const maxJSONBody = 1 << 20

// Handler holds HTTP handlers for category endpoints.
type Handler struct {
	svc      *Service
	validate *validation.Validator
	log      logrus.FieldLogger
}

// NewHandler creates a new category Handler.
func NewHandler(svc *Service, validate *validation.Validator, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, validate: validate, log: log}
}

type createRequest struct {
	Name        string `json:"name"        validate:"required,min=1,max=255"  example:"Electronics"`
	Description string `json:"description" validate:"required,min=1,max=1000" example:"Electronic devices and gadgets"`
}

type updateRequest struct {
	Name        *string `json:"name"        validate:"omitempty,min=1,max=255"  example:"Gadgets"`
	Description *string `json:"description" validate:"omitempty,min=1,max=1000" example:"Small electronic devices"`
}

// Create godoc
//
//	@Summary		Create category
//	@Tags			categories
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		createRequest	true	"Category"
//	@Success		201		{object}	response.Envelope{data=Category}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		409		{object}	response.Envelope
//	@Router			/categories [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.FromError(w, h.log, err)
		return
	}

	c, err := h.svc.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Created(w, c)
}

// List godoc
//
//	@Summary		List categories
//	@Tags			categories
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=[]Category}
//	@Failure		401	{object}	response.Envelope
//	@Router			/categories [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.List(r.Context())
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, cats)
}

// Get godoc
//
//	@Summary		Get category
//	@Description	Returns the category with its products.
//	@Tags			categories
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Category ID"
//	@Success		200	{object}	response.Envelope{data=Detail}
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/categories/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, c)
}

// Update godoc
//
//	@Summary		Update category
//	@Tags			categories
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string			true	"Category ID"
//	@Param			request	body		updateRequest	true	"Fields to change"
//	@Success		200		{object}	response.Envelope{data=Category}
//	@Failure		400		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		409		{object}	response.Envelope
//	@Router			/categories/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.FromError(w, h.log, err)
		return
	}

	c, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), Patch{Name: req.Name, Description: req.Description})
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, c)
}

// Delete godoc
//
//	@Summary		Delete category
//	@Description	Categories that still own products cannot be deleted.
//	@Tags			categories
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Category ID"
//	@Success		200	{object}	response.Envelope{data=Category}
//	@Failure		404	{object}	response.Envelope
//	@Failure		409	{object}	response.Envelope
//	@Router			/categories/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, c)
}
