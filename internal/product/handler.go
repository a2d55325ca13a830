package product

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/catalog/service/internal/apperror"
	"github.com/catalog/service/internal/response"
)

const (
	// multipartOverhead is the body allowance on top of the image ceiling for the other form parts.
	multipartOverhead = 1 << 20
	maxJSONBody       = 1 << 20
)

// Handler holds HTTP handlers for product endpoints.
type Handler struct {
	svc *Service
	log logrus.FieldLogger
}

// NewHandler creates a new product Handler.
func NewHandler(svc *Service, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, log: log}
}

// productRequest is the body of create and update. As a multipart form every field is a text part
// and the image is the "picture" file part.
type productRequest struct {
	Name        *string          `json:"name"        example:"Widget"`
	Description *string          `json:"description" example:"A very useful widget"`
	Price       *decimal.Decimal `json:"price"       swaggertype:"number" example:"19.99"`
	CategoryID  *string          `json:"categoryId"  example:"3f1a7c52-3c1e-4c44-9a0e-0c8b0c6d8f10"`
}

// Create godoc
//
//	@Summary		Create product
//	@Description	Accepts JSON or multipart/form-data. With multipart, an optional "picture" file (jpeg, png, gif or webp, at most 5 MiB) is stored and its public URL becomes the product picture.
//	@Tags			products
//	@Accept			json,mpfd
//	@Produce		json
//	@Param			name		formData	string	true	"Name"
//	@Param			description	formData	string	false	"Description"
//	@Param			price		formData	number	true	"Price"
//	@Param			categoryId	formData	string	true	"Category ID"
//	@Param			picture		formData	file	false	"Product image"
//	@Success		201			{object}	response.Envelope{data=Product}
//	@Failure		400			{object}	response.Envelope
//	@Failure		409			{object}	response.Envelope
//	@Router			/products [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, file, cleanup, err := h.decode(w, r)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	defer cleanup()

	if req.Price == nil {
		response.FromError(w, h.log, apperror.Validation("price is required"))
		return
	}
	in := CreateInput{
		Description: req.Description,
		Price:       *req.Price,
	}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.CategoryID != nil {
		in.CategoryID = *req.CategoryID
	}

	p, err := h.svc.Create(r.Context(), in, file)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Created(w, p)
}

// List godoc
//
//	@Summary		List products
//	@Description	Filters conjunctively by category and price range; newest first.
//	@Tags			products
//	@Produce		json
//	@Param			categoryId	query		string	false	"Category ID"
//	@Param			minPrice	query		number	false	"Minimum price"
//	@Param			maxPrice	query		number	false	"Maximum price"
//	@Param			page		query		int		false	"Page (default 1)"
//	@Param			limit		query		int		false	"Page size, 1-100 (default 10)"
//	@Success		200			{object}	response.Envelope{data=Page}
//	@Failure		400			{object}	response.Envelope
//	@Router			/products [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}

	page, err := h.svc.List(r.Context(), f)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, page)
}

// Get godoc
//
//	@Summary	Get product
//	@Tags		products
//	@Produce	json
//	@Param		id	path		string	true	"Product ID"
//	@Success	200	{object}	response.Envelope{data=Product}
//	@Failure	404	{object}	response.Envelope
//	@Router		/products/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, p)
}

// Update godoc
//
//	@Summary		Update product
//	@Description	Partial update. A new "picture" file replaces the stored image; without one the picture is kept. An empty description clears it.
//	@Tags			products
//	@Accept			json,mpfd
//	@Produce		json
//	@Param			id			path		string	true	"Product ID"
//	@Param			name		formData	string	false	"Name"
//	@Param			description	formData	string	false	"Description"
//	@Param			price		formData	number	false	"Price"
//	@Param			categoryId	formData	string	false	"Category ID"
//	@Param			picture		formData	file	false	"Replacement image"
//	@Success		200			{object}	response.Envelope{data=Product}
//	@Failure		400			{object}	response.Envelope
//	@Failure		404			{object}	response.Envelope
//	@Failure		409			{object}	response.Envelope
//	@Router			/products/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	req, file, cleanup, err := h.decode(w, r)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	defer cleanup()

	in := UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
	}
	p, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), in, file)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, p)
}

// Delete godoc
//
//	@Summary		Delete product
//	@Description	Deletes the product and then its stored image.
//	@Tags			products
//	@Produce		json
//	@Param			id	path		string	true	"Product ID"
//	@Success		200	{object}	response.Envelope{data=Product}
//	@Failure		404	{object}	response.Envelope
//	@Router			/products/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, p)
}

// decode reads a JSON or multipart body. cleanup releases any spooled multipart files and is
// non-nil whenever err is nil.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*productRequest, *File, func(), error) {
	noop := func() {}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType != "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		var req productRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, nil, nil, apperror.Validation("invalid request body")
		}
		return &req, nil, noop, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.svc.MaxImageBytes()+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, nil, apperror.Validation("picture must be at most %d bytes", h.svc.MaxImageBytes())
		}
		return nil, nil, nil, apperror.Validation("invalid multipart body")
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	req := &productRequest{
		Name:        formValue(r, "name"),
		Description: formValue(r, "description"),
		CategoryID:  formValue(r, "categoryId"),
	}
	if raw := formValue(r, "price"); raw != nil {
		d, err := decimal.NewFromString(*raw)
		if err != nil {
			cleanup()
			return nil, nil, nil, apperror.Validation("price must be a number")
		}
		req.Price = &d
	}

	f, header, err := r.FormFile("picture")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, cleanup, nil
	}
	if err != nil {
		cleanup()
		return nil, nil, nil, apperror.Validation("invalid picture upload")
	}
	file := &File{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      f,
	}
	return req, file, func() { _ = f.Close(); cleanup() }, nil
}

// formValue returns the named multipart text part, or nil when the client did not send it.
func formValue(r *http.Request, key string) *string {
	vs, ok := r.MultipartForm.Value[key]
	if !ok || len(vs) == 0 {
		return nil
	}
	return &vs[0]
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	var f Filter

	if v := q.Get("categoryId"); v != "" {
		f.CategoryID = &v
	}
	for _, p := range []struct {
		key string
		dst **decimal.Decimal
	}{{"minPrice", &f.MinPrice}, {"maxPrice", &f.MaxPrice}} {
		if v := q.Get(p.key); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return Filter{}, apperror.Validation("%s must be a number", p.key)
			}
			*p.dst = &d
		}
	}
	for _, p := range []struct {
		key string
		dst **int
	}{{"page", &f.Page}, {"limit", &f.Limit}} {
		if v := q.Get(p.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return Filter{}, apperror.Validation("%s must be an integer", p.key)
			}
			*p.dst = &n
		}
	}
	return f, nil
}
