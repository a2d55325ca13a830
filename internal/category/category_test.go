package category

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalog/service/internal/apperror"
	"github.com/catalog/service/internal/validation"
)

// memStore is an in-memory Store enforcing unique names and restrict-on-delete.
type memStore struct {
	cats     map[string]*Category
	products map[string][]ProductSummary
}

func newMemStore() *memStore {
	return &memStore{cats: map[string]*Category{}, products: map[string][]ProductSummary{}}
}

func (m *memStore) nameTaken(name, except string) bool {
	for id, c := range m.cats {
		if c.Name == name && id != except {
			return true
		}
	}
	return false
}

func (m *memStore) Create(_ context.Context, name, description string) (*Category, error) {
	if m.nameTaken(name, "") {
		return nil, apperror.Duplicate("category with this name already exists")
	}
	now := time.Now()
	c := &Category{ID: uuid.NewString(), Name: name, Description: description, CreatedAt: now, UpdatedAt: now}
	m.cats[c.ID] = c
	cp := *c
	return &cp, nil
}

func (m *memStore) List(context.Context) ([]Category, error) {
	out := make([]Category, 0, len(m.cats))
	for _, c := range m.cats {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*Category, error) {
	c, ok := m.cats[id]
	if !ok {
		return nil, apperror.NotFound("category with ID %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) ListProducts(_ context.Context, id string) ([]ProductSummary, error) {
	return m.products[id], nil
}

func (m *memStore) Update(_ context.Context, id string, patch Patch) (*Category, error) {
	c, ok := m.cats[id]
	if !ok {
		return nil, apperror.NotFound("category with ID %s not found", id)
	}
	if patch.Name != nil {
		if m.nameTaken(*patch.Name, id) {
			return nil, apperror.Duplicate("category with this name already exists")
		}
		c.Name = *patch.Name
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) Delete(_ context.Context, id string) (*Category, error) {
	c, ok := m.cats[id]
	if !ok {
		return nil, apperror.NotFound("category with ID %s not found", id)
	}
	if len(m.products[id]) > 0 {
		return nil, apperror.Conflict("category still has products; delete or move them first")
	}
	delete(m.cats, id)
	return c, nil
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	log, _ := test.NewNullLogger()
	store := newMemStore()
	return NewService(store, log), store
}

func TestServiceCreateDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "Electronics", "Devices")
	require.NoError(t, err)

	_, err = svc.Create(ctx, "Electronics", "Again")
	assert.ErrorIs(t, err, apperror.ErrDuplicate)
}

func TestServiceGetIncludesProducts(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "Books", "Paper")
	require.NoError(t, err)

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Products)
	assert.Empty(t, got.Products)

	store.products[c.ID] = []ProductSummary{{ID: uuid.NewString(), Name: "Go Book", Price: decimal.RequireFromString("39.90"), CategoryID: c.ID}}
	got, err = svc.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Products, 1)
	assert.Equal(t, "Go Book", got.Products[0].Name)
}

func TestServiceNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	name := "x"

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		_, err := svc.Get(ctx, id)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
		_, err = svc.Update(ctx, id, Patch{Name: &name})
		assert.ErrorIs(t, err, apperror.ErrNotFound)
		_, err = svc.Delete(ctx, id)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	}
}

func TestServiceDeleteRestrictsOwnedProducts(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "Toys", "Fun")
	require.NoError(t, err)
	store.products[c.ID] = []ProductSummary{{ID: uuid.NewString(), Name: "Ball", CategoryID: c.ID}}

	_, err = svc.Delete(ctx, c.ID)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	delete(store.products, c.ID)
	deleted, err := svc.Delete(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Toys", deleted.Name)
}

func newTestRouter(t *testing.T) (http.Handler, *memStore) {
	t.Helper()
	log, _ := test.NewNullLogger()
	svc, store := newTestService(t)
	h := NewHandler(svc, validation.New(), log)

	r := chi.NewRouter()
	r.Route("/categories", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
	return r, store
}

func send(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCRUD(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := send(h, http.MethodPost, "/categories", `{"name":"Electronics","description":"Devices"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data Category `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created.Data.ID

	rec = send(h, http.MethodPost, "/categories", `{"name":"Electronics","description":"Devices"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = send(h, http.MethodPatch, "/categories/"+id, `{"description":"Gadgets"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"description":"Gadgets"`)
	assert.Contains(t, rec.Body.String(), `"name":"Electronics"`)

	rec = send(h, http.MethodGet, "/categories/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"products":[]`)

	rec = send(h, http.MethodGet, "/categories", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = send(h, http.MethodDelete, "/categories/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = send(h, http.MethodGet, "/categories/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerRejectsOversizedJSONBody(t *testing.T) {
	h, store := newTestRouter(t)
	body := `{"name":"Electronics","description":"` + strings.Repeat("a", maxJSONBody) + `"}`

	rec := send(h, http.MethodPost, "/categories", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
	assert.Empty(t, store.cats)

	rec = send(h, http.MethodPatch, "/categories/"+uuid.NewString(), body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}

func TestHandlerValidation(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := send(h, http.MethodPost, "/categories", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "name is required")

	rec = send(h, http.MethodPost, "/categories", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(h, http.MethodPatch, "/categories/"+uuid.NewString(), `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
