package product

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/catalog/service/internal/apperror"
	"github.com/catalog/service/internal/category"
	"github.com/catalog/service/internal/validation"
)

// pngBytes is enough of a PNG for content sniffing.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

// memStore is an in-memory Store that enforces unique names and the category foreign key the
// way Postgres does, returning *pgconn.PgError values.
type memStore struct {
	mu         sync.Mutex
	rows       []*Product
	categories map[string]*category.Category
	clock      time.Time
	queries    int
}

func newMemStore() *memStore {
	return &memStore{categories: map[string]*category.Category{}, clock: time.Unix(1700000000, 0)}
}

func (m *memStore) addCategory(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &category.Category{ID: uuid.NewString(), Name: name, Description: name + " things"}
	m.categories[c.ID] = c
	return c.ID
}

func (m *memStore) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.categories[id]
	return ok, nil
}

func (m *memStore) snapshot(p *Product) *Product {
	cp := *p
	if c, ok := m.categories[p.CategoryID]; ok {
		cc := *c
		cp.Category = &cc
	}
	return &cp
}

func (m *memStore) nameTaken(name, except string) bool {
	for _, p := range m.rows {
		if p.Name == name && p.ID != except {
			return true
		}
	}
	return false
}

func (m *memStore) matches(p *Product, c Criteria) bool {
	if c.CategoryID != nil && p.CategoryID != *c.CategoryID {
		return false
	}
	if c.MinPrice != nil && p.Price.LessThan(*c.MinPrice) {
		return false
	}
	if c.MaxPrice != nil && p.Price.GreaterThan(*c.MaxPrice) {
		return false
	}
	return true
}

func (m *memStore) FindMany(_ context.Context, c Criteria, offset, limit int) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++

	var out []Product
	for _, p := range m.rows {
		if m.matches(p, c) {
			out = append(out, *m.snapshot(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) Count(_ context.Context, c Criteria) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++

	n := 0
	for _, p := range m.rows {
		if m.matches(p, c) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++

	for _, p := range m.rows {
		if p.ID == id {
			return m.snapshot(p), nil
		}
	}
	return nil, apperror.NotFound("product with ID %s not found", id)
}

func (m *memStore) Create(_ context.Context, np NewProduct) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++

	if m.nameTaken(np.Name, "") {
		return nil, &pgconn.PgError{Code: apperror.PgUniqueViolation}
	}
	if _, ok := m.categories[np.CategoryID]; !ok {
		return nil, &pgconn.PgError{Code: apperror.PgForeignKeyViolation}
	}
	m.clock = m.clock.Add(time.Second)
	p := &Product{
		ID:          uuid.NewString(),
		Name:        np.Name,
		Description: np.Description,
		Price:       np.Price,
		CategoryID:  np.CategoryID,
		Picture:     np.Picture,
		CreatedAt:   m.clock,
		UpdatedAt:   m.clock,
	}
	m.rows = append(m.rows, p)
	return m.snapshot(p), nil
}

func (m *memStore) Update(_ context.Context, id string, ch Changes) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++

	for _, p := range m.rows {
		if p.ID != id {
			continue
		}
		if ch.Name != nil && m.nameTaken(*ch.Name, id) {
			return nil, &pgconn.PgError{Code: apperror.PgUniqueViolation}
		}
		if ch.CategoryID != nil {
			if _, ok := m.categories[*ch.CategoryID]; !ok {
				return nil, &pgconn.PgError{Code: apperror.PgForeignKeyViolation}
			}
			p.CategoryID = *ch.CategoryID
		}
		if ch.Name != nil {
			p.Name = *ch.Name
		}
		if ch.Description != nil {
			p.Description = ch.Description
		}
		if ch.ClearDescription {
			p.Description = nil
		}
		if ch.Price != nil {
			p.Price = *ch.Price
		}
		if ch.Picture != nil {
			p.Picture = ch.Picture
		}
		m.clock = m.clock.Add(time.Second)
		p.UpdatedAt = m.clock
		return m.snapshot(p), nil
	}
	return nil, apperror.NotFound("product with ID %s not found", id)
}

func (m *memStore) Delete(_ context.Context, id string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++

	for i, p := range m.rows {
		if p.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return m.snapshot(p), nil
		}
	}
	return nil, apperror.NotFound("product with ID %s not found", id)
}

func (m *memStore) queryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries
}

func (m *memStore) referencing(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.rows {
		if p.Picture != nil && *p.Picture == url {
			n++
		}
	}
	return n
}

const blobBase = "http://blobs.test/product-images"

type blob struct {
	data        []byte
	contentType string
}

// memBlobs is an in-memory storage.Storage with injectable failures.
type memBlobs struct {
	mu        sync.Mutex
	objects   map[string]blob
	uploads   int
	uploadErr error
	deleteErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string]blob{}}
}

func (b *memBlobs) Upload(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads++
	if b.uploadErr != nil {
		return b.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects[key] = blob{data: data, contentType: contentType}
	return nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deleteErr != nil {
		return b.deleteErr
	}
	delete(b.objects, key)
	return nil
}

func (b *memBlobs) PublicURL(key string) string {
	return blobBase + "/" + key
}

func (b *memBlobs) ObjectKey(url string) (string, bool) {
	if !strings.HasPrefix(url, blobBase+"/") {
		return "", false
	}
	return strings.TrimPrefix(url, blobBase+"/"), true
}

func (b *memBlobs) has(url string) bool {
	key, ok := b.ObjectKey(url)
	if !ok {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok = b.objects[key]
	return ok
}

func (b *memBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

var errStorageDown = errors.New("storage unreachable")

type fixture struct {
	svc   *Service
	store *memStore
	blobs *memBlobs
	hook  *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log, hook := test.NewNullLogger()
	store := newMemStore()
	blobs := newMemBlobs()

	var tick int64
	now := func() time.Time {
		tick++
		return time.UnixMilli(1700000000000 + tick)
	}
	svc := NewService(store, store, blobs, validation.New(), Options{Now: now}, log)
	return &fixture{svc: svc, store: store, blobs: blobs, hook: hook}
}

func pngFile(name string) *File {
	return &File{Filename: name, ContentType: "image/png", Size: int64(len(pngBytes)), Reader: bytes.NewReader(pngBytes)}
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}
