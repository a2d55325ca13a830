package category

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/catalog/service/internal/apperror"
)

// Store is the persistence surface the category service needs.
type Store interface {
	Create(ctx context.Context, name, description string) (*Category, error)
	List(ctx context.Context) ([]Category, error)
	FindByID(ctx context.Context, id string) (*Category, error)
	ListProducts(ctx context.Context, categoryID string) ([]ProductSummary, error)
	Update(ctx context.Context, id string, patch Patch) (*Category, error)
	Delete(ctx context.Context, id string) (*Category, error)
}

// Service contains business logic for category management.
type Service struct {
	store Store
	log   logrus.FieldLogger
}

// NewService creates a new category Service.
func NewService(store Store, log logrus.FieldLogger) *Service {
	return &Service{store: store, log: log.WithField("component", "category")}
}

// Create adds a category.
func (s *Service) Create(ctx context.Context, name, description string) (*Category, error) {
	c, err := s.store.Create(ctx, name, description)
	if err != nil {
		return nil, classify(err)
	}
	s.log.WithField("category_id", c.ID).Info("category created")
	return c, nil
}

// List returns every category.
func (s *Service) List(ctx context.Context) ([]Category, error) {
	cats, err := s.store.List(ctx)
	if err != nil {
		return nil, classify(err)
	}
	if cats == nil {
		cats = []Category{}
	}
	return cats, nil
}

// Get returns a category with its products.
func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	products, err := s.store.ListProducts(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	if products == nil {
		products = []ProductSummary{}
	}
	return &Detail{Category: *c, Products: products}, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Category, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	c, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, classify(err)
	}
	s.log.WithField("category_id", id).Info("category updated")
	return c, nil
}

// Delete removes a category that owns no products.
func (s *Service) Delete(ctx context.Context, id string) (*Category, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	c, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	s.log.WithField("category_id", id).Info("category deleted")
	return c, nil
}

// checkID treats malformed ids as absent rows.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NotFound("category with ID %s not found", id)
	}
	return nil
}

func classify(err error) error {
	return apperror.FromPg(err, "category")
}
