package user

import (
	"context"

	"github.com/catalog/service/internal/apperror"
)

// Lister reads users from the store.
type Lister interface {
	List(ctx context.Context) ([]User, error)
}

// Service contains business logic for user listing.
type Service struct {
	repo Lister
}

// NewService creates a new user Service.
func NewService(repo Lister) *Service {
	return &Service{repo: repo}
}

// List returns all users. An empty table yields an empty, non-nil slice.
func (s *Service) List(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}
