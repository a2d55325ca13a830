// Package user exposes the application's users table.
package user

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// User represents a row of the users table.
type User struct {
	ID        string    `json:"id"        example:"e7eedc79-0707-4fe4-8734-526b7ef13a7b"`
	Email     string    `json:"email"     example:"jane@example.com"`
	Name      *string   `json:"name,omitempty" example:"Jane"`
	CreatedAt time.Time `json:"createdAt" example:"2026-02-27T14:48:34Z"`
	UpdatedAt time.Time `json:"updatedAt" example:"2026-02-27T14:48:34Z"`
}

// Repository handles all user database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// List returns every user, newest first.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, email, name, created_at, updated_at
		 FROM users
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) {
		var u User
		err := row.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return users, nil
}
