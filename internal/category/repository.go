// Package category manages product categories.
package category

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/catalog/service/internal/apperror"
)

// Category is a named group of products.
type Category struct {
	ID          string    `json:"id"          example:"3f1a7c52-3c1e-4c44-9a0e-0c8b0c6d8f10"`
	Name        string    `json:"name"        example:"Electronics"`
	Description string    `json:"description" example:"Electronic devices and gadgets"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Detail is a category together with the products it owns.
type Detail struct {
	Category
	Products []ProductSummary `json:"products"`
}

// ProductSummary is a product as listed under its category.
type ProductSummary struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price" swaggertype:"number"`
	Picture     *string         `json:"picture"`
	CategoryID  string          `json:"categoryId"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Patch holds the optional fields of a category update.
type Patch struct {
	Name        *string
	Description *string
}

// Repository handles all category database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const categoryColumns = `id, name, description, created_at, updated_at`

func scanCategory(row pgx.Row) (*Category, error) {
	c := &Category{}
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create inserts a category. A name collision yields apperror.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, name, description string) (*Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx,
		`INSERT INTO categories (name, description)
		 VALUES ($1, $2)
		 RETURNING `+categoryColumns,
		name, description,
	))
	if err != nil {
		return nil, apperror.FromPg(fmt.Errorf("create category: %w", err), "category")
	}
	return c, nil
}

// List returns all categories ordered by name.
func (r *Repository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	cats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Category, error) {
		c, err := scanCategory(row)
		if err != nil {
			return Category{}, err
		}
		return *c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}
	return cats, nil
}

// FindByID fetches a category. A missing row yields apperror.ErrNotFound.
func (r *Repository) FindByID(ctx context.Context, id string) (*Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("category with ID %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get category by id: %w", err)
	}
	return c, nil
}

// Exists reports whether a category with id exists.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check category existence: %w", err)
	}
	return exists, nil
}

// ListProducts returns the products of a category, newest first.
func (r *Repository) ListProducts(ctx context.Context, categoryID string) ([]ProductSummary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, description, price, picture, category_id, created_at, updated_at
		 FROM products
		 WHERE category_id = $1
		 ORDER BY created_at DESC`,
		categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("list category products: %w", err)
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProductSummary, error) {
		var p ProductSummary
		err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Picture, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan category products: %w", err)
	}
	return products, nil
}

// Update applies patch. Nil fields are left unchanged.
func (r *Repository) Update(ctx context.Context, id string, patch Patch) (*Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx,
		`UPDATE categories
		 SET name        = COALESCE($2, name),
		     description = COALESCE($3, description),
		     updated_at  = NOW()
		 WHERE id = $1
		 RETURNING `+categoryColumns,
		id, patch.Name, patch.Description,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("category with ID %s not found", id)
	}
	if err != nil {
		return nil, apperror.FromPg(fmt.Errorf("update category: %w", err), "category")
	}
	return c, nil
}

// Delete removes a category and returns the deleted row. Categories that still own
// products are refused with apperror.ErrConflict.
func (r *Repository) Delete(ctx context.Context, id string) (*Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx,
		`DELETE FROM categories WHERE id = $1 RETURNING `+categoryColumns, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("category with ID %s not found", id)
	}
	if apperror.PgCode(err) == apperror.PgForeignKeyViolation {
		return nil, &apperror.Error{
			Kind:    apperror.ErrConflict,
			Message: "category still has products; delete or move them first",
			Err:     err,
		}
	}
	if err != nil {
		return nil, fmt.Errorf("delete category: %w", err)
	}
	return c, nil
}
