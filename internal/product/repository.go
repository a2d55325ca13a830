package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/catalog/service/internal/apperror"
	"github.com/catalog/service/internal/category"
)

// Repository handles all product database operations. Every read joins the owning category.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// selectJoined reads products from the relation named "p" joined with their category.
const selectJoined = `SELECT p.id, p.name, p.description, p.price, p.category_id, p.picture, p.created_at, p.updated_at,
       c.id, c.name, c.description, c.created_at, c.updated_at
FROM %s
JOIN categories c ON c.id = p.category_id`

func scanProduct(row pgx.Row) (*Product, error) {
	p := &Product{Category: &category.Category{}}
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.CategoryID, &p.Picture, &p.CreatedAt, &p.UpdatedAt,
		&p.Category.ID, &p.Category.Name, &p.Category.Description, &p.Category.CreatedAt, &p.Category.UpdatedAt,
	)
	return p, err
}

// buildWhere renders c as a WHERE clause over alias p with positional args starting at $1.
func buildWhere(c Criteria) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(expr string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}
	if c.CategoryID != nil {
		add("p.category_id = $%d", *c.CategoryID)
	}
	if c.MinPrice != nil {
		add("p.price >= $%d", *c.MinPrice)
	}
	if c.MaxPrice != nil {
		add("p.price <= $%d", *c.MaxPrice)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// FindMany returns one page of products matching c, newest first.
func (r *Repository) FindMany(ctx context.Context, c Criteria, offset, limit int) ([]Product, error) {
	where, args := buildWhere(c)
	args = append(args, limit, offset)
	query := fmt.Sprintf(selectJoined, "products p") + where +
		fmt.Sprintf(" ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Product, error) {
		p, err := scanProduct(row)
		if err != nil {
			return Product{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return products, nil
}

// Count returns the number of products matching c.
func (r *Repository) Count(ctx context.Context, c Criteria) (int, error) {
	where, args := buildWhere(c)
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

// FindByID fetches a product. A missing row yields apperror.ErrNotFound.
func (r *Repository) FindByID(ctx context.Context, id string) (*Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx,
		fmt.Sprintf(selectJoined, "products p")+` WHERE p.id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("product with ID %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return p, nil
}

// Create inserts a product and returns it with its category.
func (r *Repository) Create(ctx context.Context, np NewProduct) (*Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx,
		`WITH p AS (
		     INSERT INTO products (name, description, price, category_id, picture)
		     VALUES ($1, $2, $3, $4, $5)
		     RETURNING *
		 ) `+fmt.Sprintf(selectJoined, "p"),
		np.Name, np.Description, np.Price, np.CategoryID, np.Picture,
	))
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// Update applies ch and returns the updated product with its category.
func (r *Repository) Update(ctx context.Context, id string, ch Changes) (*Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx,
		`WITH p AS (
		     UPDATE products
		     SET name        = COALESCE($2, name),
		         description = CASE WHEN $7::boolean THEN NULL ELSE COALESCE($3, description) END,
		         price       = COALESCE($4, price),
		         category_id = COALESCE($5, category_id),
		         picture     = COALESCE($6, picture),
		         updated_at  = NOW()
		     WHERE id = $1
		     RETURNING *
		 ) `+fmt.Sprintf(selectJoined, "p"),
		id, ch.Name, ch.Description, ch.Price, ch.CategoryID, ch.Picture, ch.ClearDescription,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("product with ID %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

// Delete removes a product and returns the deleted row with its category.
func (r *Repository) Delete(ctx context.Context, id string) (*Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx,
		`WITH p AS (DELETE FROM products WHERE id = $1 RETURNING *) `+fmt.Sprintf(selectJoined, "p"), id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("product with ID %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("delete product: %w", err)
	}
	return p, nil
}
