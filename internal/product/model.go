// Package product implements the catalog workflow: product CRUD coupled with the lifecycle
// of each product's stored image.
package product

import (
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/catalog/service/internal/category"
)

// Product is a catalog entry. Picture is the public URL of its stored image, if any.
type Product struct {
	ID          string             `json:"id"          example:"8b7f6a0e-6d3c-4a55-9d8e-2a1f5c9b7e21"`
	Name        string             `json:"name"        example:"Widget"`
	Description *string            `json:"description" example:"A very useful widget"`
	Price       decimal.Decimal    `json:"price"       swaggertype:"number" example:"19.99"`
	CategoryID  string             `json:"categoryId"  example:"3f1a7c52-3c1e-4c44-9a0e-0c8b0c6d8f10"`
	Picture     *string            `json:"picture"     example:"http://localhost:9000/product-images/1700000000123-widget.png"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
	Category    *category.Category `json:"category,omitempty"`
}

// CreateInput holds the fields of a new product.
type CreateInput struct {
	Name        string          `json:"name"        validate:"required,min=1,max=255"`
	Description *string         `json:"description" validate:"omitempty,max=1000"`
	Price       decimal.Decimal `json:"price"       validate:"gte=0"`
	CategoryID  string          `json:"categoryId"  validate:"required,uuid"`
}

// UpdateInput holds the optional fields of a product update. Nil fields are unchanged; an empty
// Description clears it.
type UpdateInput struct {
	Name        *string          `json:"name"        validate:"omitempty,min=1,max=255"`
	Description *string          `json:"description" validate:"omitempty,max=1000"`
	Price       *decimal.Decimal `json:"price"       validate:"omitempty,gte=0"`
	CategoryID  *string          `json:"categoryId"  validate:"omitempty,uuid"`
}

// File is an uploaded image as received from the client.
type File struct {
	Filename    string
	ContentType string // as declared by the client
	Size        int64
	Reader      io.ReadSeeker
}

// Filter selects and paginates products. Nil fields are unconstrained or defaulted.
type Filter struct {
	CategoryID *string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Page       *int
	Limit      *int
}

// Criteria is the validated, conjunctive predicate of a listing.
type Criteria struct {
	CategoryID *string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
}

// Pagination describes a page of results.
type Pagination struct {
	Page  int `json:"page"  example:"2"`
	Limit int `json:"limit" example:"5"`
	Total int `json:"total" example:"12"`
	Pages int `json:"pages" example:"3"`
}

// Page is one page of a listing.
type Page struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// NewProduct is a row to insert.
type NewProduct struct {
	Name        string
	Description *string
	Price       decimal.Decimal
	CategoryID  string
	Picture     *string
}

// Changes is a row update. Nil fields are left unchanged.
type Changes struct {
	Name             *string
	Description      *string
	ClearDescription bool // sets description to NULL
	Price            *decimal.Decimal
	CategoryID       *string
	Picture          *string
}

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)
