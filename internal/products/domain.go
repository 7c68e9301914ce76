// Package products manages the reusable catalog of billable items.
// Products are never hard-deleted; deactivation keeps historical
// invoice lines intact.
package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type distinguishes goods from services.
type Type string

const (
	TypeProduct Type = "product"
	TypeService Type = "service"
)

// Product is one catalog entry, scoped to an account.
type Product struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"-"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	SKU         string          `json:"sku,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Currency    string          `json:"currency"`
	ProductType Type            `json:"product_type"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateRequest creates a product.
type CreateRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"omitempty,max=2000"`
	SKU         string          `json:"sku" validate:"omitempty,max=100"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Currency    string          `json:"currency" validate:"omitempty,len=3,alpha"`
	ProductType string          `json:"product_type" validate:"omitempty,oneof=product service"`
}

// UpdateRequest partially updates a product.
type UpdateRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	SKU         *string          `json:"sku,omitempty" validate:"omitempty,max=100"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	ProductType *string          `json:"product_type,omitempty" validate:"omitempty,oneof=product service"`
	Active      *bool            `json:"active,omitempty"`
}

// ListFilters narrows the product listing.
type ListFilters struct {
	Query      string
	ActiveOnly bool
	Page       int
	PerPage    int
}
