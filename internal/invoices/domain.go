// Package invoices implements the invoice ledger: header, lines,
// payments, derived totals and the per-account numbering sequence.
package invoices

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the invoice lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// Invoice is one invoice header with its derived totals. Items and
// Payments are loaded for detail views and recalculation.
type Invoice struct {
	ID         int64           `json:"id"`
	AccountID  int64           `json:"-"`
	ClientID   *int64          `json:"client_id,omitempty"`
	ClientName string          `json:"client_name,omitempty"`
	Number     string          `json:"number"`
	Status     Status          `json:"status"`
	IssueDate  time.Time       `json:"issue_date"`
	DueDate    time.Time       `json:"due_date"`
	Currency   string          `json:"currency"`
	TaxRate    decimal.Decimal `json:"tax_rate"`
	Notes      string          `json:"notes,omitempty"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	TaxTotal   decimal.Decimal `json:"tax_total"`
	Total      decimal.Decimal `json:"total"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	Items    []Item    `json:"items,omitempty"`
	Payments []Payment `json:"payments,omitempty"`
}

// Balance is the outstanding amount.
func (i *Invoice) Balance() decimal.Decimal {
	return i.Total.Sub(i.AmountPaid)
}

// Item is one invoice line. Description and price are copied from the
// product at insert time so later catalog edits leave history alone.
type Item struct {
	ID          int64           `json:"id"`
	InvoiceID   int64           `json:"-"`
	ProductID   *int64          `json:"product_id,omitempty"`
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	Position    int             `json:"position"`
}

// Payment is money received against an invoice.
type Payment struct {
	ID        int64           `json:"id"`
	InvoiceID int64           `json:"-"`
	Amount    decimal.Decimal `json:"amount"`
	PaidOn    time.Time       `json:"paid_on"`
	Method    string          `json:"method,omitempty"`
	Reference string          `json:"reference,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ItemInput is one line in a create/update request.
type ItemInput struct {
	ProductID   *int64          `json:"product_id,omitempty"`
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// PaymentInput is one payment in a create/update request.
type PaymentInput struct {
	Amount    decimal.Decimal `json:"amount"`
	PaidOn    *time.Time      `json:"paid_on,omitempty"`
	Method    string          `json:"method" validate:"omitempty,max=50"`
	Reference string          `json:"reference" validate:"omitempty,max=200"`
}

// CreateRequest creates an invoice with its lines and optional
// payments in one shot.
type CreateRequest struct {
	ClientID  *int64           `json:"client_id,omitempty"`
	Status    string           `json:"status" validate:"omitempty,oneof=draft sent paid overdue cancelled"`
	IssueDate *time.Time       `json:"issue_date,omitempty"`
	DueDate   *time.Time       `json:"due_date,omitempty"`
	TaxRate   *decimal.Decimal `json:"tax_rate,omitempty"`
	Notes     string           `json:"notes" validate:"omitempty,max=5000"`
	Items     []ItemInput      `json:"items" validate:"required,min=1,dive"`
	Payments  []PaymentInput   `json:"payments" validate:"omitempty,dive"`
}

// UpdateRequest replaces the invoice. Lines and payments are
// submitted whole; omitted collections clear the previous ones.
type UpdateRequest struct {
	ClientID  *int64           `json:"client_id,omitempty"`
	Status    *string          `json:"status,omitempty" validate:"omitempty,oneof=draft sent paid overdue cancelled"`
	IssueDate *time.Time       `json:"issue_date,omitempty"`
	DueDate   *time.Time       `json:"due_date,omitempty"`
	TaxRate   *decimal.Decimal `json:"tax_rate,omitempty"`
	Notes     *string          `json:"notes,omitempty" validate:"omitempty,max=5000"`
	Items     []ItemInput      `json:"items" validate:"required,min=1,dive"`
	Payments  []PaymentInput   `json:"payments" validate:"omitempty,dive"`
}

// ListFilters narrows the invoice listing.
type ListFilters struct {
	Query    string
	Status   Status
	ClientID int64
	From     time.Time
	To       time.Time
	Page     int
	PerPage  int
}
