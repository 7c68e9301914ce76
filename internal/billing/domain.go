// Package billing manages the plan catalog and each account's
// subscription.
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Interval is the billing cadence of a plan.
type Interval string

const (
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// SubscriptionStatus is the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	StatusTrialing   SubscriptionStatus = "trialing"
	StatusActive     SubscriptionStatus = "active"
	StatusPastDue    SubscriptionStatus = "past_due"
	StatusCanceled   SubscriptionStatus = "canceled"
	StatusIncomplete SubscriptionStatus = "incomplete"
)

// current reports whether a subscription in this status occupies the
// account's single current slot.
func (s SubscriptionStatus) current() bool {
	switch s {
	case StatusTrialing, StatusActive, StatusPastDue:
		return true
	}
	return false
}

// Plan is one catalog entry.
type Plan struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Interval    Interval        `json:"interval"`
	MaxUsers    *int64          `json:"max_users,omitempty"`
	MaxClients  *int64          `json:"max_clients,omitempty"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Subscription ties an account to a plan for a period.
type Subscription struct {
	ID                 int64              `json:"id"`
	AccountID          int64              `json:"-"`
	PlanID             int64              `json:"plan_id"`
	PlanCode           string             `json:"plan_code,omitempty"`
	PlanName           string             `json:"plan_name,omitempty"`
	Status             SubscriptionStatus `json:"status"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end"`
	CanceledAt         *time.Time         `json:"canceled_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

// SubscribeRequest switches the account onto a plan.
type SubscribeRequest struct {
	PlanCode string `json:"plan_code" validate:"required,max=100"`
}
