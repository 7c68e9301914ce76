// Package notifications delivers best-effort in-app notifications to
// account members and serves each user's inbox.
package notifications

import "time"

// Notification is one inbox row for a single user.
type Notification struct {
	ID          int64     `json:"id"`
	AccountID   int64     `json:"-"`
	UserID      int64     `json:"-"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Action      string    `json:"action"`
	SubjectType string    `json:"notifiable_type,omitempty"`
	SubjectID   *int64    `json:"notifiable_id,omitempty"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

// Audience selects the recipient set for a message.
type Audience string

const (
	// AudienceAdmins targets all active owners/admins of the account.
	AudienceAdmins Audience = "admins"
	// AudienceUserAndAdmins targets one user plus the active
	// owners/admins, deduplicated.
	AudienceUserAndAdmins Audience = "user_and_admins"
)

// Message is a domain event fanned out to recipients.
type Message struct {
	AccountID   int64    `json:"account_id"`
	Audience    Audience `json:"audience"`
	UserID      int64    `json:"user_id,omitempty"`
	OwnersOnly  bool     `json:"owners_only,omitempty"`
	Title       string   `json:"title"`
	Body        string   `json:"body"`
	Action      string   `json:"action"`
	SubjectType string   `json:"subject_type,omitempty"`
	SubjectID   *int64   `json:"subject_id,omitempty"`
}
