// Package activity keeps the append-only record of who did what to
// which record. Writes are best-effort and never block the operation
// that triggered them.
package activity

import "time"

// Entry is one activity log row.
type Entry struct {
	ID          int64          `json:"id"`
	AccountID   int64          `json:"-"`
	UserID      *int64         `json:"user_id,omitempty"`
	Action      string         `json:"action"`
	SubjectType string         `json:"record_type,omitempty"`
	SubjectID   *int64         `json:"record_id,omitempty"`
	Metadata    map[string]any `json:"metadata"`
	IP          string         `json:"-"`
	UserAgent   string         `json:"-"`
	CreatedAt   time.Time      `json:"created_at"`

	// Denormalised actor fields for listings.
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

// ListFilters narrows the activity listing.
type ListFilters struct {
	UserID      int64
	SubjectType string
	From        time.Time
	To          time.Time
	Query       string
	Page        int
	PerPage     int
}
