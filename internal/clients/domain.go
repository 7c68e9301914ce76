// Package clients manages the customer directory of an account,
// including file attachments stored alongside each client.
package clients

import "time"

// Client is one customer record, scoped to an account.
type Client struct {
	ID          int64     `json:"id"`
	AccountID   int64     `json:"-"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	CompanyName string    `json:"company_name,omitempty"`
	Address     string    `json:"address,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateRequest creates a client.
type CreateRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"omitempty,max=50"`
	CompanyName string `json:"company_name" validate:"omitempty,max=200"`
	Address     string `json:"address" validate:"omitempty,max=1000"`
	Notes       string `json:"notes" validate:"omitempty,max=5000"`
}

// UpdateRequest partially updates a client.
type UpdateRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	CompanyName *string `json:"company_name,omitempty" validate:"omitempty,max=200"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=1000"`
	Notes       *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

// ListFilters narrows the client listing.
type ListFilters struct {
	Query   string
	Page    int
	PerPage int
}

// Attachment is a file stored against a client. Data is loaded only
// for downloads.
type Attachment struct {
	ID          int64     `json:"id"`
	AccountID   int64     `json:"-"`
	ClientID    int64     `json:"-"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	ByteSize    int64     `json:"byte_size"`
	StorageKey  string    `json:"-"`
	Data        []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// allowedContentTypes mirrors the upload allowlist enforced at intake.
var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"image/heic":      true,
	"text/csv":        true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":   true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// AllowedContentType reports whether uploads of this MIME type are
// accepted.
func AllowedContentType(ct string) bool {
	return allowedContentTypes[ct]
}
