package auth

import (
	"time"

	"github.com/invora-hq/invora/internal/authz"
)

// UserStatus is the lifecycle state of a user.
type UserStatus string

const (
	StatusActive      UserStatus = "active"
	StatusDeactivated UserStatus = "deactivated"
)

// User represents an authenticated user with account scope.
type User struct {
	ID           int64
	AccountID    int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         authz.Role
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Name joins first and last name, falling back to the email address.
func (u User) Name() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

// Active reports whether the user may act on the system.
func (u User) Active() bool {
	return u.Status == StatusActive
}

// RegisterRequest creates a tenant account with its first owner user.
type RegisterRequest struct {
	AccountName     string `json:"account_name" validate:"required,max=200"`
	DefaultCurrency string `json:"default_currency" validate:"omitempty,oneof=USD EUR GBP SAR EGP"`
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is the payload returned after register/login.
type Session struct {
	Token string      `json:"token"`
	User  SessionUser `json:"user"`
}

// SessionUser is the user projection embedded in a Session.
type SessionUser struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      authz.Role `json:"role"`
	AccountID int64      `json:"account_id"`
}
