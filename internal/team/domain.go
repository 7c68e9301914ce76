// Package team manages the users of an account: invites, role changes
// and soft deactivation. It owns the "at least one active owner"
// invariant.
package team

import (
	"time"

	"github.com/invora-hq/invora/internal/authz"
)

// Status is the lifecycle state of a member.
type Status string

const (
	StatusActive      Status = "active"
	StatusDeactivated Status = "deactivated"
)

// Member is one user of an account.
type Member struct {
	ID        int64      `json:"id"`
	AccountID int64      `json:"-"`
	FirstName string     `json:"-"`
	LastName  string     `json:"-"`
	Email     string     `json:"email"`
	Role      authz.Role `json:"role"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// Name joins first and last name, falling back to email.
func (m Member) Name() string {
	switch {
	case m.FirstName != "" && m.LastName != "":
		return m.FirstName + " " + m.LastName
	case m.FirstName != "":
		return m.FirstName
	default:
		return m.Email
	}
}

// IsOwner reports whether the member holds the owner role.
func (m Member) IsOwner() bool {
	return m.Role == authz.RoleOwner
}

// ActiveMember reports whether the member may act on the system.
func (m Member) ActiveMember() bool {
	return m.Status == StatusActive
}

// InviteRequest adds a member to the account.
type InviteRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=admin manager viewer"`
}

// UpdateRequest changes a member's role and/or status.
type UpdateRequest struct {
	Role   *string `json:"role,omitempty" validate:"omitempty,oneof=owner admin manager viewer"`
	Status *string `json:"status,omitempty" validate:"omitempty,oneof=active deactivated"`
}

// memberPayload is the JSON projection returned by the team endpoints.
type memberPayload struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      authz.Role `json:"role"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

func payload(m Member) memberPayload {
	return memberPayload{
		ID:        m.ID,
		Name:      m.Name(),
		Email:     m.Email,
		Role:      m.Role,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
	}
}
