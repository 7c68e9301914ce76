// Package authz implements the role-based authorization matrix.
// Permissions are a pure function of role and active status; no other
// state is consulted.
package authz

// Role is the closed set of roles a user can hold.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleViewer  Role = "viewer"
)

// Roles lists every valid role.
func Roles() []Role {
	return []Role{RoleOwner, RoleAdmin, RoleManager, RoleViewer}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleViewer:
		return true
	}
	return false
}

// Action is the closed set of guarded capabilities.
type Action string

const (
	ManageClients  Action = "manage_clients"
	ManageProducts Action = "manage_products"
	ManageInvoices Action = "manage_invoices"
	ManagePayments Action = "manage_payments"
	ViewSettings   Action = "view_settings"
	ManageSettings Action = "manage_settings"
	ManageBilling  Action = "manage_billing"
	ViewBilling    Action = "view_billing"
	ManageTeam     Action = "manage_team"
)

// Actions lists every guarded capability.
func Actions() []Action {
	return []Action{
		ManageClients,
		ManageProducts,
		ManageInvoices,
		ManagePayments,
		ViewSettings,
		ManageSettings,
		ManageBilling,
		ViewBilling,
		ManageTeam,
	}
}

func grants(actions ...Action) map[Action]bool {
	set := make(map[Action]bool, len(actions))
	for _, a := range actions {
		set[a] = true
	}
	return set
}

// matrix is the single source of truth for role capabilities.
// Owner/admin/manager manage day-to-day records; settings and team are
// owner/admin only; billing mutation is owner only with admin read.
var matrix = map[Role]map[Action]bool{
	RoleOwner: grants(
		ManageClients, ManageProducts, ManageInvoices, ManagePayments,
		ViewSettings, ManageSettings, ManageBilling, ViewBilling, ManageTeam,
	),
	RoleAdmin: grants(
		ManageClients, ManageProducts, ManageInvoices, ManagePayments,
		ViewSettings, ManageSettings, ViewBilling, ManageTeam,
	),
	RoleManager: grants(
		ManageClients, ManageProducts, ManageInvoices, ManagePayments,
	),
	RoleViewer: grants(),
}

// Can reports whether a user with the given role may perform action.
// A deactivated user has no permissions regardless of role. Never
// returns an error; unknown roles simply have no grants.
func Can(role Role, active bool, action Action) bool {
	if !active {
		return false
	}
	return matrix[role][action]
}
