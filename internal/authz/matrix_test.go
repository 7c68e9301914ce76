package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expected mirrors the documented capability table. Kept separate from
// the production matrix so a typo in one cannot hide in the other.
var expected = map[Role]map[Action]bool{
	RoleOwner: {
		ManageClients: true, ManageProducts: true, ManageInvoices: true, ManagePayments: true,
		ViewSettings: true, ManageSettings: true, ManageBilling: true, ViewBilling: true, ManageTeam: true,
	},
	RoleAdmin: {
		ManageClients: true, ManageProducts: true, ManageInvoices: true, ManagePayments: true,
		ViewSettings: true, ManageSettings: true, ManageBilling: false, ViewBilling: true, ManageTeam: true,
	},
	RoleManager: {
		ManageClients: true, ManageProducts: true, ManageInvoices: true, ManagePayments: true,
		ViewSettings: false, ManageSettings: false, ManageBilling: false, ViewBilling: false, ManageTeam: false,
	},
	RoleViewer: {
		ManageClients: false, ManageProducts: false, ManageInvoices: false, ManagePayments: false,
		ViewSettings: false, ManageSettings: false, ManageBilling: false, ViewBilling: false, ManageTeam: false,
	},
}

func TestCanExhaustive(t *testing.T) {
	for _, role := range Roles() {
		for _, action := range Actions() {
			want, ok := expected[role][action]
			require.True(t, ok, "expected table missing %s/%s", role, action)
			assert.Equal(t, want, Can(role, true, action), "role=%s action=%s", role, action)
		}
	}
}

func TestDeactivatedHasNoPermissions(t *testing.T) {
	for _, role := range Roles() {
		for _, action := range Actions() {
			assert.False(t, Can(role, false, action), "role=%s action=%s", role, action)
		}
	}
}

func TestUnknownRoleHasNoPermissions(t *testing.T) {
	for _, action := range Actions() {
		assert.False(t, Can(Role("intern"), true, action))
	}
}

func TestRoleValid(t *testing.T) {
	for _, role := range Roles() {
		assert.True(t, role.Valid())
	}
	assert.False(t, Role("intern").Valid())
	assert.False(t, Role("").Valid())
}
