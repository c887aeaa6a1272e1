package role

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveRole(t *testing.T) {
	tests := []struct {
		name   string
		groups []string
		want   Role
	}{
		{
			name:   "no groups defaults to member",
			groups: nil,
			want:   RoleMember,
		},
		{
			name:   "unknown groups are ignored",
			groups: []string{"boat-owners", "newsletter"},
			want:   RoleMember,
		},
		{
			name:   "single support group",
			groups: []string{"support"},
			want:   RoleSupport,
		},
		{
			name:   "moderators map to support",
			groups: []string{"moderators"},
			want:   RoleSupport,
		},
		{
			name:   "managers map to admin",
			groups: []string{"managers"},
			want:   RoleAdmin,
		},
		{
			name:   "highest privilege wins",
			groups: []string{"members", "support", "admins"},
			want:   RoleAdmin,
		},
		{
			name:   "super admin beats everything",
			groups: []string{"admins", "super-admins", "members"},
			want:   RoleSuperAdmin,
		},
		{
			name:   "matching is case-insensitive",
			groups: []string{"ADMINS"},
			want:   RoleAdmin,
		},
		{
			name:   "surrounding whitespace is ignored",
			groups: []string{"  support  "},
			want:   RoleSupport,
		},
		{
			name:   "duplicate groups do not change the result",
			groups: []string{"support", "support", "Support"},
			want:   RoleSupport,
		},
		{
			name:   "unknown mixed with known",
			groups: []string{"captains", "support", "deckhands"},
			want:   RoleSupport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveRole(tt.groups))
		})
	}
}

func TestResolveRole_OrderIndependent(t *testing.T) {
	a := ResolveRole([]string{"members", "admins", "support"})
	b := ResolveRole([]string{"support", "members", "admins"})
	c := ResolveRole([]string{"admins", "support", "members"})

	assert.Equal(t, a, b)
	assert.Equal(t, b, c)
}

func TestPermissionsFor(t *testing.T) {
	t.Run("member has no permissions", func(t *testing.T) {
		perms := PermissionsFor(RoleMember)
		assert.Empty(t, perms)
	})

	t.Run("support can moderate listings", func(t *testing.T) {
		perms := PermissionsFor(RoleSupport)
		assert.True(t, perms.Has(PermModerateListings))
		assert.True(t, perms.Has(PermViewAnalytics))
		assert.False(t, perms.Has(PermManageUsers))
		assert.False(t, perms.Has(PermManageSystem))
	})

	t.Run("admin cannot manage system or billing", func(t *testing.T) {
		perms := PermissionsFor(RoleAdmin)
		assert.True(t, perms.Has(PermManageUsers))
		assert.True(t, perms.Has(PermReadAuditLog))
		assert.False(t, perms.Has(PermManageSystem))
		assert.False(t, perms.Has(PermManageBilling))
	})

	t.Run("super admin holds every permission", func(t *testing.T) {
		perms := PermissionsFor(RoleSuperAdmin)
		for _, p := range []Permission{
			PermManageUsers, PermModerateListings, PermModerateMedia,
			PermManageSystem, PermReadAuditLog, PermViewAnalytics, PermManageBilling,
		} {
			assert.True(t, perms.Has(p), "super admin should hold %s", p)
		}
	})

	t.Run("unknown role value yields empty set", func(t *testing.T) {
		perms := PermissionsFor(Role(42))
		assert.Empty(t, perms)
	})
}

// Each role's permission set must be a superset of every lower role's
// set, so promoting a user never removes a capability.
func TestPermissionsFor_Monotonic(t *testing.T) {
	order := []Role{RoleMember, RoleSupport, RoleAdmin, RoleSuperAdmin}

	for i := 1; i < len(order); i++ {
		lower := PermissionsFor(order[i-1])
		higher := PermissionsFor(order[i])
		assert.True(t, higher.Contains(lower),
			"%s permissions should include all of %s", order[i], order[i-1])
	}
}

func TestRole_RoundTrip(t *testing.T) {
	for _, r := range []Role{RoleMember, RoleSupport, RoleAdmin, RoleSuperAdmin} {
		assert.Equal(t, r, RoleFromString(r.String()))
		assert.Equal(t, r, ResolveRole([]string{r.GroupName()}))
	}
}

func TestRole_FromString_Unknown(t *testing.T) {
	assert.Equal(t, RoleMember, RoleFromString("root"))
	assert.Equal(t, RoleMember, RoleFromString(""))
}

func TestRole_RequiresMFA(t *testing.T) {
	assert.False(t, RoleMember.RequiresMFA())
	assert.False(t, RoleSupport.RequiresMFA())
	assert.True(t, RoleAdmin.RequiresMFA())
	assert.True(t, RoleSuperAdmin.RequiresMFA())
}

func TestRole_Level_Ordered(t *testing.T) {
	assert.Less(t, RoleMember.Level(), RoleSupport.Level())
	assert.Less(t, RoleSupport.Level(), RoleAdmin.Level())
	assert.Less(t, RoleAdmin.Level(), RoleSuperAdmin.Level())
}
