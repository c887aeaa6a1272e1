package role

import "strings"

// groupRoles maps identity provider group names to internal roles.
// Group names are matched case-insensitively. Unknown groups are ignored.
var groupRoles = map[string]Role{
	"members":      RoleMember,
	"support":      RoleSupport,
	"moderators":   RoleSupport,
	"admins":       RoleAdmin,
	"managers":     RoleAdmin,
	"super-admins": RoleSuperAdmin,
}

// ResolveRole maps a set of identity provider group names to a single
// internal role. When several groups match, the highest-privilege role
// wins; between groups mapping to the same privilege level the result is
// identical by construction, so the lexicographically ordered scan below
// is a stable tie-break. No matching group yields RoleMember.
func ResolveRole(groups []string) Role {
	resolved := RoleMember
	for _, g := range groups {
		r, ok := groupRoles[strings.ToLower(strings.TrimSpace(g))]
		if !ok {
			continue
		}
		if r > resolved {
			resolved = r
		}
	}
	return resolved
}

// PermissionsFor returns the permission set granted by a role. The
// mapping is total: every role, including unknown values, yields a
// defined (possibly empty) set. Fail-closed, never fail-open.
func PermissionsFor(r Role) PermissionSet {
	switch r {
	case RoleSupport:
		return newSet(
			PermModerateListings,
			PermViewAnalytics,
		)
	case RoleAdmin:
		return newSet(
			PermManageUsers,
			PermModerateListings,
			PermModerateMedia,
			PermViewAnalytics,
			PermReadAuditLog,
		)
	case RoleSuperAdmin:
		return newSet(
			PermManageUsers,
			PermModerateListings,
			PermModerateMedia,
			PermManageSystem,
			PermViewAnalytics,
			PermReadAuditLog,
			PermManageBilling,
		)
	default:
		return newSet()
	}
}
