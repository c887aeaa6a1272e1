package role

// Role is the closed set of privilege levels assigned from identity
// provider group membership. Values are ordered: a higher value is a
// higher privilege.
type Role int

const (
	// RoleMember is the base, non-privileged role
	RoleMember Role = iota
	// RoleSupport handles customer support and listing moderation
	RoleSupport
	// RoleAdmin manages users and marketplace content
	RoleAdmin
	// RoleSuperAdmin has full platform control
	RoleSuperAdmin
)

// String returns the canonical name of the role
func (r Role) String() string {
	switch r {
	case RoleSupport:
		return "support"
	case RoleAdmin:
		return "admin"
	case RoleSuperAdmin:
		return "super_admin"
	default:
		return "member"
	}
}

// RoleFromString parses a canonical role name, defaulting to RoleMember
// for unknown names (fail-closed)
func RoleFromString(s string) Role {
	switch s {
	case "support":
		return RoleSupport
	case "admin":
		return RoleAdmin
	case "super_admin":
		return RoleSuperAdmin
	default:
		return RoleMember
	}
}

// Level returns the privilege level of the role, higher is more privileged
func (r Role) Level() int {
	return int(r)
}

// GroupName returns the canonical identity provider group for the role,
// such that ResolveRole([]string{r.GroupName()}) == r
func (r Role) GroupName() string {
	switch r {
	case RoleSupport:
		return "support"
	case RoleAdmin:
		return "admins"
	case RoleSuperAdmin:
		return "super-admins"
	default:
		return "members"
	}
}

// RequiresMFA reports whether sessions holding this role must pass
// step-up verification before privileged operations
func (r Role) RequiresMFA() bool {
	return r >= RoleAdmin
}

// Permission is a single named capability grantable via role
type Permission string

const (
	PermManageUsers      Permission = "users:manage"
	PermModerateListings Permission = "listings:moderate"
	PermModerateMedia    Permission = "media:moderate"
	PermManageSystem     Permission = "system:manage"
	PermReadAuditLog     Permission = "audit:read"
	PermViewAnalytics    Permission = "analytics:view"
	PermManageBilling    Permission = "billing:manage"
)

// PermissionSet is a set of permissions keyed by capability tag
type PermissionSet map[Permission]struct{}

// Has reports whether the set contains the given permission
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Contains reports whether every permission in other is also in s
func (s PermissionSet) Contains(other PermissionSet) bool {
	for p := range other {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// List returns the permissions as a slice, in unspecified order
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	return out
}

func newSet(perms ...Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}
