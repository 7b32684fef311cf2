package access

import "time"

// Role is a named bundle of permissions and resources assigned to users.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission is an atomic capability gate tied to a route.
type Permission struct {
	ID          int64
	Key         string
	Description string
}

// Resource is a named column-grant bundle over one underlying table.
// Several resources may target the same table with different column subsets.
type Resource struct {
	ID          int64
	Key         string
	Columns     []string
	Description string
}

// GrantState is the two-state override outcome. A missing override row
// means "follow the role"; a present row either grants or revokes.
type GrantState string

const (
	Granted GrantState = "granted"
	Revoked GrantState = "revoked"
)

// PermissionOverride is a per-user exception on one permission.
type PermissionOverride struct {
	Permission Permission
	State      GrantState
}

// ResourceOverride is a per-user exception on one column-grant bundle.
type ResourceOverride struct {
	Resource Resource
	State    GrantState
}

// PermissionGrant is a resolved permission entry as carried in credentials.
type PermissionGrant struct {
	Key         string `json:"key"`
	Description string `json:"description"`
}

// ResourceGrant is a resolved column-grant entry as carried in credentials.
type ResourceGrant struct {
	Key     string   `json:"key"`
	Columns []string `json:"columns"`
}

// GrantSet is the effective access of one user after overrides are applied
// to role defaults.
type GrantSet struct {
	Permissions []PermissionGrant `json:"permissions"`
	Resources   []ResourceGrant   `json:"resources"`
}

// HasPermission reports whether the set contains the permission key.
func (g GrantSet) HasPermission(key string) bool {
	for _, p := range g.Permissions {
		if p.Key == key {
			return true
		}
	}
	return false
}

// UserAccount is the slice of the user row the access engine needs.
type UserAccount struct {
	ID        int64
	Email     string
	RoleID    int64
	RoleName  string
	Suspended bool
}
