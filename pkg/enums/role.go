package enums

import "fmt"

// Role represents a privilege level assignable to a user.
type Role string

const (
	RoleGuest      Role = "guest"
	RoleModerator  Role = "moderator"
	RoleSuperAdmin Role = "superadmin"
)

// DefaultRole is the lowest-privilege role granted at provisioning.
const DefaultRole = RoleGuest

var validRoles = []Role{
	RoleGuest,
	RoleModerator,
	RoleSuperAdmin,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
