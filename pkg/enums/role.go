package enums

import "strings"

// Role is the storefront permission level stored on users/{uid}.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

var validRoles = []Role{
	RoleAdmin,
	RoleCustomer,
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

// ParseRole never fails: anything that is not a known role is a customer.
func ParseRole(value string) Role {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if role.IsValid() {
		return role
	}
	return RoleCustomer
}
