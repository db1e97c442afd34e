package enums

import "fmt"

// Role is the account-level permissions role.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

var validRoles = []Role{
	RoleUser,
	RoleManager,
	RoleAdmin,
}

// rolePrivilege orders roles from least to most privileged.
var rolePrivilege = map[Role]int{
	RoleUser:    1,
	RoleManager: 2,
	RoleAdmin:   3,
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

// AtLeast reports whether the role carries at least the privilege of min.
// Unknown roles never satisfy any floor.
func (r Role) AtLeast(min Role) bool {
	have, ok := rolePrivilege[r]
	if !ok {
		return false
	}
	want, ok := rolePrivilege[min]
	if !ok {
		return false
	}
	return have >= want
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
