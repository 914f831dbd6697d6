package application

import (
	"fmt"
	"strings"
)

// Role is an ordered permission level. Higher roles include every permission of lower ones.
type Role int

const (
	RoleUnknown Role = iota
	RoleEmployee
	RoleManager
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleEmployee: "EMPLOYEE",
	RoleManager:  "MANAGER",
	RoleAdmin:    "ADMIN",
}

// ParseRole converts the stored upper-case role name into a Role.
func ParseRole(value string) (Role, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for role, name := range roleNames {
		if name == normalized {
			return role, nil
		}
	}
	return RoleUnknown, fmt.Errorf("unknown role %q", value)
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "UNKNOWN"
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// AtLeast reports whether r grants the permissions of min.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r >= min
}

// require returns ErrForbidden unless the principal holds at least min.
func (p Principal) require(min Role) error {
	if p.UserID == "" {
		return ErrUnauthorized
	}
	if !p.Role.AtLeast(min) {
		return ErrForbidden
	}
	return nil
}
