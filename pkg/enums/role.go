package enums

import (
	"fmt"
	"strings"
)

// Role represents the canonical user_role enum in Postgres.
type Role string

const (
	RoleGuest   Role = "GUEST"
	RoleClient  Role = "CLIENT"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

var validRoles = []Role{
	RoleGuest,
	RoleClient,
	RoleManager,
	RoleAdmin,
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

// ParseRole converts raw input into a Role. Values are normalized to upper
// case at the boundary so stored roles are never compared case-insensitively
// downstream.
func ParseRole(value string) (Role, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
