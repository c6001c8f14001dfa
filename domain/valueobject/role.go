package valueobject

import (
	"errors"
	"strings"
)

var ErrUnknownRole = errors.New("unknown role")

// Role is the closed set of principal roles. Raw strings are parsed once,
// at the edge, and everything downstream switches over these constants.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// AllRoles lists every valid role in a stable order.
func AllRoles() []Role {
	return []Role{RoleCustomer, RoleAdmin, RoleModerator}
}

// StaffRoles lists the roles admitted to the back office.
func StaffRoles() []Role {
	var staff []Role
	for _, r := range AllRoles() {
		if r.IsStaff() {
			staff = append(staff, r)
		}
	}
	return staff
}

func ParseRole(value string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if !role.IsValid() {
		return "", ErrUnknownRole
	}
	return role, nil
}

func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

// IsStaff reports whether the role belongs to the back office.
func (r Role) IsStaff() bool {
	switch r {
	case RoleAdmin, RoleModerator:
		return true
	case RoleCustomer:
		return false
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
