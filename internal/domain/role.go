package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role is one of the closed set of capability tiers attached at account creation.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

// AllRoles lists every valid role in display order.
var AllRoles = []Role{RoleStudent, RoleFaculty, RoleAdmin}

// ParseRole normalizes raw input into a Role.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, raw)
	}
	return role, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// ParseRoles parses a list of role names, skipping blanks.
func ParseRoles(raw []string) ([]Role, error) {
	out := make([]Role, 0, len(raw))
	for _, item := range raw {
		if strings.TrimSpace(item) == "" {
			continue
		}
		role, err := ParseRole(item)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, nil
}

// Principal is the identity the Authorization Gate attaches to a request.
type Principal struct {
	AccountID uuid.UUID
	Role      Role
}

// AuthorizeRoles checks the principal's role against an explicit allow-list.
// There is no hierarchy: admin passes only where admin is listed.
func AuthorizeRoles(p Principal, allowed ...Role) error {
	for _, role := range allowed {
		if p.Role == role {
			return nil
		}
	}
	return fmt.Errorf("%w: role %s not permitted", ErrForbidden, p.Role)
}

// AuthorizeOwnerOrRoles permits the owning account regardless of role,
// otherwise falls back to AuthorizeRoles.
func AuthorizeOwnerOrRoles(p Principal, ownerID uuid.UUID, allowed ...Role) error {
	if ownerID != uuid.Nil && p.AccountID == ownerID {
		return nil
	}
	return AuthorizeRoles(p, allowed...)
}
