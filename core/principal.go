package core

import "strings"

// Roles
const (
	RoleAdmin   = "admin:"
	RoleTeacher = "teacher:"
	RoleStudent = "student:"
)

// Principal is the authenticated caller of an operation, scoped to a single tenant.
// It is always passed explicitly; nothing resolves it from request state.
type Principal struct {
	UserID   string
	TenantID string
	Email    string
	Name     string
	Roles    []string
}

// HasAnyRole reports whether p holds a role starting with one of the given role prefixes.
func (p Principal) HasAnyRole(roles ...string) bool {
	for _, want := range roles {
		for _, role := range p.Roles {
			if strings.HasPrefix(role, want) {
				return true
			}
		}
	}
	return false
}

func (p Principal) CanSchedule() bool {
	return p.HasAnyRole(RoleAdmin, RoleTeacher)
}
