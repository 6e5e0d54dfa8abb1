package domain

import (
	"errors"
	"strings"
)

// Role is the coarse permission level of a user. There are exactly two.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

var ErrInvalidRole = errors.New("role must be one of: user, admin")

// ParseRole accepts the canonical lower-case names only; surrounding space
// is ignored.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.TrimSpace(s)); r {
	case RoleUser, RoleAdmin:
		return r, nil
	default:
		return "", ErrInvalidRole
	}
}

func (r Role) String() string { return string(r) }
