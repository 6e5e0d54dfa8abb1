package domain

import "time"

type User struct {
	ID           string
	Username     string
	DisplayName  string
	PasswordHash string // bcrypt encoded, never leaves the server
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether u may use the admin surface.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
