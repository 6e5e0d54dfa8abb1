package domain

import "time"

// Session binds an opaque cookie value to one user. ID is the fingerprint
// of the cookie value; the raw value is only ever held by the client.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
