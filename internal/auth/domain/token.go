package domain

import "time"

// OAuthToken is the stored Microsoft credential for one user. AccessToken
// and RefreshToken hold sealed ciphertext at rest; the service layer opens
// them. Version increases on every write and guards concurrent refreshes.
type OAuthToken struct {
	ID           string
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scope        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int64
}

// TokenSet is what the identity provider hands back from a code exchange
// or refresh.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	Scope        string
}
