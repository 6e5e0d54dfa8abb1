package domain

import "time"

// InvitationTTL is how long an invitation stays redeemable.
const InvitationTTL = 7 * 24 * time.Hour

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
)

type Invitation struct {
	ID         string
	Email      string
	TokenHash  string // base64url SHA-256 of the emailed token
	Role       Role
	InvitedBy  string
	Status     InvitationStatus
	CreatedAt  time.Time
	ExpiresAt  time.Time
	AcceptedAt *time.Time
	AcceptedBy string // empty until accepted
}

// IsExpired reports whether the invitation can no longer be redeemed at now.
// The boundary instant itself counts as expired.
func (i Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

func (i Invitation) IsAccepted() bool {
	return i.Status == InvitationAccepted
}
