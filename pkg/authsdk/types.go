package authsdk

import "time"

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	// Error is a short message, e.g. "Unauthorized" or "Invalid request".
	Error string `json:"error"`

	// ErrorDescription is optional human-readable detail.
	ErrorDescription string `json:"error_description,omitempty"`

	// Details contains field-specific validation errors (field name: error message)
	Details map[string]string `json:"details,omitempty"`
}

// ============================================================================
// Health
// ============================================================================

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
	Sessions string `json:"sessions"`
}

// ============================================================================
// Users and sessions
// ============================================================================

// User is the public view of an account. The password hash never leaves
// the server.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest redeems an invitation token for a new account.
type RegisterRequest struct {
	Token       string `json:"token"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

// ValidateInviteResponse answers GET /api/auth/validate-invite. Error is
// one of NotFound, AlreadyAccepted or Expired when Valid is false.
type ValidateInviteResponse struct {
	Valid bool   `json:"valid"`
	Email string `json:"email,omitempty"`
	Error string `json:"error,omitempty"`
}

// ============================================================================
// Admin
// ============================================================================

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

type Invitation struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	Status     string     `json:"status"`
	InvitedBy  string     `json:"invitedBy,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`
	AcceptedBy string     `json:"acceptedBy,omitempty"`
}

type CreateInvitationRequest struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// CreateInvitationResponse carries the only copy of the invite link. The
// raw token is not stored and cannot be recovered later.
type CreateInvitationResponse struct {
	Invitation Invitation `json:"invitation"`
	InviteURL  string     `json:"inviteUrl"`
	EmailSent  bool       `json:"emailSent"`
	Message    string     `json:"message"`
}

type EmailStatusResponse struct {
	Configured bool `json:"configured"`
}

// ============================================================================
// Microsoft integration
// ============================================================================

type MicrosoftStatusResponse struct {
	Configured bool       `json:"configured"`
	Connected  bool       `json:"connected"`
	ExpiresAt  *time.Time `json:"expiresAt"`
}
