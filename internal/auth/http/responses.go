package http

import (
	"net/http"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
	"github.com/ehsh01/it-ops-dashboard/pkg/authsdk"
	"github.com/ehsh01/it-ops-dashboard/pkg/httpx"
	"github.com/ehsh01/it-ops-dashboard/pkg/idx"
)

// pathID reads the {id} path segment. Anything that is not a ULID cannot
// name a row, so it is answered with 404 and notFound as the message.
func pathID(w http.ResponseWriter, r *http.Request, notFound string) (string, bool) {
	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, notFound, "")
		return "", false
	}
	return id.String(), true
}

func toUser(u domain.User) authsdk.User {
	return authsdk.User{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func toUsers(us []domain.User) []authsdk.User {
	out := make([]authsdk.User, 0, len(us))
	for _, u := range us {
		out = append(out, toUser(u))
	}
	return out
}

func toInvitation(inv domain.Invitation) authsdk.Invitation {
	return authsdk.Invitation{
		ID:         inv.ID,
		Email:      inv.Email,
		Role:       string(inv.Role),
		Status:     string(inv.Status),
		InvitedBy:  inv.InvitedBy,
		CreatedAt:  inv.CreatedAt,
		ExpiresAt:  inv.ExpiresAt,
		AcceptedAt: inv.AcceptedAt,
		AcceptedBy: inv.AcceptedBy,
	}
}

func toInvitations(invs []domain.Invitation) []authsdk.Invitation {
	out := make([]authsdk.Invitation, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toInvitation(inv))
	}
	return out
}
