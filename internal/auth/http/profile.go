package http

import (
	"net/http"
	"time"

	"github.com/tokelabs/sessiond/pkg/httpx"
)

// ProfileHandlers serves the authenticated user's own record.
type ProfileHandlers struct{}

type profileResponse struct {
	ID           string     `json:"id"`
	UserName     string     `json:"userName"`
	EmailAddress string     `json:"emailAddress"`
	LastLoggedIn *time.Time `json:"lastLoggedIn,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Profile handles GET /v1/profile.
func (ProfileHandlers) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, profileResponse{
		ID:           user.ID.String(),
		UserName:     user.Name.String(),
		EmailAddress: user.Email.String(),
		LastLoggedIn: user.LastLoggedIn,
		CreatedAt:    user.CreatedAt,
	})
}
