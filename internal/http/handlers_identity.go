package http

import "net/http"

type identityPayload struct {
	OwnerID   string `json:"ownerId"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// handleMe returns the identity the caller's credential resolved to.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := identityFrom(r)
	writeJSON(w, http.StatusOK, identityPayload{
		OwnerID:   id.OwnerID,
		Name:      id.Name,
		Email:     id.Email,
		AvatarURL: id.AvatarURL,
	})
}
