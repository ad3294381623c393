package auth

import "repairhub/internal/session"

type MagicLinkRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

// SessionResponse is null when the caller is signed out.
type SessionResponse struct {
	Session *session.Session `json:"session"`
}
