package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-verify-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// AuthEnvelope wraps responses that sign the user in.
type AuthEnvelope struct {
	Bearer  string    `json:"Bearer,omitempty"`
	User    *SafeUser `json:"user,omitempty"`
	Message string    `json:"message,omitempty"`
}

// SafeUser is the user as returned to clients.
type SafeUser struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Role           string    `json:"role"`
	EmailConfirmed bool      `json:"email_confirmed"`
	Created        time.Time `json:"created"`
}

// CooldownEnvelope reports the cooldown for one (purpose, identifier).
type CooldownEnvelope struct {
	Purpose    string `json:"purpose"`
	Identifier string `json:"identifier"`
	domain.CooldownStatus
}

func toSafeUser(u *domain.User) *SafeUser {
	if u == nil {
		return nil
	}
	return &SafeUser{
		ID:             u.UserID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Role:           u.Role,
		EmailConfirmed: u.EmailConfirmed,
		Created:        u.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
