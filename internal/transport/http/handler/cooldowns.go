package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-verify-api/internal/domain"
	"github.com/go-verify-api/internal/transport/http/middleware"
)

// CooldownStatus answers GET /auth/cooldown?purpose=&identifier=.
func (h *AuthHandler) CooldownStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	st, err := h.svc.CooldownStatus(r.Context(), q.Get("purpose"), q.Get("identifier"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CooldownEnvelope{
		Purpose:        q.Get("purpose"),
		Identifier:     domain.NormalizeIdentifier(q.Get("identifier")),
		CooldownStatus: st,
	})
}

// ClearCooldown is the admin override behind DELETE /admin/cooldowns/{purpose}/{identifier}.
func (h *AuthHandler) ClearCooldown(w http.ResponseWriter, r *http.Request) {
	purpose, identifier := chi.URLParam(r, "purpose"), chi.URLParam(r, "identifier")
	if err := h.svc.ClearCooldown(r.Context(), purpose, identifier); err != nil {
		httpError(w, err)
		return
	}
	if c, ok := middleware.ClaimsFromContext(r.Context()); ok {
		slog.Info("admin cooldown override", "admin_id", c.UserID, "purpose", purpose)
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "cooldown cleared"})
}
