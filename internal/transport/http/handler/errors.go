package handler

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-verify-api/internal/domain"
)

// httpError maps domain errors to status codes. Anything unrecognised is a 500
// with a fixed message so infrastructure details never reach the client.
func httpError(w http.ResponseWriter, err error) {
	var cd *domain.CooldownError
	switch {
	case errors.As(err, &cd):
		secs := int(math.Ceil(cd.Remaining.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, MessageEnvelope{
			Error:      "please wait before requesting another code",
			RetryAfter: secs,
		})
	case errors.Is(err, domain.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, "invalid code")
	case errors.Is(err, domain.ErrExpiredCode):
		writeError(w, http.StatusGone, "code expired, request a new one")
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		if !errors.Is(err, domain.ErrStoreFailure) {
			slog.Error("unhandled request error", "err", err)
		}
		writeError(w, http.StatusInternalServerError, domain.ErrStoreFailure.Error())
	}
}
