package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrInvalidCode means the supplied code does not match the outstanding one.
	// The outstanding code stays valid.
	ErrInvalidCode = errors.New("invalid code")
	// ErrExpiredCode means no live code exists: it expired, was consumed, or was never issued.
	ErrExpiredCode = errors.New("code expired")
	// ErrCooldownActive is wrapped by CooldownError.
	ErrCooldownActive = errors.New("cooldown active")
	// ErrStoreFailure is the single category surfaced when the durable store fails.
	ErrStoreFailure = errors.New("could not process verification request")
)

// CooldownError reports that issuance is blocked for Remaining more time.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: retry in %ds", ErrCooldownActive, int(e.Remaining.Seconds()))
}

func (e *CooldownError) Unwrap() error { return ErrCooldownActive }
