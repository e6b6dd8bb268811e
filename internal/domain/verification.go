package domain

import (
	"fmt"
	"strings"
	"time"
)

// Purpose namespaces verification codes and cooldowns.
type Purpose string

const (
	PurposeEmailVerification  Purpose = "email_verification"
	PurposePasswordReset      Purpose = "password_reset"
	PurposeResendVerification Purpose = "resend_verification"
)

// ParsePurpose accepts either the wire form ("password_reset") or the
// upper-case tag form ("PASSWORD_RESET").
func ParsePurpose(s string) (Purpose, error) {
	p := Purpose(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PurposeEmailVerification, PurposePasswordReset, PurposeResendVerification:
		return p, nil
	}
	return "", fmt.Errorf("unknown purpose %q: %w", s, ErrBadRequest)
}

// CodeScope is the namespace the purpose's codes are stored under.
// A resend supersedes the outstanding email verification code.
func (p Purpose) CodeScope() Purpose {
	if p == PurposeResendVerification {
		return PurposeEmailVerification
	}
	return p
}

func (p Purpose) String() string { return string(p) }

// NormalizeIdentifier case-folds an email-like identifier.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IssuedCode is returned to the caller after issuance. LongToken feeds the
// verification link, ShortCode is the OTP shown to the user. ShortCode is
// always the upper-cased first six hex characters of LongToken.
type IssuedCode struct {
	Purpose    Purpose
	Identifier string
	LongToken  string
	ShortCode  string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	// Degraded is true when the cache tier was down and the code lives only on the durable record.
	Degraded bool
}

// VerificationRecord is the durable fallback state for one code scope of one user.
// Code and ExpiresAt are either both set or both zero.
type VerificationRecord struct {
	UserID    string
	TokenHash string
	Code      string
	ExpiresAt time.Time
}

// HasCode reports whether a fallback code is outstanding.
func (r VerificationRecord) HasCode() bool { return r.Code != "" }

// Expired reports whether the fallback code is past its expiry at now.
func (r VerificationRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Outcome is the closed set of verification results handed to callers.
type Outcome string

const (
	OutcomeMatched         Outcome = "MATCHED"
	OutcomeMismatch        Outcome = "MISMATCH"
	OutcomeExpiredOrAbsent Outcome = "EXPIRED_OR_ABSENT"
)

// Err maps a non-matching outcome to its user-correctable error.
func (o Outcome) Err() error {
	switch o {
	case OutcomeMatched:
		return nil
	case OutcomeMismatch:
		return ErrInvalidCode
	default:
		return ErrExpiredCode
	}
}

// CacheStatus tags the result of a cache-tier operation.
type CacheStatus int

const (
	CacheOK CacheStatus = iota
	CacheNotFound
	CacheUnavailable
)

func (s CacheStatus) String() string {
	switch s {
	case CacheOK:
		return "ok"
	case CacheNotFound:
		return "not_found"
	default:
		return "unavailable"
	}
}

// CacheResult is returned by every code cache operation in place of a raw
// transport error. Err is set only when Status is CacheUnavailable.
type CacheResult struct {
	Status CacheStatus
	Code   string
	TTL    time.Duration
	Err    error
}

// ConsumeStatus tags the result of an atomic verify-and-consume.
type ConsumeStatus int

const (
	ConsumeMatched ConsumeStatus = iota
	ConsumeMismatch
	ConsumeAbsent
	ConsumeUnavailable
)

func (s ConsumeStatus) String() string {
	switch s {
	case ConsumeMatched:
		return "matched"
	case ConsumeMismatch:
		return "mismatch"
	case ConsumeAbsent:
		return "absent"
	default:
		return "unavailable"
	}
}

type ConsumeResult struct {
	Status ConsumeStatus
	Err    error
}

// CooldownStatus is what cooldownCheck reports to the caller.
type CooldownStatus struct {
	InCooldown       bool `json:"in_cooldown"`
	RemainingSeconds int  `json:"remaining_seconds"`
}
