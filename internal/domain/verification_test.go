package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePurpose(t *testing.T) {
	p, err := ParsePurpose("PASSWORD_RESET")
	require.NoError(t, err)
	assert.Equal(t, PurposePasswordReset, p)

	p, err = ParsePurpose(" resend_verification ")
	require.NoError(t, err)
	assert.Equal(t, PurposeResendVerification, p)

	_, err = ParsePurpose("login")
	assert.True(t, errors.Is(err, ErrBadRequest))
}

func TestCodeScope_ResendSharesEmailVerification(t *testing.T) {
	assert.Equal(t, PurposeEmailVerification, PurposeResendVerification.CodeScope())
	assert.Equal(t, PurposePasswordReset, PurposePasswordReset.CodeScope())
}

func TestOutcomeErr(t *testing.T) {
	assert.NoError(t, OutcomeMatched.Err())
	assert.ErrorIs(t, OutcomeMismatch.Err(), ErrInvalidCode)
	assert.ErrorIs(t, OutcomeExpiredOrAbsent.Err(), ErrExpiredCode)
}

func TestVerificationRecord_ExpiredAtBoundary(t *testing.T) {
	exp := time.Date(2026, 1, 1, 12, 10, 0, 0, time.UTC)
	rec := VerificationRecord{Code: "ABC123", ExpiresAt: exp}
	assert.False(t, rec.Expired(exp.Add(-time.Second)))
	assert.True(t, rec.Expired(exp))
}

func TestUserVerification_SelectsScope(t *testing.T) {
	u := &User{
		UserID:                         "u1",
		EmailVerificationTokenHash:     "h1",
		EmailVerificationCode:          "AAAAAA",
		EmailVerificationCodeExpiresAt: 1700000000,
		PasswordResetTokenHash:         "h2",
	}
	ev := u.Verification(PurposeResendVerification)
	assert.Equal(t, "h1", ev.TokenHash)
	assert.Equal(t, "AAAAAA", ev.Code)
	assert.Equal(t, int64(1700000000), ev.ExpiresAt.Unix())

	pr := u.Verification(PurposePasswordReset)
	assert.Equal(t, "h2", pr.TokenHash)
	assert.False(t, pr.HasCode())
	assert.True(t, pr.ExpiresAt.IsZero())
}

func TestCooldownError_Unwraps(t *testing.T) {
	err := error(&CooldownError{Remaining: 42 * time.Second})
	assert.True(t, errors.Is(err, ErrCooldownActive))
	assert.Contains(t, err.Error(), "42s")
}
