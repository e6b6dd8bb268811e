package redisinfra

import (
	"context"
	"testing"
	"time"

	"github.com/go-verify-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func newGuard(t *testing.T) (*CooldownGuard, func(time.Duration), func(string)) {
	mr, client := newTestRedis(t)
	g := NewCooldownGuard(client, map[domain.Purpose]time.Duration{
		domain.PurposeEmailVerification:  60 * time.Second,
		domain.PurposePasswordReset:      60 * time.Second,
		domain.PurposeResendVerification: 30 * time.Second,
	})
	return g, mr.FastForward, mr.SetError
}

func TestCooldown_SetThenCheck(t *testing.T) {
	g, forward, _ := newGuard(t)
	ctx := context.Background()

	assert.False(t, g.IsInCooldown(ctx, domain.PurposeEmailVerification, "a@b.com"))
	g.Set(ctx, domain.PurposeEmailVerification, "A@b.com")

	st := g.Check(ctx, domain.PurposeEmailVerification, "a@b.com")
	assert.True(t, st.InCooldown)
	assert.Equal(t, 60, st.RemainingSeconds)
	assert.True(t, g.IsInCooldown(ctx, domain.PurposeEmailVerification, "a@b.com"))

	forward(60 * time.Second)
	st = g.Check(ctx, domain.PurposeEmailVerification, "a@b.com")
	assert.False(t, st.InCooldown)
	assert.Equal(t, 0, st.RemainingSeconds)
	assert.False(t, g.IsInCooldown(ctx, domain.PurposeEmailVerification, "a@b.com"))
}

func TestCooldown_ResendWindow(t *testing.T) {
	g, forward, _ := newGuard(t)
	ctx := context.Background()
	g.Set(ctx, domain.PurposeResendVerification, "a@b.com")

	assert.Equal(t, 30, g.RemainingSeconds(ctx, domain.PurposeResendVerification, "a@b.com"))
	forward(29 * time.Second)
	assert.Equal(t, 1, g.RemainingSeconds(ctx, domain.PurposeResendVerification, "a@b.com"))
	forward(time.Second)
	assert.Equal(t, 0, g.RemainingSeconds(ctx, domain.PurposeResendVerification, "a@b.com"))
}

func TestCooldown_PurposesIndependent(t *testing.T) {
	g, _, _ := newGuard(t)
	ctx := context.Background()
	g.Set(ctx, domain.PurposePasswordReset, "a@b.com")

	assert.True(t, g.IsInCooldown(ctx, domain.PurposePasswordReset, "a@b.com"))
	assert.False(t, g.IsInCooldown(ctx, domain.PurposeEmailVerification, "a@b.com"))
}

func TestCooldown_DoesNotCollideWithCodes(t *testing.T) {
	mr, client := newTestRedis(t)
	g := NewCooldownGuard(client, map[domain.Purpose]time.Duration{domain.PurposeEmailVerification: time.Minute})
	codes := NewCodeStore(client, codeTTL)
	ctx := context.Background()

	codes.Set(ctx, domain.PurposeEmailVerification, "a@b.com", "ABCDEF")
	assert.False(t, g.IsInCooldown(ctx, domain.PurposeEmailVerification, "a@b.com"))

	g.Set(ctx, domain.PurposeEmailVerification, "a@b.com")
	assert.True(t, mr.Exists("cooldown:email_verification:a@b.com"))
	assert.Equal(t, "ABCDEF", codes.Get(ctx, domain.PurposeEmailVerification, "a@b.com").Code)
}

func TestCooldown_Clear(t *testing.T) {
	g, _, _ := newGuard(t)
	ctx := context.Background()
	g.Set(ctx, domain.PurposePasswordReset, "a@b.com")
	g.Clear(ctx, domain.PurposePasswordReset, "a@b.com")
	assert.False(t, g.IsInCooldown(ctx, domain.PurposePasswordReset, "a@b.com"))
}

func TestCooldown_UnavailableDegradesToPermissive(t *testing.T) {
	g, _, setError := newGuard(t)
	ctx := context.Background()
	g.Set(ctx, domain.PurposeEmailVerification, "a@b.com")
	setError("ERR cache offline")

	assert.False(t, g.IsInCooldown(ctx, domain.PurposeEmailVerification, "a@b.com"))
	assert.Equal(t, 0, g.RemainingSeconds(ctx, domain.PurposeEmailVerification, "a@b.com"))
	assert.Equal(t, domain.CooldownStatus{}, g.Check(ctx, domain.PurposeEmailVerification, "a@b.com"))
	assert.NotPanics(t, func() {
		g.Set(ctx, domain.PurposeEmailVerification, "a@b.com")
		g.Clear(ctx, domain.PurposeEmailVerification, "a@b.com")
	})
}

func TestCooldown_Window(t *testing.T) {
	g, _, _ := newGuard(t)
	assert.Equal(t, 30*time.Second, g.Window(domain.PurposeResendVerification))
}
