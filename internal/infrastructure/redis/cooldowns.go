package redisinfra

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/go-verify-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

const cooldownPrefix = "cooldown:"

// CooldownGuard tracks "already issued within the window" per (purpose, identifier)
// under its own key namespace. Every operation degrades to "not in cooldown" or a
// no-op when Redis is unreachable.
type CooldownGuard struct {
	client  redis.UniversalClient
	windows map[domain.Purpose]time.Duration
}

func NewCooldownGuard(client redis.UniversalClient, windows map[domain.Purpose]time.Duration) *CooldownGuard {
	return &CooldownGuard{client: client, windows: windows}
}

func cooldownKey(p domain.Purpose, identifier string) string {
	return cooldownPrefix + p.String() + ":" + domain.NormalizeIdentifier(identifier)
}

// Window returns the configured cooldown window for p.
func (g *CooldownGuard) Window(p domain.Purpose) time.Duration {
	return g.windows[p]
}

func (g *CooldownGuard) IsInCooldown(ctx context.Context, p domain.Purpose, identifier string) bool {
	n, err := g.client.Exists(ctx, cooldownKey(p, identifier)).Result()
	if err != nil {
		slog.Warn("cooldown check degraded", "purpose", p, "identifier", identifier, "err", err)
		return false
	}
	return n > 0
}

// RemainingSeconds rounds up so that a live entry never reports 0.
func (g *CooldownGuard) RemainingSeconds(ctx context.Context, p domain.Purpose, identifier string) int {
	d, err := g.client.PTTL(ctx, cooldownKey(p, identifier)).Result()
	if err != nil {
		slog.Warn("cooldown ttl degraded", "purpose", p, "identifier", identifier, "err", err)
		return 0
	}
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// Check combines IsInCooldown and RemainingSeconds into one round trip.
func (g *CooldownGuard) Check(ctx context.Context, p domain.Purpose, identifier string) domain.CooldownStatus {
	rem := g.RemainingSeconds(ctx, p, identifier)
	return domain.CooldownStatus{InCooldown: rem > 0, RemainingSeconds: rem}
}

// Set starts the window for p. Call it only after the code was dispatched.
func (g *CooldownGuard) Set(ctx context.Context, p domain.Purpose, identifier string) {
	window := g.windows[p]
	if window <= 0 {
		return
	}
	if err := g.client.Set(ctx, cooldownKey(p, identifier), "1", window).Err(); err != nil {
		slog.Warn("cooldown set skipped", "purpose", p, "identifier", identifier, "err", err)
	}
}

// Clear is the administrative override.
func (g *CooldownGuard) Clear(ctx context.Context, p domain.Purpose, identifier string) {
	if err := g.client.Del(ctx, cooldownKey(p, identifier)).Err(); err != nil {
		slog.Warn("cooldown clear skipped", "purpose", p, "identifier", identifier, "err", err)
	}
}
