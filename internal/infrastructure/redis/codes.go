package redisinfra

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-verify-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

// consumeScript compares and deletes in one step so that two concurrent
// verifications with the right code cannot both match.
// Returns 1 = matched (deleted), 0 = absent, -1 = mismatch.
var consumeScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then
	return 0
end
if v == ARGV[1] then
	redis.call("DEL", KEYS[1])
	return 1
end
return -1
`)

// CodeStore keeps outstanding verification codes under "{purpose}:{identifier}"
// with a fixed TTL. It never falls back: an unreachable server is reported as
// domain.CacheUnavailable / domain.ConsumeUnavailable.
type CodeStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewCodeStore(client redis.UniversalClient, ttl time.Duration) *CodeStore {
	return &CodeStore{client: client, ttl: ttl}
}

func codeKey(p domain.Purpose, identifier string) string {
	return p.CodeScope().String() + ":" + domain.NormalizeIdentifier(identifier)
}

// Set stores code, overwriting and so invalidating any previous one.
func (s *CodeStore) Set(ctx context.Context, p domain.Purpose, identifier, code string) domain.CacheResult {
	if err := s.client.Set(ctx, codeKey(p, identifier), strings.ToUpper(code), s.ttl).Err(); err != nil {
		return unavailable(err)
	}
	return domain.CacheResult{Status: domain.CacheOK, Code: strings.ToUpper(code), TTL: s.ttl}
}

// Get is a read-only lookup for diagnostics. Verification goes through VerifyAndConsume.
func (s *CodeStore) Get(ctx context.Context, p domain.Purpose, identifier string) domain.CacheResult {
	v, err := s.client.Get(ctx, codeKey(p, identifier)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.CacheResult{Status: domain.CacheNotFound}
	}
	if err != nil {
		return unavailable(err)
	}
	return domain.CacheResult{Status: domain.CacheOK, Code: v}
}

func (s *CodeStore) Delete(ctx context.Context, p domain.Purpose, identifier string) domain.CacheResult {
	n, err := s.client.Del(ctx, codeKey(p, identifier)).Result()
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return domain.CacheResult{Status: domain.CacheNotFound}
	}
	return domain.CacheResult{Status: domain.CacheOK}
}

// TTL returns the remaining lifetime of the outstanding code.
func (s *CodeStore) TTL(ctx context.Context, p domain.Purpose, identifier string) domain.CacheResult {
	d, err := s.client.TTL(ctx, codeKey(p, identifier)).Result()
	if err != nil {
		return unavailable(err)
	}
	// -2: no key; -1: key without expiry, which this store never writes.
	if d < 0 {
		return domain.CacheResult{Status: domain.CacheNotFound}
	}
	return domain.CacheResult{Status: domain.CacheOK, TTL: d}
}

// VerifyAndConsume deletes the stored code when it equals supplied (case-insensitive).
// A mismatch leaves the code in place.
func (s *CodeStore) VerifyAndConsume(ctx context.Context, p domain.Purpose, identifier, supplied string) domain.ConsumeResult {
	n, err := consumeScript.Run(ctx, s.client, []string{codeKey(p, identifier)}, strings.ToUpper(strings.TrimSpace(supplied))).Int()
	if err != nil {
		return domain.ConsumeResult{Status: domain.ConsumeUnavailable, Err: err}
	}
	switch n {
	case 1:
		return domain.ConsumeResult{Status: domain.ConsumeMatched}
	case 0:
		return domain.ConsumeResult{Status: domain.ConsumeAbsent}
	default:
		return domain.ConsumeResult{Status: domain.ConsumeMismatch}
	}
}

func unavailable(err error) domain.CacheResult {
	return domain.CacheResult{Status: domain.CacheUnavailable, Err: err}
}
