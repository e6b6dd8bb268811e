package redisinfra

import (
	"github.com/go-verify-api/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewClient creates the Redis client backing codes and cooldowns.
// Retries are disabled: a failed command is reported to the caller at once so
// the verification service can switch to the durable fallback.
func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
		MaxRetries:  -1,
	})
}
