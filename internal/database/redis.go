package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/triggah61/acent-messenger-backend/internal/config"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
)

// Redis stays nil when the server is unreachable; every helper below then
// degrades to a no-op (allow, miss, not blacklisted).
var Redis *redis.Client

var ErrCacheMiss = errors.New("cache miss")

func InitRedis(ctx context.Context, cfg *config.Config) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, throttling, caching and token revocation disabled")
		_ = client.Close()
		return
	}
	Redis = client
	logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
}

// AllowAction counts hits on key inside window and reports whether the
// count is still within limit.
func AllowAction(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if Redis == nil {
		return true, nil
	}
	key = fmt.Sprintf("rate_limit:%s", key)
	count, err := Redis.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		Redis.Expire(ctx, key, window)
	}
	return count <= int64(limit), nil
}

func CacheSet(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if Redis == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Redis.Set(ctx, key, payload, expiration).Err()
}

func CacheGet(ctx context.Context, key string, dest interface{}) error {
	if Redis == nil {
		return ErrCacheMiss
	}
	val, err := Redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

func CacheInvalidate(ctx context.Context, keys ...string) error {
	if Redis == nil || len(keys) == 0 {
		return nil
	}
	return Redis.Del(ctx, keys...).Err()
}

func blacklistKey(jti string) string {
	return "token_blacklist:" + jti
}

// BlacklistToken revokes a token id until its natural expiry.
func BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if Redis == nil {
		return errors.New("redis not configured")
	}
	return Redis.Set(ctx, blacklistKey(jti), "1", ttl).Err()
}

func IsTokenBlacklisted(ctx context.Context, jti string) bool {
	if Redis == nil || jti == "" {
		return false
	}
	n, err := Redis.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		logger.Warn().Err(err).Msg("Token blacklist lookup failed")
		return false
	}
	return n > 0
}
