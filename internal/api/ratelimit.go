package api

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter throttles sign-in attempts.
type LoginLimiter interface {
	Allow(ctx context.Context, ip, identifier string) (bool, error)
	RecordFailure(ctx context.Context, identifier string) error
	Reset(ctx context.Context, identifier string) error
}

type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisLoginLimiter counts attempts per IP and identifier per hour and locks
// an identifier after repeated failures.
type RedisLoginLimiter struct {
	client        redisRateCounter
	limitPerHour  int
	lockThreshold int
	lockTTL       time.Duration
	now           func() time.Time
}

func NewRedisLoginLimiter(client redisRateCounter, limitPerHour, lockThreshold int, lockTTL time.Duration) *RedisLoginLimiter {
	return &RedisLoginLimiter{
		client:        client,
		limitPerHour:  limitPerHour,
		lockThreshold: lockThreshold,
		lockTTL:       lockTTL,
		now:           time.Now,
	}
}

// Allow 速率限制：每 IP+标识 每小时 limitPerHour 次，并检查锁定状态。
func (l *RedisLoginLimiter) Allow(ctx context.Context, ip, identifier string) (bool, error) {
	identifier = normalizeIdentifier(identifier)

	rateKey := "rate:login:" + ip + ":" + identifier + ":" + l.now().UTC().Format("2006010215")
	count, err := incrWithTTL(ctx, l.client, rateKey, time.Hour)
	if err != nil {
		return true, err
	}
	if l.limitPerHour > 0 && count > int64(l.limitPerHour) {
		return false, nil
	}

	ttl, err := l.client.TTL(ctx, lockKey(identifier)).Result()
	if err != nil {
		return true, err
	}
	return ttl <= 0, nil
}

// RecordFailure 累计失败次数，达到阈值后锁定该标识。
func (l *RedisLoginLimiter) RecordFailure(ctx context.Context, identifier string) error {
	identifier = normalizeIdentifier(identifier)
	if l.lockThreshold <= 0 {
		return nil
	}

	failures, err := incrWithTTL(ctx, l.client, failKey(identifier), l.lockTTL)
	if err != nil {
		return err
	}
	if failures < int64(l.lockThreshold) {
		return nil
	}
	if err := l.client.Set(ctx, lockKey(identifier), "1", l.lockTTL).Err(); err != nil {
		return err
	}
	return l.client.Del(ctx, failKey(identifier)).Err()
}

// Reset 登录成功：清理失败计数。
func (l *RedisLoginLimiter) Reset(ctx context.Context, identifier string) error {
	return l.client.Del(ctx, failKey(normalizeIdentifier(identifier))).Err()
}

func incrWithTTL(ctx context.Context, client redisRateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}

func normalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func lockKey(identifier string) string { return "lock:login:" + identifier }
func failKey(identifier string) string { return "lock:login:fail:" + identifier }
