package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/jhoicas/vigia-auth/internal/application/auth"
)

// Valores por defecto del bloqueo de login.
const (
	DefaultMaxFailures = 7
	DefaultLockout     = 15 * time.Minute

	keyPrefix = "vigia:login:"
)

var _ auth.LoginThrottle = (*RedisThrottle)(nil)

// RedisThrottle cuenta fallos de login por clave en Redis.
// El contador vive lockout desde el primer fallo; al llegar a maxFailures la clave
// queda bloqueada hasta que expira.
type RedisThrottle struct {
	client      redis.UniversalClient
	maxFailures int
	lockout     time.Duration
}

// NewRedisThrottle construye el throttle. Valores <= 0 usan los defaults.
func NewRedisThrottle(client redis.UniversalClient, maxFailures int, lockout time.Duration) *RedisThrottle {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	if lockout <= 0 {
		lockout = DefaultLockout
	}
	return &RedisThrottle{client: client, maxFailures: maxFailures, lockout: lockout}
}

func failuresKey(key string) string { return keyPrefix + "failures:" + key }
func lockKey(key string) string     { return keyPrefix + "locked:" + key }

// Locked informa si la clave está bloqueada.
func (t *RedisThrottle) Locked(ctx context.Context, key string) (bool, error) {
	n, err := t.client.Exists(ctx, lockKey(key)).Result()
	if err != nil {
		return false, redisErr("locked", err)
	}
	return n > 0, nil
}

// RecordFailure incrementa el contador y bloquea la clave al llegar al umbral.
func (t *RedisThrottle) RecordFailure(ctx context.Context, key string) error {
	fk := failuresKey(key)
	n, err := t.client.Incr(ctx, fk).Result()
	if err != nil {
		return redisErr("record failure", err)
	}
	if n == 1 {
		if err := t.client.Expire(ctx, fk, t.lockout).Err(); err != nil {
			return redisErr("expire failures", err)
		}
	}
	if n < int64(t.maxFailures) {
		return nil
	}
	pipe := t.client.TxPipeline()
	pipe.Set(ctx, lockKey(key), "1", t.lockout)
	pipe.Del(ctx, fk)
	if _, err := pipe.Exec(ctx); err != nil {
		return redisErr("lock", err)
	}
	return nil
}

// Reset limpia contador y bloqueo.
func (t *RedisThrottle) Reset(ctx context.Context, key string) error {
	if err := t.client.Del(ctx, failuresKey(key), lockKey(key)).Err(); err != nil {
		return redisErr("reset", err)
	}
	return nil
}

func redisErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return oops.Code("THROTTLE_UNAVAILABLE").In("redis").With("operation", op).Wrap(err)
}
