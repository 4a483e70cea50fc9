// Package runlock provides the pipeline run lock: a Redis lock shared across
// processes and an in-process fallback.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quietly-stated/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "quietly:lock:"

// ErrNotOwner is returned by unlock when the lock expired or was taken over.
var ErrNotOwner = errors.New("run lock is no longer owned")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock implements domain.RunLock with SET NX PX.
type RedisLock struct {
	client *redis.Client
}

var _ domain.RunLock = (*RedisLock)(nil)

func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{client: client}
}

// NewRedisLockWithURL connects to the Redis instance at url.
func NewRedisLockWithURL(ctx context.Context, url string) (*RedisLock, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisLock{client: client}, nil
}

func (l *RedisLock) TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	key := keyPrefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock %s: %w", name, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	return func(ctx context.Context) error {
		released, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("failed to release run lock %s: %w", name, err)
		}
		if released == 0 {
			return ErrNotOwner
		}
		return nil
	}, nil
}

// Close closes the Redis connection.
func (l *RedisLock) Close() error {
	return l.client.Close()
}
