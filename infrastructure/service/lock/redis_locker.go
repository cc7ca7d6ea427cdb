package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/tripdesk/tripdesk/application/port/outbound"
	"github.com/tripdesk/tripdesk/infrastructure/service/logger"
)

// releaseScript deletes the key only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a single-instance redis lock (SET NX PX) shared by every
// server process.
type RedisLocker struct {
	client       *redis.Client
	prefix       string
	wait         time.Duration
	pollInterval time.Duration
	logger       logger.Logger
}

var _ outbound.RequestLocker = (*RedisLocker)(nil)

func NewRedisLocker(client *redis.Client, wait time.Duration, log logger.Logger) *RedisLocker {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &RedisLocker{
		client:       client,
		prefix:       "tripdesk:lock:",
		wait:         wait,
		pollInterval: 25 * time.Millisecond,
		logger:       log,
	}
}

// Acquire polls until the lock is free, ctx ends, or the wait budget runs out.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	fullKey := l.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(fullKey, token), nil
		}
		if !time.Now().Before(deadline) {
			return nil, outbound.ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.pollInterval):
		}
	}
}

func (l *RedisLocker) releaser(key, token string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true
		// the caller's ctx may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			l.logger.Error(ctx, "Failed to release request lock", err, map[string]interface{}{
				"key": key,
			})
		}
	}
}
