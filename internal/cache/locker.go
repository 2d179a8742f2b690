package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/skyinventory/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still carries our token, so an
// expired lease taken over by another holder is left alone.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker serializes work on one flight across service instances with a
// SET NX PX lease. Waiters poll until the lease frees or ctx ends.
type RedisLocker struct {
	client redis.Cmdable
	ttl    time.Duration
	retry  time.Duration
}

func NewRedisLocker(client redis.Cmdable, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, retry: 15 * time.Millisecond}
}

func (l *RedisLocker) Lock(ctx context.Context, flightID string) (func(), error) {
	key := flightLockKey(flightID)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: acquire lock %s: %w", domain.ErrStoreUnavailable, key, err)
		}
		if ok {
			return func() { l.release(ctx, key, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: acquire lock %s: %w", domain.ErrStoreUnavailable, key, ctx.Err())
		case <-time.After(l.retry):
		}
	}
}

func (l *RedisLocker) release(ctx context.Context, key, token string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	// a failed release is bounded by the lease ttl
	_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
}
