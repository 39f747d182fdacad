package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultLockTTL   = 2 * time.Minute
	defaultRetryWait = 50 * time.Millisecond
	releaseTimeout   = 5 * time.Second
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another holder is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lock shared across processes using SET NX PX.
type Redis struct {
	client    redis.Cmdable
	prefix    string
	ttl       time.Duration
	retryWait time.Duration
}

var _ Locker = (*Redis)(nil)

// RedisOption configures a Redis locker.
type RedisOption func(*Redis)

// WithTTL bounds how long a crashed holder can keep a key.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = ttl }
}

// WithRetryWait sets the polling interval while a key is held elsewhere.
func WithRetryWait(d time.Duration) RedisOption {
	return func(r *Redis) { r.retryWait = d }
}

// NewRedis creates a Redis-backed locker with keys under prefix.
func NewRedis(client redis.Cmdable, prefix string, opts ...RedisOption) *Redis {
	r := &Redis{
		client:    client,
		prefix:    prefix,
		ttl:       defaultLockTTL,
		retryWait: defaultRetryWait,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) redisKey(key string) string {
	return fmt.Sprintf("%s:lock:%s", r.prefix, key)
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := r.redisKey(key)
	token := uuid.NewString()

	ticker := time.NewTicker(r.retryWait)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, ctx.Err())
		}
	}

	logger := zerolog.Ctx(ctx)
	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()

			if err := releaseScript.Run(releaseCtx, r.client, []string{redisKey}, token).Err(); err != nil {
				logger.Warn().Err(err).Str("key", key).Msg("Failed to release lock")
			}
		})
	}, nil
}
