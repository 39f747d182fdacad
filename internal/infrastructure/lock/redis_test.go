package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, NewRedis(client, "brokerlink", WithTTL(time.Minute), WithRetryWait(5*time.Millisecond))
}

func TestRedis_LockAndRelease(t *testing.T) {
	mr, l := newTestRedis(t)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("brokerlink:lock:user-1"))
	assert.Equal(t, time.Minute, mr.TTL("brokerlink:lock:user-1"))

	unlock()
	assert.False(t, mr.Exists("brokerlink:lock:user-1"))
}

func TestRedis_ContendedKeyWaitsForContext(t *testing.T) {
	_, l := newTestRedis(t)

	unlock, err := l.Lock(context.Background(), "user-1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRedis_AcquiresAfterRelease(t *testing.T) {
	_, l := newTestRedis(t)

	unlock, err := l.Lock(context.Background(), "user-1")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		second, err := l.Lock(ctx, "user-1")
		if assert.NoError(t, err) {
			second()
		}
		close(acquired)
	}()

	time.Sleep(20 * time.Millisecond)
	unlock()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second holder never acquired the lock")
	}
}

func TestRedis_ExpiredLockNotReleasedByOldHolder(t *testing.T) {
	mr, l := newTestRedis(t)

	unlock, err := l.Lock(context.Background(), "user-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	require.False(t, mr.Exists("brokerlink:lock:user-1"))

	other, err := l.Lock(context.Background(), "user-1")
	require.NoError(t, err)

	unlock()
	assert.True(t, mr.Exists("brokerlink:lock:user-1"), "stale holder must not release the new lock")

	other()
	assert.False(t, mr.Exists("brokerlink:lock:user-1"))
}

func TestRedis_ConnectionError(t *testing.T) {
	mr, l := newTestRedis(t)
	mr.Close()

	_, err := l.Lock(context.Background(), "user-1")
	assert.Error(t, err)
}
