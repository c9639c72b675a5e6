package redislivestore

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestLockLease(t *testing.T) {
	redisOpts, err := redis.ParseURL("redis://localhost:6379/0")
	require.NoError(t, err)
	rdb := redis.NewClient(redisOpts)
	pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		t.Skipf("redis not available: %s", err)
	}

	ttl := 300 * time.Millisecond
	store := &lockStore{rdb: rdb, ttl: ttl, retryDelay: 10 * time.Millisecond}

	t.Run("held past ttl", func(t *testing.T) {
		ctx := t.Context()
		unlock, err := store.Lock(ctx, "lease:held")
		require.NoError(t, err)

		time.Sleep(3 * ttl)

		timeoutCtx, cancel := context.WithTimeout(ctx, ttl)
		defer cancel()
		_, err = store.Lock(timeoutCtx, "lease:held")
		require.ErrorIs(t, err, context.DeadlineExceeded)

		unlock()

		unlockAgain, err := store.Lock(ctx, "lease:held")
		require.NoError(t, err)
		unlockAgain()
	})

	t.Run("expires once released", func(t *testing.T) {
		ctx := t.Context()
		unlock, err := store.Lock(ctx, "lease:released")
		require.NoError(t, err)
		unlock()
		// Calling unlock twice is a no-op.
		unlock()

		exists, err := rdb.Exists(ctx, lockKeyPrefix+"lease:released").Result()
		require.NoError(t, err)
		require.Zero(t, exists)
	})
}
