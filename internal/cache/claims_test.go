package cache_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushsvc/internal/cache"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set, skipping Redis test")
	}

	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}
	t.Cleanup(func() {
		keys, _ := client.Keys(context.Background(), cache.NotifiedPrefix+"test-*").Result()
		if len(keys) > 0 {
			client.Del(context.Background(), keys...)
		}
		client.Close()
	})
	return client
}

func TestPushClaims_FirstCallerWins(t *testing.T) {
	ctx := context.Background()
	claims := cache.NewPushClaims(setupTestRedis(t))

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := claims.Claim(ctx, "test-NL-1")
			assert.NoError(t, err)
			if ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, winners.Load())

	require.NoError(t, claims.Release(ctx, "test-NL-1"))
	ok, err := claims.Claim(ctx, "test-NL-1")
	require.NoError(t, err)
	assert.True(t, ok, "released claims can be taken again")
}
