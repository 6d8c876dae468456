package guard_test

import (
	"context"
	"os"
	"testing"
	"time"

	"casino/internal/pkg/guard"
	"casino/internal/testutil"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisGuard(t *testing.T) *guard.Redis {
	if !testutil.EnableIntegrationTest() || os.Getenv("REDIS_URL") == "" {
		t.Skip("set RUN_INTEGRATION_TEST and REDIS_URL to run against redis")
	}

	opts, err := redis.ParseURL(os.Getenv("REDIS_URL"))
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	return guard.NewRedis(client)
}

func TestRedisCooldown(t *testing.T) {
	ctx := context.Background()
	g := newRedisGuard(t)
	user := uuid.NewString()

	wait, err := g.CheckAndConsumeCooldown(ctx, "guild", user, "daily", time.Minute)
	require.NoError(t, err)
	assert.Zero(t, wait)

	wait, err = g.CheckAndConsumeCooldown(ctx, "guild", user, "daily", time.Minute)
	require.NoError(t, err)
	assert.InDelta(t, time.Minute, wait, float64(2*time.Second))

	wait, err = g.CheckAndConsumeCooldown(ctx, "guild", user, "weekly", time.Minute)
	require.NoError(t, err)
	assert.Zero(t, wait)
}

func TestRedisBurstGuard(t *testing.T) {
	ctx := context.Background()
	g := newRedisGuard(t)
	key := uuid.NewString()

	for i := 0; i < 3; i++ {
		wait, err := g.BurstGuard(ctx, "games", key, time.Minute, 3, 10*time.Second)
		require.NoError(t, err)
		assert.Zero(t, wait, "hit %d", i)
	}

	wait, err := g.BurstGuard(ctx, "games", key, time.Minute, 3, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, wait)

	wait, err = g.BurstGuard(ctx, "games", key, time.Minute, 3, 10*time.Second)
	require.NoError(t, err)
	assert.Greater(t, wait, time.Duration(0))
}

func TestRedisBurstGuardSlidingWindow(t *testing.T) {
	ctx := context.Background()
	g := newRedisGuard(t)
	key := uuid.NewString()

	for i := 0; i < 3; i++ {
		wait, err := g.BurstGuard(ctx, "games", key, 3*time.Second, 3, 10*time.Second)
		require.NoError(t, err)
		assert.Zero(t, wait, "hit %d", i)
	}

	// a third of the window has passed, yet all three hits are still inside it
	time.Sleep(1100 * time.Millisecond)
	wait, err := g.BurstGuard(ctx, "games", key, 3*time.Second, 3, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, wait)
}

func TestRedisBurstGuardForgetsOldHits(t *testing.T) {
	ctx := context.Background()
	g := newRedisGuard(t)
	key := uuid.NewString()

	for i := 0; i < 3; i++ {
		wait, err := g.BurstGuard(ctx, "games", key, time.Second, 3, 10*time.Second)
		require.NoError(t, err)
		assert.Zero(t, wait, "hit %d", i)
	}

	time.Sleep(1100 * time.Millisecond)
	wait, err := g.BurstGuard(ctx, "games", key, time.Second, 3, 10*time.Second)
	require.NoError(t, err)
	assert.Zero(t, wait)
}
