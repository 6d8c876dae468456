package guard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func TestCooldownDailyScenario(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	g := NewMemory(WithClock(clock.Now))

	remaining, err := g.CheckAndConsumeCooldown(ctx, "c1", "u1", "daily", time.Minute)
	require.NoError(t, err)
	require.Zero(t, remaining)

	clock.Advance(time.Second)
	remaining, err = g.CheckAndConsumeCooldown(ctx, "c1", "u1", "daily", time.Minute)
	require.NoError(t, err)
	require.Equal(t, 59*time.Second, remaining)

	clock.Advance(60 * time.Second)
	remaining, err = g.CheckAndConsumeCooldown(ctx, "c1", "u1", "daily", time.Minute)
	require.NoError(t, err)
	require.Zero(t, remaining)
}

func TestCooldownKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	g := NewMemory(WithClock(newFakeClock().Now))

	for _, tc := range []struct{ community, user, key string }{
		{"c1", "u1", "daily"},
		{"c1", "u1", "work"},
		{"c1", "u2", "daily"},
		{"c2", "u1", "daily"},
	} {
		remaining, err := g.CheckAndConsumeCooldown(ctx, tc.community, tc.user, tc.key, time.Hour)
		require.NoError(t, err)
		assert.Zero(t, remaining, "%+v", tc)
	}
}

func TestBurstGuardBlocksAfterMaxHits(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	g := NewMemory(WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		remaining, err := g.BurstGuard(ctx, "button", "u1", time.Second, 3, 10*time.Second)
		require.NoError(t, err)
		require.Zero(t, remaining)
		clock.Advance(100 * time.Millisecond)
	}

	remaining, err := g.BurstGuard(ctx, "button", "u1", time.Second, 3, 10*time.Second)
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, remaining)

	clock.Advance(4 * time.Second)
	remaining, err = g.BurstGuard(ctx, "button", "u1", time.Second, 3, 10*time.Second)
	require.NoError(t, err)
	require.Equal(t, 6*time.Second, remaining)

	clock.Advance(6 * time.Second)
	remaining, err = g.BurstGuard(ctx, "button", "u1", time.Second, 3, 10*time.Second)
	require.NoError(t, err)
	require.Zero(t, remaining)
}

func TestBurstGuardSlidingWindow(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	g := NewMemory(WithClock(clock.Now))

	// hits spread wider than the window never trip the guard
	for i := 0; i < 20; i++ {
		remaining, err := g.BurstGuard(ctx, "game", "u1", time.Second, 2, time.Minute)
		require.NoError(t, err)
		require.Zero(t, remaining)
		clock.Advance(600 * time.Millisecond)
	}
}

func TestSweepDropsStaleEntries(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	g := NewMemory(WithClock(clock.Now))

	_, err := g.CheckAndConsumeCooldown(ctx, "c1", "u1", "daily", time.Minute)
	require.NoError(t, err)
	_, err = g.CheckAndConsumeCooldown(ctx, "c1", "u2", "daily", time.Hour)
	require.NoError(t, err)
	_, err = g.BurstGuard(ctx, "button", "u1", time.Second, 5, time.Second)
	require.NoError(t, err)
	require.Equal(t, 3, g.Len())

	clock.Advance(2 * time.Minute)
	require.Equal(t, 2, g.Sweep())
	require.Equal(t, 1, g.Len())
}

func TestMaxKeysBoundsMemory(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	g := NewMemory(WithClock(clock.Now), WithMaxKeys(10))

	for i := 0; i < 50; i++ {
		_, err := g.CheckAndConsumeCooldown(ctx, "c1", fmt.Sprintf("u%d", i), "daily", time.Hour)
		require.NoError(t, err)
		clock.Advance(time.Second)
	}
	require.LessOrEqual(t, g.Len(), 10)

	// the newest key survived eviction
	remaining, err := g.CheckAndConsumeCooldown(ctx, "c1", "u49", "daily", time.Hour)
	require.NoError(t, err)
	require.Positive(t, remaining)
}
