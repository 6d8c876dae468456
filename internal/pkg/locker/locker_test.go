package locker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalTryLock(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	unlock, err := l.TryLock(ctx, "giveaway:1")
	require.NoError(t, err)

	_, err = l.TryLock(ctx, "giveaway:1")
	require.ErrorIs(t, err, ErrLocked)

	other, err := l.TryLock(ctx, "giveaway:2")
	require.NoError(t, err)
	other()

	unlock()
	unlock()

	again, err := l.TryLock(ctx, "giveaway:1")
	require.NoError(t, err)
	again()
}

func TestLocalTryLockConcurrent(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	var acquired int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := l.TryLock(ctx, "same"); err == nil {
				atomic.AddInt32(&acquired, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int32(1), acquired)
}

func TestRedsyncUnreachableIsNotLocked(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })

	l := NewRedsync(redsync.New(goredis.NewPool(client)), time.Second)
	_, err := l.TryLock(context.Background(), "giveaway:1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
}
