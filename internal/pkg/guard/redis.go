package guard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis shares guard state between bot processes.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func dbKeyCooldown(communityID, userID, key string) string {
	return fmt.Sprintf("guard:cooldown:%s:%s:%s", communityID, userID, key)
}

// burst keys share a hash tag so the block transaction stays on one cluster slot
func dbKeyBurst(bucket, key string) string {
	return fmt.Sprintf("guard:burst:{%s:%s}", bucket, key)
}

func dbKeyBurstBlock(bucket, key string) string {
	return fmt.Sprintf("guard:burst_block:{%s:%s}", bucket, key)
}

func (g *Redis) CheckAndConsumeCooldown(ctx context.Context, communityID, userID, key string, duration time.Duration) (time.Duration, error) {
	k := dbKeyCooldown(communityID, userID, key)
	ok, err := g.client.SetNX(ctx, k, time.Now().UnixMilli(), duration).Result()
	if err != nil {
		return 0, err
	}
	if ok {
		return 0, nil
	}

	remaining, err := g.client.PTTL(ctx, k).Result()
	if err != nil {
		return 0, err
	}
	if remaining <= 0 {
		// expired between the two calls
		return 0, g.client.Set(ctx, k, time.Now().UnixMilli(), duration).Err()
	}
	return remaining, nil
}

// BurstGuard keeps one sorted set of hit timestamps per key, so the window slides with
// every hit instead of refilling at a fixed rate.
func (g *Redis) BurstGuard(ctx context.Context, bucket, key string, window time.Duration, maxHits int, block time.Duration) (time.Duration, error) {
	blockKey := dbKeyBurstBlock(bucket, key)
	remaining, err := g.client.PTTL(ctx, blockKey).Result()
	if err != nil {
		return 0, err
	}
	if remaining > 0 {
		return remaining, nil
	}

	k := dbKeyBurst(bucket, key)
	now := time.Now()
	var count *redis.IntCmd
	_, err = g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, k, "-inf", strconv.FormatInt(now.Add(-window).UnixMicro(), 10))
		pipe.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixMicro()), Member: uuid.NewString()})
		count = pipe.ZCard(ctx, k)
		pipe.PExpire(ctx, k, window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if count.Val() <= int64(maxHits) {
		return 0, nil
	}

	_, err = g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.Set(ctx, blockKey, 1, block)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return block, nil
}

// Sweep is a no-op: redis expires the keys itself.
func (g *Redis) Sweep() int {
	return 0
}
