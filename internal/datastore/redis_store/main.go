package redis_store

import (
	"context"
	"fmt"
	"time"

	"casino/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	AUDIT_QUEUE_MAX_LENGTH = 10000
	LEADERBOARD_TTL        = 24 * time.Hour
)

func dbKeyAuditQueue() string {
	return "audit:queue"
}

func dbKeyLeaderboard(communityID string) string {
	return fmt.Sprintf("leaderboard:coins:%s", communityID)
}

func dbKeyLogChannel(communityID string) string {
	return fmt.Sprintf("community:%s:log_channel", communityID)
}

// PushAuditEvent appends an event to the bounded audit queue; the oldest events are dropped
// when the consumer falls behind.
func PushAuditEvent(ctx context.Context, cmd redis.Cmdable, v *models.AuditEvent) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}

	pipe := cmd.TxPipeline()
	pipe.RPush(ctx, dbKeyAuditQueue(), b)
	pipe.LTrim(ctx, dbKeyAuditQueue(), -AUDIT_QUEUE_MAX_LENGTH, -1)
	_, err = pipe.Exec(ctx)
	return err
}

// PopAuditEvents removes up to n events from the head of the queue.
func PopAuditEvents(ctx context.Context, cmd redis.Cmdable, n int) ([]*models.AuditEvent, error) {
	items, err := cmd.LPopCount(ctx, dbKeyAuditQueue(), n).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	events := make([]*models.AuditEvent, 0, len(items))
	for _, item := range items {
		var v models.AuditEvent
		if err := msgpack.Unmarshal([]byte(item), &v); err != nil {
			continue
		}
		events = append(events, &v)
	}
	return events, nil
}

func SetLogChannel(ctx context.Context, cmd redis.Cmdable, communityID, channelID string) error {
	return cmd.Set(ctx, dbKeyLogChannel(communityID), channelID, 0).Err()
}

func GetLogChannel(ctx context.Context, cmd redis.Cmdable, communityID string) (string, error) {
	return cmd.Get(ctx, dbKeyLogChannel(communityID)).Result()
}

func SetLeaderboard(ctx context.Context, cmd redis.Cmdable, communityID string, v *models.LeaderboardItem) error {
	return cmd.ZAdd(ctx, dbKeyLeaderboard(communityID), redis.Z{
		Score:  v.Score,
		Member: v.UserID,
	}).Err()
}

// ReplaceLeaderboard swaps the whole board at once so readers never see a half-built ranking.
func ReplaceLeaderboard(ctx context.Context, cmd redis.Cmdable, communityID string, items []*models.LeaderboardItem) error {
	key := dbKeyLeaderboard(communityID)
	pipe := cmd.TxPipeline()
	pipe.Del(ctx, key)
	if len(items) > 0 {
		members := make([]redis.Z, len(items))
		for i, item := range items {
			members[i] = redis.Z{Score: item.Score, Member: item.UserID}
		}
		pipe.ZAdd(ctx, key, members...)
		pipe.Expire(ctx, key, LEADERBOARD_TTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func GetLeaderboard(ctx context.Context, cmd redis.Cmdable, communityID string, num int) ([]*models.LeaderboardItem, error) {
	// num always greater than 0
	items, err := cmd.ZRevRangeWithScores(ctx, dbKeyLeaderboard(communityID), 0, int64(num-1)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*models.LeaderboardItem, 0, len(items))
	for i, item := range items {
		userID, ok := item.Member.(string)
		if !ok {
			continue
		}
		out = append(out, &models.LeaderboardItem{
			UserID: userID,
			Score:  item.Score,
			Rank:   i + 1,
		})
	}
	return out, nil
}
