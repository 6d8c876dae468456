package interfaces

import (
	"context"
	"time"

	"casino/internal/models"
)

type Guard interface {
	CheckAndConsumeCooldown(ctx context.Context, communityID, userID, key string, duration time.Duration) (time.Duration, error)
	BurstGuard(ctx context.Context, bucket, key string, window time.Duration, maxHits int, block time.Duration) (time.Duration, error)
	Sweep() int
}

// Locker hands out a release func when the key was free.
type Locker interface {
	TryLock(ctx context.Context, key string) (func(), error)
}

// Announcer publishes results to the chat platform. Failures never undo a committed mutation.
type Announcer interface {
	AnnounceGiveaway(ctx context.Context, giveaway *models.Giveaway, round int, payouts []models.GiveawayPayout) error
}

type RoleAssigner interface {
	AssignRole(ctx context.Context, communityID, userID, roleID string) error
}

type AuditSink interface {
	Publish(ctx context.Context, event *models.AuditEvent) error
}

// EligibilityChecker is evaluated by the caller before a giveaway entry is recorded.
type EligibilityChecker func(ctx context.Context, giveaway *models.Giveaway, userID string) (bool, error)

type AuditRenderer interface {
	RenderAudit(ctx context.Context, channelID string, event *models.AuditEvent) error
}
