package services

import (
	"context"

	"casino/internal/datastore"
	"casino/internal/datastore/redis_store"
	"casino/internal/models"
	"casino/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
)

const LEADERBOARD_REBUILD_SIZE = 100

type ServiceLeaderboard struct {
	container          *do.Injector
	redisDB            redis.UniversalClient
	readonlyPostgresDB *bun.DB

	serviceConfig *ServiceConfig
}

func NewServiceLeaderboard(container *do.Injector) (*ServiceLeaderboard, error) {
	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		redisDB = nil
	}

	return &ServiceLeaderboard{container, redisDB, readonlyPostgresDB, serviceConfig}, nil
}

// Top serves the coin ranking from redis and falls back to the accounts table.
func (service *ServiceLeaderboard) Top(ctx context.Context, communityID string, limit int) ([]*models.LeaderboardItem, error) {
	if limit <= 0 {
		configured, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_LEADERBOARD_LIMIT, DEFAULT_LEADERBOARD_LIMIT)
		limit = int(configured)
	}

	if service.redisDB != nil {
		items, err := redis_store.GetLeaderboard(ctx, service.redisDB, communityID, limit)
		if err == nil && len(items) > 0 {
			return items, nil
		}
		if err != nil {
			logger.WithFields(logrus.Fields{"community_id": communityID}).WithError(err).Warn("leaderboard read failed")
		}
	}

	return service.fromDatabase(ctx, communityID, limit)
}

func (service *ServiceLeaderboard) fromDatabase(ctx context.Context, communityID string, limit int) ([]*models.LeaderboardItem, error) {
	accounts, err := datastore.GetTopAccounts(ctx, service.readonlyPostgresDB, communityID, limit, 0)
	if err != nil {
		return nil, storeError(err)
	}

	items := make([]*models.LeaderboardItem, len(accounts))
	for i, account := range accounts {
		items[i] = &models.LeaderboardItem{UserID: account.UserID, Score: float64(account.Coins), Rank: i + 1}
	}
	return items, nil
}

// Rebuild replaces every community board from the accounts table. Without redis there is
// nothing to rebuild.
func (service *ServiceLeaderboard) Rebuild(ctx context.Context) (int, error) {
	if service.redisDB == nil {
		return 0, nil
	}

	communityIDs, err := datastore.GetCommunityIDs(ctx, service.readonlyPostgresDB)
	if err != nil {
		return 0, storeError(err)
	}

	for _, communityID := range communityIDs {
		items, err := service.fromDatabase(ctx, communityID, LEADERBOARD_REBUILD_SIZE)
		if err != nil {
			return 0, err
		}
		if err := redis_store.ReplaceLeaderboard(ctx, service.redisDB, communityID, items); err != nil {
			return 0, err
		}
	}
	return len(communityIDs), nil
}
