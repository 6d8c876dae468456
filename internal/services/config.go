package services

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"casino/internal/datastore"
	"casino/internal/models"
	"casino/internal/pkg/caching"

	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceConfig struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache
}

func NewServiceConfig(container *do.Injector) (*ServiceConfig, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	readonlyCache, err := do.Invoke[caching.ReadOnlyCache](container)
	if err != nil {
		return nil, err
	}

	return &ServiceConfig{container, postgresDB, readonlyPostgresDB, cache, readonlyCache}, nil
}

// getRawConfig returns "" for a missing key so the caller falls back to its default.
func (service *ServiceConfig) getRawConfig(ctx context.Context, key string) (string, error) {
	callback := func() (string, error) {
		config, err := datastore.GetConfigByKey(ctx, service.readonlyPostgresDB, key)
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return config.Value, nil
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyConfig(key), CACHE_TTL_5_MINS, callback)
}

func (service *ServiceConfig) GetStringConfig(ctx context.Context, key string, defaultValue string) (string, error) {
	value, err := service.getRawConfig(ctx, key)
	if err != nil {
		return defaultValue, err
	}
	if value == "" {
		return defaultValue, nil
	}
	return value, nil
}

func (service *ServiceConfig) GetIntConfig(ctx context.Context, key string, defaultValue int64) (int64, error) {
	value, err := service.getRawConfig(ctx, key)
	if err != nil || value == "" {
		return defaultValue, err
	}

	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue, err
	}
	return intValue, nil
}

// GetDurationConfig accepts Go duration strings ("30s", "24h") or plain seconds.
func (service *ServiceConfig) GetDurationConfig(ctx context.Context, key string, defaultValue time.Duration) (time.Duration, error) {
	value, err := service.getRawConfig(ctx, key)
	if err != nil || value == "" {
		return defaultValue, err
	}

	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, err
	}
	return d, nil
}

func (service *ServiceConfig) SetConfig(ctx context.Context, key, value string) error {
	err := datastore.UpsertConfig(ctx, service.postgresDB, &models.Config{Key: key, Value: value})
	if err != nil {
		return storeError(err)
	}
	return service.cache.Delete(ctx, DBKeyConfig(key))
}

func (service *ServiceConfig) ListConfigs(ctx context.Context) ([]models.Config, error) {
	configs, err := datastore.GetConfigs(ctx, service.readonlyPostgresDB)
	if err != nil {
		return nil, storeError(err)
	}
	return configs, nil
}
