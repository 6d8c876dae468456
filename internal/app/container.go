package app

import (
	"database/sql"
	"os"

	"casino/internal/interfaces"
	"casino/internal/pkg/caching"
	"casino/internal/pkg/guard"
	"casino/internal/pkg/locker"
	"casino/internal/pkg/logger"
	"casino/internal/services"

	"github.com/go-redis/redis_rate/v10"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/hiendaovinh/toolkit/pkg/db"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewContainer wires the production graph. Without REDIS_URL every shared concern (cache,
// guard, lock, audit queue) falls back to process memory, which is only correct for a single
// process.
func NewContainer(vs map[string]string) *do.Injector {
	injector := do.New()
	for _, k := range []string{"REDIS_URL", "CLUSTER_REDIS_URL", "REDIS_URL_READONLY", "DB_DSN_READONLY", "API_MODE", "API_ORIGINS", "LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT"} {
		if _, ok := vs[k]; !ok {
			vs[k] = os.Getenv(k)
		}
	}
	if vs["API_MODE"] == "" {
		vs["API_MODE"] = "production"
	}
	if vs["API_ORIGINS"] == "" {
		vs["API_ORIGINS"] = "*"
	}

	if err := logger.Init(vs["LOG_LEVEL"], vs["LOG_FORMAT"], vs["LOG_OUTPUT"]); err != nil {
		logger.WithError(err).Warn("logger config ignored")
	}

	do.ProvideNamedValue(injector, "envs", vs)

	do.Provide(injector, func(i *do.Injector) (*bun.DB, error) {
		sqldb := sql.OpenDB(pgdriver.NewConnector(
			pgdriver.WithDSN(vs["DB_DSN"]),
		))
		return bun.NewDB(sqldb, pgdialect.New()), nil
	})

	do.ProvideNamed(injector, "db-readonly", func(i *do.Injector) (*bun.DB, error) {
		if vs["DB_DSN_READONLY"] == "" {
			return do.Invoke[*bun.DB](i)
		}
		sqldb := sql.OpenDB(pgdriver.NewConnector(
			pgdriver.WithDSN(vs["DB_DSN_READONLY"]),
		))
		return bun.NewDB(sqldb, pgdialect.New()), nil
	})

	if vs["REDIS_URL"] != "" || vs["CLUSTER_REDIS_URL"] != "" {
		provideRedis(injector, vs)
	} else {
		logger.Warn("REDIS_URL is empty, running with process-local cache, guard and locks")
		ProvideLocal(injector)
	}

	ProvideServices(injector)
	return injector
}

func newRedis(url, clusterURL string, readOnly bool) (redis.UniversalClient, error) {
	if clusterURL != "" {
		clusterOpts, err := redis.ParseClusterURL(clusterURL)
		if err != nil {
			return nil, err
		}
		clusterOpts.ReadOnly = readOnly
		return redis.NewClusterClient(clusterOpts), nil
	}
	return db.InitRedis(&db.RedisConfig{
		URL: url,
	})
}

func provideRedis(injector *do.Injector, vs map[string]string) {
	do.ProvideNamed(injector, "redis-db", func(i *do.Injector) (redis.UniversalClient, error) {
		return newRedis(vs["REDIS_URL"], vs["CLUSTER_REDIS_URL"], false)
	})

	do.ProvideNamed(injector, "redis-cache-readonly", func(i *do.Injector) (redis.UniversalClient, error) {
		if vs["REDIS_URL_READONLY"] == "" {
			return do.InvokeNamed[redis.UniversalClient](i, "redis-db")
		}
		return newRedis(vs["REDIS_URL_READONLY"], "", true)
	})

	do.Provide(injector, func(i *do.Injector) (caching.Cache, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-db")
		if err != nil {
			return nil, err
		}
		return caching.NewCacheRedis(dbRedis, true)
	})

	do.Provide(injector, func(i *do.Injector) (caching.ReadOnlyCache, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-cache-readonly")
		if err != nil {
			return nil, err
		}
		return caching.NewCacheRedis(dbRedis, true)
	})

	do.Provide(injector, func(i *do.Injector) (*redsync.Redsync, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-db")
		if err != nil {
			return nil, err
		}
		return redsync.New(goredis.NewPool(dbRedis)), nil
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.Locker, error) {
		rs, err := do.Invoke[*redsync.Redsync](i)
		if err != nil {
			return nil, err
		}
		return locker.NewRedsync(rs, services.GIVEAWAY_LOCK_TTL), nil
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.Guard, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-db")
		if err != nil {
			return nil, err
		}
		return guard.NewRedis(dbRedis), nil
	})

	do.Provide(injector, func(i *do.Injector) (*redis_rate.Limiter, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-db")
		if err != nil {
			return nil, err
		}
		return redis_rate.NewLimiter(dbRedis), nil
	})
}

// ProvideLocal registers the in-process cache, guard and locker.
func ProvideLocal(injector *do.Injector, opts ...guard.MemoryOption) {
	local := caching.NewCacheLocal(services.CACHE_TTL_1_MIN)

	do.Provide(injector, func(i *do.Injector) (caching.Cache, error) {
		return local, nil
	})

	do.Provide(injector, func(i *do.Injector) (caching.ReadOnlyCache, error) {
		return local, nil
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.Locker, error) {
		return locker.NewLocal(), nil
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.Guard, error) {
		return guard.NewMemory(opts...), nil
	})
}

// ProvideServices registers every service. Tests build the same graph on top of SQLite.
func ProvideServices(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*services.ServiceConfig, error) {
		return services.NewServiceConfig(i)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceAudit, error) {
		return services.NewServiceAudit(i)
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.AuditSink, error) {
		return do.Invoke[*services.ServiceAudit](i)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceLedger, error) {
		return services.NewServiceLedger(i)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceDraw, error) {
		return services.NewServiceDraw(i)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceGiveaway, error) {
		return services.NewServiceGiveaway(i)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceGames, error) {
		return services.NewServiceGames(i)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceModeration, error) {
		return services.NewServiceModeration(i)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceLeaderboard, error) {
		return services.NewServiceLeaderboard(i)
	})
}

// ProvideBot registers the chat transport and the collaborators it implements. It must run
// before the first service is resolved, since services pick up optional collaborators once.
func ProvideBot(injector *do.Injector, token string) {
	do.Provide(injector, func(i *do.Injector) (*services.Bot, error) {
		return services.NewBot(token)
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.Announcer, error) {
		return do.Invoke[*services.Bot](i)
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.RoleAssigner, error) {
		return do.Invoke[*services.Bot](i)
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.AuditRenderer, error) {
		return do.Invoke[*services.Bot](i)
	})
}
