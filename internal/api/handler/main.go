package handler

import (
	"net/http"

	"github.com/go-redis/redis_rate/v10"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/do"
)

type Config struct {
	Container *do.Injector
	Mode      string
	Origins   []string
	APIKey    string
}

func New(cfg *Config) (http.Handler, error) {
	r := echo.New()
	r.Pre(middleware.RemoveTrailingSlash())
	if cfg.Mode == "debug" {
		r.Debug = true
		pprof.Register(r)
	}

	r.JSONSerializer = httpx.SegmentJSONSerializer{}
	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339}\t${method}\t${uri}\t${status}\t${latency_human}\n",
	}))
	r.Use(middleware.Recover())

	r.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "🎰")
	})

	routesAPIv1 := r.Group("/api/v1")
	{
		cors := middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Origins,
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, headerAPIKey, headerActor},
			MaxAge:       60 * 60,
		})

		routesAPIv1.Use(cors)
		routesAPIv1.Use(AuthnAdmin(cfg.APIKey))
		if limiter, err := do.Invoke[*redis_rate.Limiter](cfg.Container); err == nil {
			routesAPIv1.Use(ThrottleAdmin(limiter, ADMIN_RATE_LIMIT_PER_MINUTE))
		}

		conf := groupConfig{cfg.Container}
		routesAPIv1.GET("/configs", conf.List)
		routesAPIv1.PUT("/configs/:key", conf.Set)

		routesAPIv1Community := routesAPIv1.Group("/communities/:community")
		{
			l := groupLedger{cfg.Container}
			routesAPIv1Community.GET("/transactions", l.ListTransactions)
			routesAPIv1Community.GET("/transactions/:id", l.GetTransaction)
			routesAPIv1Community.POST("/transactions/:id/revert", l.RevertTransaction)
			routesAPIv1Community.POST("/traces/:trace/revert", l.RevertTrace)
			routesAPIv1Community.GET("/accounts/:user", l.GetAccount)
			routesAPIv1Community.POST("/accounts/:user/adjust", l.AdjustAccount)
			routesAPIv1Community.POST("/accounts/:user/draws", l.GrantDraws)

			lb := groupLeaderboard{cfg.Container}
			routesAPIv1Community.GET("/leaderboard", lb.Top)
			routesAPIv1Community.GET("/accounts/:user/sanctions", lb.Sanctions)

			ca := groupCatalog{cfg.Container}
			routesAPIv1Community.GET("/draw-items", ca.List)
			routesAPIv1Community.POST("/draw-items", ca.Create)
			routesAPIv1Community.PUT("/draw-items/:id", ca.Update)
			routesAPIv1Community.POST("/draw-items/:id/enabled", ca.SetEnabled)

			g := groupGiveaway{cfg.Container}
			routesAPIv1Community.GET("/giveaways", g.ListActive)
		}

		// giveaways are addressed by their message id, which is unique across communities
		routesAPIv1Giveaway := routesAPIv1.Group("/giveaways/:id")
		{
			g := groupGiveaway{cfg.Container}
			routesAPIv1Giveaway.GET("", g.Show)
			routesAPIv1Giveaway.POST("/end", g.End)
			routesAPIv1Giveaway.POST("/reroll", g.Reroll)
			routesAPIv1Giveaway.POST("/cancel", g.Cancel)
		}
	}

	return r, nil
}
