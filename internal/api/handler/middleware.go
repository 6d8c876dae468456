package handler

import (
	"crypto/subtle"
	"errors"
	"math"
	"strconv"
	"strings"

	"casino/internal/services"

	"github.com/go-redis/redis_rate/v10"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
)

const (
	headerAPIKey = "X-Api-Key"
	headerActor  = "X-Actor-Id"
	adminActor   = "admin"

	ADMIN_RATE_LIMIT_PER_MINUTE = 120
)

// AuthnAdmin terminates every request that does not carry the admin api key.
func AuthnAdmin(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(headerAPIKey)
			if apiKey == "" || subtle.ConstantTimeCompare([]byte(header), []byte(apiKey)) != 1 {
				httpx.Abort(c, errorx.Wrap(errors.New("unauthorized"), errorx.Authn), -1)
				return nil
			}
			return next(c)
		}
	}
}

func dbKeyAdminRate(actor string) string {
	return "admin_api:rate:" + actor
}

// ThrottleAdmin caps the calls each actor makes per minute, shared across api replicas.
func ThrottleAdmin(limiter *redis_rate.Limiter, perMinute int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			res, err := limiter.Allow(c.Request().Context(), dbKeyAdminRate(resolveActor(c)), redis_rate.PerMinute(perMinute))
			if err != nil {
				httpx.Abort(c, errorx.Wrap(err, errorx.Service), -1)
				return nil
			}
			if res.Allowed == 0 {
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
				httpx.Abort(c, errorx.Wrap(errors.New("too many admin requests"), errorx.RateLimiting), -1)
				return nil
			}
			return next(c)
		}
	}
}

// resolveActor names the moderator behind an admin call, falling back to a generic admin.
func resolveActor(c echo.Context) string {
	actor := strings.TrimSpace(c.Request().Header.Get(headerActor))
	if actor == "" {
		return adminActor
	}
	return actor
}

// wrapError maps business reasons to error kinds understood by httpx.
func wrapError(err error) error {
	reason, ok := services.ReasonOf(err)
	if !ok {
		return errorx.Wrap(err, errorx.Service)
	}

	switch reason {
	case services.ReasonNotFound:
		return errorx.Wrap(err, errorx.NotExist)
	case services.ReasonCooldown, services.ReasonRateLimited, services.ReasonLocked:
		return errorx.Wrap(err, errorx.RateLimiting)
	case services.ReasonDatabaseUnavailable:
		return errorx.Wrap(err, errorx.Service)
	default:
		return errorx.Wrap(err, errorx.Invalid)
	}
}

func invalid(msg string) error {
	return errorx.Wrap(errors.New(msg), errorx.Validation)
}
