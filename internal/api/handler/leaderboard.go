package handler

import (
	"strconv"

	"casino/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupLeaderboard struct {
	container *do.Injector
}

func (gr *groupLeaderboard) Top(c echo.Context) error {
	serviceLeaderboard, err := do.Invoke[*services.ServiceLeaderboard](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	leaderboard, err := serviceLeaderboard.Top(c.Request().Context(), c.Param("community"), limit)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	return httpx.RestAbort(c, leaderboard, nil)
}

func (gr *groupLeaderboard) Sanctions(c echo.Context) error {
	serviceModeration, err := do.Invoke[*services.ServiceModeration](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()
	community, user := c.Param("community"), c.Param("user")
	state, err := serviceModeration.GetState(ctx, community, user)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	events, err := serviceModeration.ListSanctions(ctx, community, user)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	return httpx.RestAbort(c, map[string]interface{}{"state": state, "events": events}, nil)
}
