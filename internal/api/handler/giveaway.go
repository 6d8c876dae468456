package handler

import (
	"casino/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupGiveaway struct {
	container *do.Injector
}

type roundResponse struct {
	Giveaway interface{}     `json:"giveaway"`
	Round    *services.Round `json:"round,omitempty"`
}

func (gr *groupGiveaway) ListActive(c echo.Context) error {
	serviceGiveaway, err := do.Invoke[*services.ServiceGiveaway](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	giveaways, err := serviceGiveaway.ListActive(c.Request().Context(), c.Param("community"))
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	return httpx.RestAbort(c, giveaways, nil)
}

func (gr *groupGiveaway) Show(c echo.Context) error {
	serviceGiveaway, err := do.Invoke[*services.ServiceGiveaway](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()
	giveaway, err := serviceGiveaway.Get(ctx, c.Param("id"))
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	winners, err := serviceGiveaway.GetWinners(ctx, giveaway.MessageID)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	payouts, err := serviceGiveaway.GetPayouts(ctx, giveaway.MessageID)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}

	return httpx.RestAbort(c, map[string]interface{}{
		"giveaway": giveaway,
		"winners":  winners,
		"payouts":  payouts,
	}, nil)
}

func (gr *groupGiveaway) End(c echo.Context) error {
	serviceGiveaway, err := do.Invoke[*services.ServiceGiveaway](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	giveaway, round, err := serviceGiveaway.End(c.Request().Context(), c.Param("id"), resolveActor(c))
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	return httpx.RestAbort(c, roundResponse{giveaway, round}, nil)
}

func (gr *groupGiveaway) Reroll(c echo.Context) error {
	serviceGiveaway, err := do.Invoke[*services.ServiceGiveaway](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	var req struct {
		Winners int `json:"winners"`
	}
	if err := c.Bind(&req); err != nil {
		return httpx.RestAbort(c, nil, invalid("invalid body"))
	}

	giveaway, round, err := serviceGiveaway.Reroll(c.Request().Context(), c.Param("id"), req.Winners, resolveActor(c))
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	return httpx.RestAbort(c, roundResponse{giveaway, round}, nil)
}

func (gr *groupGiveaway) Cancel(c echo.Context) error {
	serviceGiveaway, err := do.Invoke[*services.ServiceGiveaway](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	giveaway, err := serviceGiveaway.Cancel(c.Request().Context(), c.Param("id"), resolveActor(c))
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	return httpx.RestAbort(c, roundResponse{Giveaway: giveaway}, nil)
}
