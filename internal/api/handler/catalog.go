package handler

import (
	"casino/internal/models"
	"casino/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupCatalog struct {
	container *do.Injector
}

func (gr *groupCatalog) List(c echo.Context) error {
	serviceDraw, err := do.Invoke[*services.ServiceDraw](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	items, err := serviceDraw.ListItems(c.Request().Context(), c.Param("community"), c.QueryParam("enabled") == "true")
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	return httpx.RestAbort(c, items, nil)
}

func (gr *groupCatalog) Create(c echo.Context) error {
	serviceDraw, err := do.Invoke[*services.ServiceDraw](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	var item models.DrawItem
	if err := c.Bind(&item); err != nil {
		return httpx.RestAbort(c, nil, invalid("invalid body"))
	}
	item.CommunityID = c.Param("community")

	created, err := serviceDraw.CreateItem(c.Request().Context(), &item)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	return httpx.RestAbort(c, created, nil)
}

func (gr *groupCatalog) Update(c echo.Context) error {
	serviceDraw, err := do.Invoke[*services.ServiceDraw](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	id, err := parseID(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var item models.DrawItem
	if err := c.Bind(&item); err != nil {
		return httpx.RestAbort(c, nil, invalid("invalid body"))
	}
	item.ID = id
	item.CommunityID = c.Param("community")

	updated, err := serviceDraw.UpdateItem(c.Request().Context(), &item)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	return httpx.RestAbort(c, updated, nil)
}

func (gr *groupCatalog) SetEnabled(c echo.Context) error {
	serviceDraw, err := do.Invoke[*services.ServiceDraw](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	id, err := parseID(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.Bind(&req); err != nil {
		return httpx.RestAbort(c, nil, invalid("invalid body"))
	}

	item, err := serviceDraw.SetItemEnabled(c.Request().Context(), c.Param("community"), id, req.Enabled)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	return httpx.RestAbort(c, item, nil)
}
