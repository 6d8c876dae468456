package handler

import (
	"casino/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupConfig struct {
	container *do.Injector
}

func (gr *groupConfig) List(c echo.Context) error {
	serviceConfig, err := do.Invoke[*services.ServiceConfig](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	configs, err := serviceConfig.ListConfigs(c.Request().Context())
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	return httpx.RestAbort(c, configs, nil)
}

func (gr *groupConfig) Set(c echo.Context) error {
	serviceConfig, err := do.Invoke[*services.ServiceConfig](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	var req struct {
		Value string `json:"value"`
	}
	if err := c.Bind(&req); err != nil {
		return httpx.RestAbort(c, nil, invalid("invalid body"))
	}

	key := c.Param("key")
	if err := serviceConfig.SetConfig(c.Request().Context(), key, req.Value); err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	return httpx.RestAbort(c, map[string]string{"key": key, "value": req.Value}, nil)
}
