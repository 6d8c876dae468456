package handler

import (
	"strconv"
	"time"

	"casino/internal/datastore"
	"casino/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupLedger struct {
	container *do.Injector
}

type adjustRequest struct {
	Coins  int64  `json:"coins"`
	XP     int64  `json:"xp"`
	Reason string `json:"reason"`
}

type revertRequest struct {
	Reason string `json:"reason"`
}

func parseTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseTransactionFilter(c echo.Context) (datastore.TransactionFilter, error) {
	filter := datastore.TransactionFilter{
		UserID:   c.QueryParam("user_id"),
		ActorID:  c.QueryParam("actor_id"),
		Source:   c.QueryParam("source"),
		TraceID:  c.QueryParam("trace_id"),
		Reverted: datastore.RevertedFilter(c.QueryParam("reverted")),
	}

	switch filter.Reverted {
	case datastore.RevertedInclude, datastore.RevertedExclude, datastore.RevertedOnly:
	default:
		return filter, invalid("reverted must be exclude or only")
	}

	var err error
	if filter.Since, err = parseTime(c.QueryParam("since")); err != nil {
		return filter, invalid("since must be RFC3339")
	}
	if filter.Until, err = parseTime(c.QueryParam("until")); err != nil {
		return filter, invalid("until must be RFC3339")
	}

	if v := c.QueryParam("min_abs"); v != "" {
		if filter.MinAbs, err = strconv.ParseInt(v, 10, 64); err != nil {
			return filter, invalid("min_abs must be an integer")
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			return filter, invalid("limit must be an integer")
		}
	}
	return filter, nil
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("invalid id")
	}
	return id, nil
}

func (gr *groupLedger) ListTransactions(c echo.Context) error {
	serviceLedger, err := do.Invoke[*services.ServiceLedger](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	records, err := serviceLedger.ListTransactions(c.Request().Context(), c.Param("community"), filter)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	return httpx.RestAbort(c, records, nil)
}

func (gr *groupLedger) GetTransaction(c echo.Context) error {
	serviceLedger, err := do.Invoke[*services.ServiceLedger](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	id, err := parseID(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	record, err := serviceLedger.GetTransaction(c.Request().Context(), c.Param("community"), id)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	return httpx.RestAbort(c, record, nil)
}

func (gr *groupLedger) RevertTransaction(c echo.Context) error {
	serviceLedger, err := do.Invoke[*services.ServiceLedger](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	id, err := parseID(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var req revertRequest
	if err := c.Bind(&req); err != nil {
		return httpx.RestAbort(c, nil, invalid("invalid body"))
	}

	result, err := serviceLedger.ReverseTransaction(c.Request().Context(), c.Param("community"), id, services.Meta{
		Reason:  req.Reason,
		ActorID: resolveActor(c),
	})
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	return httpx.RestAbort(c, result, nil)
}

func (gr *groupLedger) RevertTrace(c echo.Context) error {
	serviceLedger, err := do.Invoke[*services.ServiceLedger](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	var req revertRequest
	if err := c.Bind(&req); err != nil {
		return httpx.RestAbort(c, nil, invalid("invalid body"))
	}

	results, err := serviceLedger.ReverseTrace(c.Request().Context(), c.Param("community"), c.Param("trace"), services.Meta{
		Reason:  req.Reason,
		ActorID: resolveActor(c),
	})
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	return httpx.RestAbort(c, results, nil)
}

func (gr *groupLedger) GetAccount(c echo.Context) error {
	serviceLedger, err := do.Invoke[*services.ServiceLedger](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}
	serviceDraw, err := do.Invoke[*services.ServiceDraw](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()
	community, user := c.Param("community"), c.Param("user")

	account, err := serviceLedger.GetAccount(ctx, community, user)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	profile, err := serviceDraw.GetProfile(ctx, community, user)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	inventory, err := serviceDraw.GetInventory(ctx, community, user)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}

	return httpx.RestAbort(c, map[string]interface{}{
		"account":   account,
		"profile":   profile,
		"inventory": inventory,
	}, nil)
}

func (gr *groupLedger) AdjustAccount(c echo.Context) error {
	serviceLedger, err := do.Invoke[*services.ServiceLedger](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	var req adjustRequest
	if err := c.Bind(&req); err != nil {
		return httpx.RestAbort(c, nil, invalid("invalid body"))
	}
	if req.Coins == 0 && req.XP == 0 {
		return httpx.RestAbort(c, nil, invalid("coins or xp is required"))
	}

	actor := resolveActor(c)
	result, err := serviceLedger.AdjustBalance(c.Request().Context(), c.Param("community"), c.Param("user"), services.Delta{
		Coins: req.Coins,
		XP:    req.XP,
	}, services.Meta{
		Source:   services.SOURCE_ADMIN,
		Reason:   req.Reason,
		ActorID:  actor,
		ForceLog: true,
		Extra:    map[string]interface{}{"admin_note": req.Reason},
	})
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	return httpx.RestAbort(c, result, nil)
}

func (gr *groupLedger) GrantDraws(c echo.Context) error {
	serviceDraw, err := do.Invoke[*services.ServiceDraw](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	var req struct {
		Draws  int64  `json:"draws"`
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return httpx.RestAbort(c, nil, invalid("invalid body"))
	}

	profile, err := serviceDraw.GrantDrawCredits(c.Request().Context(), c.Param("community"), c.Param("user"), req.Draws, services.Meta{
		Reason:  req.Reason,
		ActorID: resolveActor(c),
	})
	if err != nil {
		return httpx.RestAbort(c, nil, wrapError(err))
	}
	return httpx.RestAbort(c, profile, nil)
}
