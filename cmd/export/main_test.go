package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"casino/internal/services"
	"casino/internal/testutil"

	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportLedger(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	ledger := do.MustInvoke[*services.ServiceLedger](env.Container)

	_, err := ledger.AdjustBalance(ctx, "guild-1", "alice", services.Delta{Coins: 40}, services.Meta{Source: services.SOURCE_ADMIN, Reason: "seed"})
	require.NoError(t, err)
	_, err = ledger.Transfer(ctx, "guild-1", "alice", "bob", 15, services.Meta{})
	require.NoError(t, err)
	_, err = ledger.AdjustBalance(ctx, "guild-2", "alice", services.Delta{Coins: 7}, services.Meta{})
	require.NoError(t, err)

	var buf bytes.Buffer
	count, err := exportLedger(ctx, env.DB, "guild-1", time.Unix(0, 0), &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"alice", services.SYSTEM_ACTOR, services.SOURCE_ADMIN, "seed", "0", "40", "40"}, rows[1][2:9])
	assert.Equal(t, rows[2][12], rows[3][12], "transfer legs share a trace")

	buf.Reset()
	count, err = exportLedger(ctx, env.DB, "guild-1", env.Clock.Now().Add(time.Hour), &buf)
	require.NoError(t, err)
	assert.Zero(t, count)
}
