package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"casino/internal/datastore"
	"casino/internal/models"
	"casino/internal/services"
	"casino/internal/testutil"

	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGames(t *testing.T) (*testutil.Env, *services.ServiceGames, *services.ServiceLedger, *services.ServiceConfig) {
	env := testutil.NewEnv(t)
	games, err := do.Invoke[*services.ServiceGames](env.Container)
	require.NoError(t, err)
	ledger, err := do.Invoke[*services.ServiceLedger](env.Container)
	require.NoError(t, err)
	config, err := do.Invoke[*services.ServiceConfig](env.Container)
	require.NoError(t, err)
	return env, games, ledger, config
}

func TestDailyCooldown(t *testing.T) {
	ctx := context.Background()
	env, games, _, config := newGames(t)
	require.NoError(t, config.SetConfig(ctx, services.CONFIG_DAILY_AMOUNT, "100"))

	res, err := games.Daily(ctx, community, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.Account.Coins)

	env.Clock.Advance(time.Hour)
	_, err = games.Daily(ctx, community, alice)
	require.ErrorIs(t, err, services.ErrCooldown)
	var businessErr *services.BusinessError
	require.True(t, errors.As(err, &businessErr))
	assert.Equal(t, 23*time.Hour, businessErr.RetryAfter)

	// the cooldown is per user
	_, err = games.Daily(ctx, community, bob)
	require.NoError(t, err)

	env.Clock.Advance(23 * time.Hour)
	res, err = games.Daily(ctx, community, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(200), res.Account.Coins)
}

func TestCoinflip(t *testing.T) {
	ctx := context.Background()
	_, games, ledger, config := newGames(t)
	_, err := ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: 100}, services.Meta{})
	require.NoError(t, err)

	_, err = games.Coinflip(ctx, community, alice, 10, "edge")
	assert.ErrorIs(t, err, services.ErrInvalidAmount)
	_, err = games.Coinflip(ctx, community, alice, 0, services.COINFLIP_HEADS)
	assert.ErrorIs(t, err, services.ErrInvalidAmount)
	_, err = games.Coinflip(ctx, community, alice, 101, services.COINFLIP_HEADS)
	assert.ErrorIs(t, err, services.ErrInsufficientFunds)

	require.NoError(t, config.SetConfig(ctx, services.CONFIG_COINFLIP_WIN_WEIGHT, "100"))
	res, err := games.Coinflip(ctx, community, alice, 40, "Heads")
	require.NoError(t, err)
	assert.True(t, res.Won)
	assert.Equal(t, int64(40), res.Net)
	assert.Equal(t, services.COINFLIP_HEADS, res.Result)
	assert.Equal(t, int64(140), res.Account.Coins)

	require.NoError(t, config.SetConfig(ctx, services.CONFIG_COINFLIP_WIN_WEIGHT, "0"))
	res, err = games.Coinflip(ctx, community, alice, 140, services.COINFLIP_TAILS)
	require.NoError(t, err)
	assert.False(t, res.Won)
	assert.Equal(t, services.COINFLIP_HEADS, res.Result)
	assert.Equal(t, int64(0), res.Account.Coins)

	records, err := ledger.ListTransactions(ctx, community, datastore.TransactionFilter{Source: "game:*"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(-140), records[0].CoinsDelta)
	assert.Equal(t, int64(40), records[1].CoinsDelta)
}

func TestSlotsSettlesNet(t *testing.T) {
	ctx := context.Background()
	_, games, ledger, _ := newGames(t)
	_, err := ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: 50}, services.Meta{})
	require.NoError(t, err)

	res, err := games.Slots(ctx, community, alice, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(50)+res.Net, res.Account.Coins)
	assert.GreaterOrEqual(t, res.Net, int64(-5))
}

func TestGamesBurstLimit(t *testing.T) {
	ctx := context.Background()
	env, games, ledger, config := newGames(t)
	_, err := ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: 1000}, services.Meta{})
	require.NoError(t, err)
	require.NoError(t, config.SetConfig(ctx, services.CONFIG_BURST_MAX_HITS, "3"))

	for i := 0; i < 3; i++ {
		_, err := games.Coinflip(ctx, community, alice, 1, services.COINFLIP_HEADS)
		require.NoError(t, err)
	}
	_, err = games.Coinflip(ctx, community, alice, 1, services.COINFLIP_HEADS)
	require.ErrorIs(t, err, services.ErrRateLimited)

	// other users keep playing
	_, err = ledger.AdjustBalance(ctx, community, bob, services.Delta{Coins: 10}, services.Meta{})
	require.NoError(t, err)
	_, err = games.Coinflip(ctx, community, bob, 1, services.COINFLIP_HEADS)
	require.NoError(t, err)

	env.Clock.Advance(services.DEFAULT_BURST_BLOCK)
	_, err = games.Coinflip(ctx, community, alice, 1, services.COINFLIP_HEADS)
	assert.NoError(t, err)
}

func TestConcurrentWagersNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	_, games, ledger, config := newGames(t)
	_, err := ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: 100}, services.Meta{})
	require.NoError(t, err)
	require.NoError(t, config.SetConfig(ctx, services.CONFIG_BURST_MAX_HITS, "100"))
	require.NoError(t, config.SetConfig(ctx, services.CONFIG_COINFLIP_WIN_WEIGHT, "0"))

	const bets = 8
	var wg sync.WaitGroup
	errs := make([]error, bets)
	for i := 0; i < bets; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = games.Coinflip(ctx, community, alice, 100, services.COINFLIP_HEADS)
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, services.ErrInsufficientFunds)
	}
	assert.Equal(t, 1, accepted)

	account, err := ledger.GetAccount(ctx, community, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), account.Coins)

	records, err := ledger.ListTransactions(ctx, community, datastore.TransactionFilter{Source: services.SOURCE_COINFLIP})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(-100), records[0].CoinsDelta)
}

func TestCoinflipReportsAppliedNet(t *testing.T) {
	ctx := context.Background()
	_, games, ledger, config := newGames(t)
	_, err := ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: models.MaxBalance - 10}, services.Meta{})
	require.NoError(t, err)
	require.NoError(t, config.SetConfig(ctx, services.CONFIG_COINFLIP_WIN_WEIGHT, "100"))

	res, err := games.Coinflip(ctx, community, alice, 40, services.COINFLIP_HEADS)
	require.NoError(t, err)
	assert.True(t, res.Won)
	assert.Equal(t, int64(10), res.Net, "the win is capped by the balance ceiling")
	assert.Equal(t, models.MaxBalance, res.Account.Coins)
}
