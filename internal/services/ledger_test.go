package services_test

import (
	"context"
	"sync"
	"testing"

	"casino/internal/datastore"
	"casino/internal/models"
	"casino/internal/services"
	"casino/internal/testutil"

	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	community = "guild-1"
	alice     = "alice"
	bob       = "bob"
)

func newLedger(t *testing.T) (*testutil.Env, *services.ServiceLedger) {
	env := testutil.NewEnv(t)
	ledger, err := do.Invoke[*services.ServiceLedger](env.Container)
	require.NoError(t, err)
	return env, ledger
}

func TestAdjustBalanceClampsAtZero(t *testing.T) {
	ctx := context.Background()
	_, ledger := newLedger(t)

	_, err := ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: 100}, services.Meta{Source: services.SOURCE_ADMIN})
	require.NoError(t, err)

	res, err := ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: -250}, services.Meta{Source: services.SOURCE_ADMIN})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Account.Coins)
	require.NotNil(t, res.Transaction)
	assert.Equal(t, int64(100), res.Transaction.CoinsBefore)
	assert.Equal(t, int64(-100), res.Transaction.CoinsDelta)
	assert.Equal(t, int64(0), res.Transaction.CoinsAfter)
}

func TestAdjustBalanceClampsAtMax(t *testing.T) {
	ctx := context.Background()
	_, ledger := newLedger(t)

	_, err := ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: models.MaxBalance - 5}, services.Meta{})
	require.NoError(t, err)

	res, err := ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: models.MaxBalance}, services.Meta{})
	require.NoError(t, err)
	assert.Equal(t, models.MaxBalance, res.Account.Coins)
	assert.Equal(t, int64(5), res.Transaction.CoinsDelta)
}

func TestAdjustBalanceWithoutEffect(t *testing.T) {
	ctx := context.Background()
	_, ledger := newLedger(t)

	res, err := ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: -10}, services.Meta{})
	require.NoError(t, err)
	assert.Nil(t, res.Transaction)
	assert.Equal(t, int64(0), res.Account.Coins)

	res, err = ledger.AdjustBalance(ctx, community, alice, services.Delta{}, services.Meta{ForceLog: true, Reason: "audit only"})
	require.NoError(t, err)
	require.NotNil(t, res.Transaction)
	assert.Equal(t, services.SOURCE_UNKNOWN, res.Transaction.Source)
	assert.Equal(t, services.SYSTEM_ACTOR, res.Transaction.ActorID)
	assert.NotEmpty(t, res.Transaction.TraceID)
}

func TestLedgerReplayMatchesBalance(t *testing.T) {
	ctx := context.Background()
	env, ledger := newLedger(t)

	deltas := []services.Delta{{Coins: 500, XP: 10}, {Coins: -200}, {Coins: -900, XP: 5}, {Coins: 40, XP: -100}, {XP: 3}}
	for _, delta := range deltas {
		_, err := ledger.AdjustBalance(ctx, community, alice, delta, services.Meta{Source: services.SOURCE_ADMIN})
		require.NoError(t, err)
	}

	account, err := ledger.GetAccount(ctx, community, alice)
	require.NoError(t, err)
	coins, xp, err := datastore.SumAccountDeltas(ctx, env.DB, community, alice)
	require.NoError(t, err)
	assert.Equal(t, account.Coins, coins)
	assert.Equal(t, account.XP, xp)
	assert.Equal(t, int64(40), account.Coins)
	assert.Equal(t, int64(3), account.XP)
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	_, ledger := newLedger(t)

	_, err := ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: 300}, services.Meta{})
	require.NoError(t, err)

	res, err := ledger.Transfer(ctx, community, alice, bob, 120, services.Meta{})
	require.NoError(t, err)
	assert.Equal(t, int64(180), res.From.Coins)
	assert.Equal(t, int64(120), res.To.Coins)
	assert.Equal(t, res.TraceID, res.Debit.TraceID)
	assert.Equal(t, res.TraceID, res.Credit.TraceID)
	assert.Equal(t, services.SOURCE_TRANSFER, res.Debit.Source)
	assert.Equal(t, alice, res.Credit.ActorID)
	assert.Equal(t, bob, res.Debit.Metadata["counterparty_id"])
}

func TestTransferRejections(t *testing.T) {
	ctx := context.Background()
	_, ledger := newLedger(t)

	_, err := ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: 50}, services.Meta{})
	require.NoError(t, err)

	_, err = ledger.Transfer(ctx, community, alice, bob, 0, services.Meta{})
	assert.ErrorIs(t, err, services.ErrInvalidAmount)

	_, err = ledger.Transfer(ctx, community, alice, alice, 10, services.Meta{})
	assert.ErrorIs(t, err, services.ErrInvalidAmount)

	_, err = ledger.Transfer(ctx, community, alice, bob, 51, services.Meta{})
	assert.ErrorIs(t, err, services.ErrInsufficientFunds)

	from, err := ledger.GetAccount(ctx, community, alice)
	require.NoError(t, err)
	to, err := ledger.GetAccount(ctx, community, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(50), from.Coins)
	assert.Equal(t, int64(0), to.Coins)

	records, err := ledger.ListTransactions(ctx, community, datastore.TransactionFilter{Source: services.SOURCE_TRANSFER})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestTransferToFullAccountRollsBack(t *testing.T) {
	ctx := context.Background()
	_, ledger := newLedger(t)

	_, err := ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: 100}, services.Meta{})
	require.NoError(t, err)
	_, err = ledger.AdjustBalance(ctx, community, bob, services.Delta{Coins: models.MaxBalance - 10}, services.Meta{})
	require.NoError(t, err)

	_, err = ledger.Transfer(ctx, community, alice, bob, 50, services.Meta{})
	assert.ErrorIs(t, err, services.ErrInvalidAmount)

	from, err := ledger.GetAccount(ctx, community, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(100), from.Coins)
}

func TestReverseTransaction(t *testing.T) {
	ctx := context.Background()
	_, ledger := newLedger(t)

	res, err := ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: 75, XP: 5}, services.Meta{Source: services.SOURCE_ADMIN})
	require.NoError(t, err)

	reversed, err := ledger.ReverseTransaction(ctx, community, res.Transaction.ID, services.Meta{ActorID: "mod", Reason: "mistake"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), reversed.Account.Coins)
	assert.Equal(t, int64(0), reversed.Account.XP)
	assert.Equal(t, int64(-75), reversed.Reversal.CoinsDelta)
	assert.Equal(t, services.SOURCE_REVERSAL, reversed.Reversal.Source)
	assert.NotEqual(t, res.Transaction.TraceID, reversed.Reversal.TraceID)

	original, err := ledger.GetTransaction(ctx, community, res.Transaction.ID)
	require.NoError(t, err)
	require.True(t, original.Reverted())
	assert.Equal(t, "mod", *original.RevertedBy)
	assert.Equal(t, reversed.Reversal.ID, *original.RevertedTxID)

	_, err = ledger.ReverseTransaction(ctx, community, res.Transaction.ID, services.Meta{})
	assert.ErrorIs(t, err, services.ErrAlreadyReverted)

	_, err = ledger.ReverseTransaction(ctx, community, 9999, services.Meta{})
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = ledger.ReverseTransaction(ctx, "guild-2", res.Transaction.ID, services.Meta{})
	assert.ErrorIs(t, err, services.ErrNotFound)

	noop, err := ledger.AdjustBalance(ctx, community, alice, services.Delta{}, services.Meta{ForceLog: true})
	require.NoError(t, err)
	_, err = ledger.ReverseTransaction(ctx, community, noop.Transaction.ID, services.Meta{})
	assert.ErrorIs(t, err, services.ErrNoEffect)
}

func TestConcurrentReversalAppliesOnce(t *testing.T) {
	ctx := context.Background()
	_, ledger := newLedger(t)

	res, err := ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: 1000}, services.Meta{})
	require.NoError(t, err)
	_, err = ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: 1000}, services.Meta{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.ReverseTransaction(ctx, community, res.Transaction.ID, services.Meta{})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	account, err := ledger.GetAccount(ctx, community, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), account.Coins)
}

func TestReverseTrace(t *testing.T) {
	ctx := context.Background()
	_, ledger := newLedger(t)

	_, err := ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: 200}, services.Meta{})
	require.NoError(t, err)
	transfer, err := ledger.Transfer(ctx, community, alice, bob, 80, services.Meta{})
	require.NoError(t, err)

	results, err := ledger.ReverseTrace(ctx, community, transfer.TraceID, services.Meta{ActorID: "mod"})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	from, err := ledger.GetAccount(ctx, community, alice)
	require.NoError(t, err)
	to, err := ledger.GetAccount(ctx, community, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(200), from.Coins)
	assert.Equal(t, int64(0), to.Coins)

	_, err = ledger.ReverseTrace(ctx, community, transfer.TraceID, services.Meta{})
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestConcurrentAdjustments(t *testing.T) {
	ctx := context.Background()
	_, ledger := newLedger(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: 10}, services.Meta{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	account, err := ledger.GetAccount(ctx, community, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(200), account.Coins)
}

func TestListTransactionsFilters(t *testing.T) {
	ctx := context.Background()
	_, ledger := newLedger(t)

	steps := []struct {
		user   string
		source string
		coins  int64
	}{
		{alice, services.SOURCE_COINFLIP, 10},
		{alice, services.SOURCE_SLOTS, 500},
		{bob, services.SOURCE_COINFLIP, 20},
		{alice, services.SOURCE_DAILY, 250},
	}
	var ids []int64
	for _, step := range steps {
		res, err := ledger.AdjustBalance(ctx, community, step.user, services.Delta{Coins: step.coins}, services.Meta{Source: step.source})
		require.NoError(t, err)
		ids = append(ids, res.Transaction.ID)
	}
	_, err := ledger.ReverseTransaction(ctx, community, ids[0], services.Meta{})
	require.NoError(t, err)

	records, err := ledger.ListTransactions(ctx, community, datastore.TransactionFilter{Source: "game:*"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Greater(t, records[0].ID, records[1].ID)

	records, err = ledger.ListTransactions(ctx, community, datastore.TransactionFilter{Source: "game:*", UserID: alice, Reverted: datastore.RevertedExclude})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, services.SOURCE_SLOTS, records[0].Source)

	records, err = ledger.ListTransactions(ctx, community, datastore.TransactionFilter{Reverted: datastore.RevertedOnly})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ids[0], records[0].ID)

	records, err = ledger.ListTransactions(ctx, community, datastore.TransactionFilter{MinAbs: 250})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = ledger.ListTransactions(ctx, community, datastore.TransactionFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = ledger.ListTransactions(ctx, "guild-2", datastore.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAdjustBalanceRequireCoins(t *testing.T) {
	ctx := context.Background()
	_, ledger := newLedger(t)

	_, err := ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: 50}, services.Meta{})
	require.NoError(t, err)

	_, err = ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: -60}, services.Meta{RequireCoins: 60, ForceLog: true})
	require.ErrorIs(t, err, services.ErrInsufficientFunds)

	account, err := ledger.GetAccount(ctx, community, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(50), account.Coins)
	records, err := ledger.ListTransactions(ctx, community, datastore.TransactionFilter{UserID: alice})
	require.NoError(t, err)
	assert.Len(t, records, 1, "a refused adjust writes no row")

	res, err := ledger.AdjustBalance(ctx, community, alice, services.Delta{Coins: -50}, services.Meta{RequireCoins: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Account.Coins)
}
