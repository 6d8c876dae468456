package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"casino/internal/datastore"
	"casino/internal/interfaces"
	"casino/internal/models"
	"casino/internal/services"
	"casino/internal/testutil"

	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type giveawayFixture struct {
	env      *testutil.Env
	giveaway *services.ServiceGiveaway
	ledger   *services.ServiceLedger
}

func newGiveawayFixture(t *testing.T) *giveawayFixture {
	env := testutil.NewEnv(t)
	giveaway, err := do.Invoke[*services.ServiceGiveaway](env.Container)
	require.NoError(t, err)
	ledger, err := do.Invoke[*services.ServiceLedger](env.Container)
	require.NoError(t, err)
	return &giveawayFixture{env, giveaway, ledger}
}

func (f *giveawayFixture) create(t *testing.T, id string, winners int, total int64, forced ...string) *models.Giveaway {
	g, err := f.giveaway.Create(context.Background(), services.GiveawayInput{
		MessageID:       id,
		CommunityID:     community,
		ChannelID:       "channel-1",
		HostID:          "host",
		Prize:           "coins",
		RewardTotal:     total,
		WinnersCount:    winners,
		EntryMode:       models.EntryModeButton,
		ForcedWinnerIDs: forced,
		EndAt:           f.env.Clock.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	return g
}

func (f *giveawayFixture) join(t *testing.T, id string, users ...string) {
	for _, user := range users {
		joined, err := f.giveaway.Join(context.Background(), id, user, nil)
		require.NoError(t, err)
		require.True(t, joined)
	}
}

func (f *giveawayFixture) coins(t *testing.T, user string) int64 {
	account, err := f.ledger.GetAccount(context.Background(), community, user)
	require.NoError(t, err)
	return account.Coins
}

func TestCreateGiveawayValidation(t *testing.T) {
	ctx := context.Background()
	f := newGiveawayFixture(t)
	valid := services.GiveawayInput{
		MessageID:    "m1",
		CommunityID:  community,
		RewardTotal:  100,
		WinnersCount: 3,
		EntryMode:    models.EntryModeReaction,
		EndAt:        f.env.Clock.Now().Add(time.Minute),
	}

	cases := map[string]func(in *services.GiveawayInput){
		"no winners":      func(in *services.GiveawayInput) { in.WinnersCount = 0 },
		"too many":        func(in *services.GiveawayInput) { in.WinnersCount = services.MAX_GIVEAWAY_WINNERS + 1 },
		"reward too low":  func(in *services.GiveawayInput) { in.RewardTotal = 2 },
		"bad entry mode":  func(in *services.GiveawayInput) { in.EntryMode = "dm" },
		"end in the past": func(in *services.GiveawayInput) { in.EndAt = f.env.Clock.Now().Add(-time.Second) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			_, err := f.giveaway.Create(ctx, in)
			assert.ErrorIs(t, err, services.ErrInvalidAmount)
		})
	}

	g, err := f.giveaway.Create(ctx, valid)
	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStatusActive, g.Status)
	assert.Equal(t, f.env.Clock.Now().Add(time.Minute).Unix(), g.EndAt)
}

func TestJoinLeaveToggle(t *testing.T) {
	ctx := context.Background()
	f := newGiveawayFixture(t)
	f.create(t, "m1", 1, 10)

	f.join(t, "m1", alice, bob)
	joined, err := f.giveaway.Join(ctx, "m1", alice, nil)
	require.NoError(t, err)
	assert.False(t, joined)

	left, err := f.giveaway.Leave(ctx, "m1", bob)
	require.NoError(t, err)
	assert.True(t, left)
	left, err = f.giveaway.Leave(ctx, "m1", bob)
	require.NoError(t, err)
	assert.False(t, left)

	entered, err := f.giveaway.Toggle(ctx, "m1", alice, nil)
	require.NoError(t, err)
	assert.False(t, entered)
	entered, err = f.giveaway.Toggle(ctx, "m1", "carol", nil)
	require.NoError(t, err)
	assert.True(t, entered)

	stored, err := datastore.GetGiveaway(ctx, f.env.DB, "m1")
	require.NoError(t, err)
	count, err := datastore.CountGiveawayEntries(ctx, f.env.DB, "m1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.EntriesCount)
	assert.Equal(t, 1, count)

	_, err = f.giveaway.Join(ctx, "missing", alice, nil)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestJoinChecks(t *testing.T) {
	ctx := context.Background()
	f := newGiveawayFixture(t)
	f.create(t, "m1", 1, 10)

	refuse := func(context.Context, *models.Giveaway, string) (bool, error) { return false, nil }
	_, err := f.giveaway.Join(ctx, "m1", alice, refuse)
	assert.ErrorIs(t, err, services.ErrNotEligible)

	f.env.Clock.Advance(2 * time.Hour)
	_, err = f.giveaway.Join(ctx, "m1", alice, nil)
	assert.ErrorIs(t, err, services.ErrGiveawayExpired)

	_, err = f.giveaway.Cancel(ctx, "m1", "host")
	require.NoError(t, err)
	_, err = f.giveaway.Join(ctx, "m1", alice, nil)
	assert.ErrorIs(t, err, services.ErrGiveawayNotActive)

	_, err = f.giveaway.Cancel(ctx, "m1", "host")
	assert.ErrorIs(t, err, services.ErrGiveawayNotActive)
}

func TestEndPaysWinners(t *testing.T) {
	ctx := context.Background()
	f := newGiveawayFixture(t)
	f.create(t, "m1", 3, 100)
	f.join(t, "m1", "u1", "u2", "u3", "u4", "u5")

	g, round, err := f.giveaway.End(ctx, "m1", "host")
	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStatusEnded, g.Status)
	assert.Equal(t, 0, round.Number)
	require.Len(t, round.Winners, 3)
	require.Len(t, round.Payouts, 3)

	amounts := []int64{}
	var paid int64
	for i, payout := range round.Payouts {
		amounts = append(amounts, payout.Amount)
		assert.Equal(t, round.Winners[i], payout.UserID)
		require.NotNil(t, payout.TransactionID)
		paid += f.coins(t, payout.UserID)
	}
	assert.Equal(t, []int64{34, 33, 33}, amounts)
	assert.Equal(t, int64(100), paid)

	records, err := f.ledger.ListTransactions(ctx, community, datastore.TransactionFilter{TraceID: services.GiveawayTraceID("m1", 0)})
	require.NoError(t, err)
	assert.Len(t, records, 3)

	calls := f.env.Announcer.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "m1", calls[0].GiveawayID)

	_, _, err = f.giveaway.End(ctx, "m1", "host")
	assert.ErrorIs(t, err, services.ErrGiveawayNotActive)
}

func TestEndForcedWinnersFirst(t *testing.T) {
	ctx := context.Background()
	f := newGiveawayFixture(t)
	f.create(t, "m1", 2, 10, "vip", "vip")
	f.join(t, "m1", "u1", "u2", "u3")

	_, round, err := f.giveaway.End(ctx, "m1", "")
	require.NoError(t, err)
	require.Len(t, round.Winners, 2)
	assert.Equal(t, "vip", round.Winners[0])
	assert.NotEqual(t, "vip", round.Winners[1])
	assert.Equal(t, int64(5), f.coins(t, "vip"))
}

func TestEndWithoutEntrants(t *testing.T) {
	ctx := context.Background()
	f := newGiveawayFixture(t)
	f.create(t, "m1", 2, 10)

	g, round, err := f.giveaway.End(ctx, "m1", "host")
	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStatusEnded, g.Status)
	assert.Empty(t, round.Winners)
	assert.Empty(t, round.Payouts)

	_, _, err = f.giveaway.Reroll(ctx, "m1", 1, "host")
	assert.ErrorIs(t, err, services.ErrDrawFailed)
}

func TestRerollExcludesPreviousWinners(t *testing.T) {
	ctx := context.Background()
	f := newGiveawayFixture(t)
	f.create(t, "m1", 1, 50)
	f.join(t, "m1", "u1", "u2", "u3")

	_, first, err := f.giveaway.End(ctx, "m1", "host")
	require.NoError(t, err)
	require.Len(t, first.Winners, 1)

	won := map[string]bool{first.Winners[0]: true}
	for i := 1; i <= 2; i++ {
		_, round, err := f.giveaway.Reroll(ctx, "m1", 0, "host")
		require.NoError(t, err)
		assert.Equal(t, i, round.Number)
		require.Len(t, round.Winners, 1)
		assert.False(t, won[round.Winners[0]])
		won[round.Winners[0]] = true
		assert.Equal(t, int64(50), f.coins(t, round.Winners[0]))
	}

	// the first winner was not paid again
	assert.Equal(t, int64(50), f.coins(t, first.Winners[0]))

	_, _, err = f.giveaway.Reroll(ctx, "m1", 1, "host")
	assert.ErrorIs(t, err, services.ErrDrawFailed)

	payouts, err := f.giveaway.GetPayouts(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, payouts, 3)
}

func TestRerollRequiresEnded(t *testing.T) {
	ctx := context.Background()
	f := newGiveawayFixture(t)
	f.create(t, "m1", 1, 10)

	_, _, err := f.giveaway.Reroll(ctx, "m1", 1, "host")
	assert.ErrorIs(t, err, services.ErrGiveawayNotActive)
}

func TestPersistWinnerRoundPaysOnce(t *testing.T) {
	ctx := context.Background()
	f := newGiveawayFixture(t)
	g := f.create(t, "m1", 2, 20)

	for i := 0; i < 2; i++ {
		err := f.env.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			round, err := f.giveaway.PersistWinnerRound(ctx, tx, g, []string{"u1", "u2"}, "host")
			if err != nil {
				return err
			}
			assert.Equal(t, i, round.Number)
			return nil
		})
		require.NoError(t, err)
	}

	// a replay of round 0 finds its payout rows and skips the credit
	err := f.env.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		round, err := f.giveaway.PersistRound(ctx, tx, g, 0, []string{"u1", "u2"}, "host")
		if err != nil {
			return err
		}
		assert.Empty(t, round.Payouts)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, int64(20), f.coins(t, "u1"))
	assert.Equal(t, int64(20), f.coins(t, "u2"))
}

func TestEndIsLocked(t *testing.T) {
	ctx := context.Background()
	f := newGiveawayFixture(t)
	f.create(t, "m1", 1, 10)

	lock, err := do.Invoke[interfaces.Locker](f.env.Container)
	require.NoError(t, err)
	release, err := lock.TryLock(ctx, services.LockKeyGiveaway("m1"))
	require.NoError(t, err)

	_, _, err = f.giveaway.End(ctx, "m1", "host")
	assert.ErrorIs(t, err, services.ErrLocked)

	release()
	_, _, err = f.giveaway.End(ctx, "m1", "host")
	assert.NoError(t, err)
}

func TestRoundsAnnouncedUnderLock(t *testing.T) {
	ctx := context.Background()
	f := newGiveawayFixture(t)
	f.create(t, "m1", 1, 10)
	f.join(t, "m1", alice, bob)

	var rerollErr error
	f.env.Announcer.During(func(call testutil.Announcement) {
		if call.Round == 0 {
			_, _, rerollErr = f.giveaway.Reroll(ctx, "m1", 1, "host")
		}
	})

	_, round, err := f.giveaway.End(ctx, "m1", "host")
	require.NoError(t, err)
	assert.Equal(t, 0, round.Number)
	assert.ErrorIs(t, rerollErr, services.ErrLocked, "a reroll cannot overtake the round 0 announcement")

	_, round, err = f.giveaway.Reroll(ctx, "m1", 1, "host")
	require.NoError(t, err)
	assert.Equal(t, 1, round.Number)

	calls := f.env.Announcer.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, 0, calls[0].Round)
	assert.Equal(t, 1, calls[1].Round)
}

func TestEndDue(t *testing.T) {
	ctx := context.Background()
	f := newGiveawayFixture(t)
	for i := 0; i < 3; i++ {
		f.create(t, fmt.Sprintf("m%d", i), 1, 10)
	}
	f.join(t, "m0", alice)

	ended, err := f.giveaway.EndDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, ended)

	f.env.Clock.Advance(time.Hour)
	due, err := f.giveaway.ListDue(ctx, f.env.Clock.Now())
	require.NoError(t, err)
	assert.Len(t, due, 3)

	ended, err = f.giveaway.EndDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, ended)
	assert.Equal(t, int64(10), f.coins(t, alice))

	due, err = f.giveaway.ListDue(ctx, f.env.Clock.Now())
	require.NoError(t, err)
	assert.Empty(t, due)
}
