package services_test

import (
	"context"
	"testing"

	"casino/internal/models"
	"casino/internal/services"
	"casino/internal/testutil"

	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeration(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	moderation, err := do.Invoke[*services.ServiceModeration](env.Container)
	require.NoError(t, err)

	state, err := moderation.GetState(ctx, community, alice)
	require.NoError(t, err)
	assert.Zero(t, state.Warns)
	assert.False(t, state.Blacklisted)

	_, err = moderation.Unwarn(ctx, community, alice, "mod", "")
	assert.ErrorIs(t, err, services.ErrNoEffect)

	for i := 0; i < 2; i++ {
		_, err = moderation.Warn(ctx, community, alice, "mod", "spam")
		require.NoError(t, err)
	}
	state, err = moderation.Unwarn(ctx, community, alice, "mod", "appeal")
	require.NoError(t, err)
	assert.Equal(t, 1, int(state.Warns))

	blacklisted, err := moderation.IsBlacklisted(ctx, community, alice)
	require.NoError(t, err)
	assert.False(t, blacklisted)

	_, err = moderation.Blacklist(ctx, community, alice, "mod", "bot")
	require.NoError(t, err)
	_, err = moderation.Blacklist(ctx, community, alice, "mod", "bot")
	assert.ErrorIs(t, err, services.ErrNoEffect)

	blacklisted, err = moderation.IsBlacklisted(ctx, community, alice)
	require.NoError(t, err)
	assert.True(t, blacklisted)

	_, err = moderation.Unblacklist(ctx, community, alice, "mod", "")
	require.NoError(t, err)
	blacklisted, err = moderation.IsBlacklisted(ctx, community, alice)
	require.NoError(t, err)
	assert.False(t, blacklisted)

	events, err := moderation.ListSanctions(ctx, community, alice)
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, models.SanctionKindUnblacklist, events[0].Kind)

	// other communities are independent
	state, err = moderation.GetState(ctx, "guild-2", alice)
	require.NoError(t, err)
	assert.Zero(t, state.Warns)
}
