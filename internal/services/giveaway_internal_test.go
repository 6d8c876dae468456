package services

import (
	"math/rand"
	"strconv"
	"testing"
	"time"

	"casino/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sliceStream(ids []string) func(fn func(string) error) error {
	return func(fn func(string) error) error {
		for _, id := range ids {
			if err := fn(id); err != nil {
				return err
			}
		}
		return nil
	}
}

func TestSplitPayout(t *testing.T) {
	assert.Equal(t, []int64{34, 33, 33}, SplitPayout(100, 3))
	assert.Equal(t, []int64{50, 50}, SplitPayout(100, 2))
	assert.Equal(t, []int64{1, 1, 0}, SplitPayout(2, 3))
	assert.Nil(t, SplitPayout(100, 0))

	var sum int64
	for _, share := range SplitPayout(1001, 7) {
		sum += share
	}
	assert.Equal(t, int64(1001), sum)
}

func TestReservoirSampleIsUniform(t *testing.T) {
	ids := make([]string, 1000)
	for i := range ids {
		ids[i] = "u" + strconv.Itoa(i)
	}
	rng := rand.New(rand.NewSource(7))
	randIntn := func(n int) (int, error) { return rng.Intn(n), nil }
	never := func(string) bool { return false }

	const trials = 20000
	const k = 3
	counts := map[string]int{}
	for i := 0; i < trials; i++ {
		sample, err := reservoirSample(k, sliceStream(ids), never, randIntn)
		require.NoError(t, err)
		require.Len(t, sample, k)
		seen := map[string]bool{}
		for _, id := range sample {
			require.False(t, seen[id])
			seen[id] = true
			counts[id]++
		}
	}

	// each entrant is expected trials*k/n = 60 times
	expected := float64(trials*k) / float64(len(ids))
	var chi2 float64
	for _, id := range ids {
		d := float64(counts[id]) - expected
		chi2 += d * d / expected
	}
	// 999 degrees of freedom, p=0.001 critical value is about 1143
	assert.Less(t, chi2, 1143.0)

	// first and second halves of the stream are picked equally often
	firstHalf := 0
	for i := 0; i < len(ids)/2; i++ {
		firstHalf += counts[ids[i]]
	}
	assert.InDelta(t, 0.5, float64(firstHalf)/float64(trials*k), 0.02)
}

func TestReservoirSampleSkipsAndShortStreams(t *testing.T) {
	randIntn := func(n int) (int, error) { return 0, nil }
	skip := func(id string) bool { return id == "u1" }

	sample, err := reservoirSample(5, sliceStream([]string{"u1", "u2", "u3"}), skip, randIntn)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u2", "u3"}, sample)

	sample, err = reservoirSample(0, sliceStream([]string{"u2"}), skip, randIntn)
	require.NoError(t, err)
	assert.Empty(t, sample)
}

func TestCheckMemberEligibility(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	giveaway := &models.Giveaway{RequiredRoleID: "vip", MinAccountAgeDays: 30, MinMemberAgeDays: 7}

	ok := MemberInfo{
		Roles:            []string{"member", "vip"},
		AccountCreatedAt: now.AddDate(0, -2, 0),
		JoinedAt:         now.AddDate(0, 0, -10),
	}
	assert.True(t, CheckMemberEligibility(giveaway, ok, now))

	missingRole := ok
	missingRole.Roles = []string{"member"}
	assert.False(t, CheckMemberEligibility(giveaway, missingRole, now))

	youngAccount := ok
	youngAccount.AccountCreatedAt = now.AddDate(0, 0, -3)
	assert.False(t, CheckMemberEligibility(giveaway, youngAccount, now))

	newMember := ok
	newMember.JoinedAt = now.AddDate(0, 0, -1)
	assert.False(t, CheckMemberEligibility(giveaway, newMember, now))

	assert.True(t, CheckMemberEligibility(&models.Giveaway{}, MemberInfo{}, now))
}
