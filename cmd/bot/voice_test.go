package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVoiceTracker(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := newVoiceTracker(func() time.Time { return now })

	assert.Zero(t, tracker.leave("g", "u"), "leave without join")

	tracker.join("g", "u")
	now = now.Add(90 * time.Second)
	// a channel switch must not restart the session
	tracker.join("g", "u")
	now = now.Add(2 * time.Minute)

	assert.Equal(t, int64(3), tracker.leave("g", "u"))
	assert.Zero(t, tracker.leave("g", "u"), "session already closed")

	tracker.join("g", "a")
	tracker.join("h", "a")
	now = now.Add(59 * time.Second)
	assert.Zero(t, tracker.leave("g", "a"), "partial minute")
	now = now.Add(time.Second)
	assert.Equal(t, int64(1), tracker.leave("h", "a"))
}

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"30s": 30 * time.Second,
		"15m": 15 * time.Minute,
		"2h":  2 * time.Hour,
		"3d":  72 * time.Hour,
		" 1D": 24 * time.Hour,
	}
	for in, want := range cases {
		got, err := parseDuration(in)
		if assert.NoError(t, err, in) {
			assert.Equal(t, want, got, in)
		}
	}

	for _, in := range []string{"", "0m", "2w", "1h30m", "-5m", "m"} {
		_, err := parseDuration(in)
		assert.Error(t, err, in)
	}
}

func TestParseUserIDs(t *testing.T) {
	ids := parseUserIDs("<@123456789012345678>, 234567890123456789 <@!345678901234567890> nope 42")
	assert.Equal(t, []string{"123456789012345678", "234567890123456789", "345678901234567890"}, ids)
	assert.Empty(t, parseUserIDs(""))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "Something went wrong.", errorMessage(assert.AnError))
}
