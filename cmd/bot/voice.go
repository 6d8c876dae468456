package main

import (
	"context"
	"sync"
	"time"

	"casino/internal/pkg/logger"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// voiceTracker remembers when members entered a voice channel.
type voiceTracker struct {
	mu     sync.Mutex
	joined map[string]time.Time
	now    func() time.Time
}

func newVoiceTracker(now func() time.Time) *voiceTracker {
	return &voiceTracker{joined: make(map[string]time.Time), now: now}
}

func voiceKey(guildID, userID string) string {
	return guildID + ":" + userID
}

// join starts a session unless one is already running.
func (t *voiceTracker) join(guildID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := voiceKey(guildID, userID)
	if _, ok := t.joined[key]; !ok {
		t.joined[key] = t.now()
	}
}

// leave ends a session and returns the whole minutes spent.
func (t *voiceTracker) leave(guildID, userID string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := voiceKey(guildID, userID)
	at, ok := t.joined[key]
	if !ok {
		return 0
	}
	delete(t.joined, key)
	return int64(t.now().Sub(at) / time.Minute)
}

func (b *botApp) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.GuildID == "" || (v.Member != nil && v.Member.User != nil && v.Member.User.Bot) {
		return
	}

	wasIn := v.BeforeUpdate != nil && v.BeforeUpdate.ChannelID != ""
	isIn := v.ChannelID != ""
	switch {
	case isIn:
		// moving between channels keeps the session
		b.voice.join(v.GuildID, v.UserID)
		return
	case !wasIn:
		return
	}

	minutes := b.voice.leave(v.GuildID, v.UserID)
	if minutes <= 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), reactionTimeout)
	defer cancel()

	if _, err := b.draw.AddVoiceMinutes(ctx, v.GuildID, v.UserID, minutes); err != nil {
		logger.WithFields(logrus.Fields{"community_id": v.GuildID, "user_id": v.UserID, "minutes": minutes}).WithError(err).Error("record voice minutes failed")
	}
}
