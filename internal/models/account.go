package models

import (
	"time"

	"github.com/uptrace/bun"
)

// MaxBalance is the largest integer a chat client can display without precision loss.
const MaxBalance int64 = 1<<53 - 1

type Account struct {
	bun.BaseModel `bun:"table:accounts"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	CommunityID   string    `bun:"community_id,notnull" json:"community_id"`
	UserID        string    `bun:"user_id,notnull" json:"user_id"`
	Coins         int64     `bun:"coins,notnull" json:"coins"`
	XP            int64     `bun:"xp,notnull" json:"xp"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

type CasinoProfile struct {
	bun.BaseModel `bun:"table:casino_profiles"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	CommunityID   string    `bun:"community_id,notnull" json:"community_id"`
	UserID        string    `bun:"user_id,notnull" json:"user_id"`
	DrawCredits   int64     `bun:"draw_credits,notnull" json:"draw_credits"`
	DrawsDone     int64     `bun:"draws_done,notnull" json:"draws_done"`
	VoiceMinutes  int64     `bun:"voice_minutes,notnull" json:"voice_minutes"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

type LeaderboardItem struct {
	UserID string  `json:"user_id"`
	Score  float64 `json:"score"`
	Rank   int     `json:"rank,omitempty"`
}
