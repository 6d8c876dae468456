package models

import (
	"time"

	"github.com/uptrace/bun"
)

type GiveawayStatus string

const (
	GiveawayStatusActive    GiveawayStatus = "active"
	GiveawayStatusEnded     GiveawayStatus = "ended"
	GiveawayStatusCancelled GiveawayStatus = "cancelled"
)

type EntryMode string

const (
	EntryModeButton   EntryMode = "button"
	EntryModeReaction EntryMode = "reaction"
)

func (v EntryMode) Valid() bool {
	return v == EntryModeButton || v == EntryModeReaction
}

type Giveaway struct {
	bun.BaseModel     `bun:"table:giveaways"`
	MessageID         string         `bun:"message_id,pk" json:"message_id"`
	CommunityID       string         `bun:"community_id,notnull" json:"community_id"`
	ChannelID         string         `bun:"channel_id,notnull" json:"channel_id"`
	HostID            string         `bun:"host_id,notnull" json:"host_id"`
	Prize             string         `bun:"prize" json:"prize"`
	RewardTotal       int64          `bun:"reward_total,notnull" json:"reward_total"`
	WinnersCount      int            `bun:"winners_count,notnull" json:"winners_count"`
	EntryMode         EntryMode      `bun:"entry_mode,notnull" json:"entry_mode"`
	ForcedWinnerIDs   []string       `bun:"forced_winner_ids,type:jsonb" json:"forced_winner_ids"`
	RequiredRoleID    string         `bun:"required_role_id" json:"required_role_id,omitempty"`
	MinAccountAgeDays int            `bun:"min_account_age_days,notnull" json:"min_account_age_days"`
	MinMemberAgeDays  int            `bun:"min_member_age_days,notnull" json:"min_member_age_days"`
	EntriesCount      int64          `bun:"entries_count,notnull" json:"entries_count"`
	Status            GiveawayStatus `bun:"status,notnull" json:"status"`
	EndAt             int64          `bun:"end_at,notnull" json:"end_at"`
	EndedAt           *time.Time     `bun:"ended_at" json:"ended_at"`
	EndedBy           *string        `bun:"ended_by" json:"ended_by"`
	CreatedAt         time.Time      `bun:"created_at,notnull" json:"created_at"`
}

func (g *Giveaway) Expired(now time.Time) bool {
	return now.Unix() >= g.EndAt
}

type GiveawayEntry struct {
	bun.BaseModel `bun:"table:giveaway_entries"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	MessageID     string    `bun:"message_id,notnull" json:"message_id"`
	UserID        string    `bun:"user_id,notnull" json:"user_id"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

type GiveawayWinner struct {
	bun.BaseModel `bun:"table:giveaway_winners"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	MessageID     string    `bun:"message_id,notnull" json:"message_id"`
	UserID        string    `bun:"user_id,notnull" json:"user_id"`
	Round         int       `bun:"round,notnull" json:"round"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

type GiveawayPayout struct {
	bun.BaseModel `bun:"table:giveaway_payouts"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	MessageID     string    `bun:"message_id,notnull" json:"message_id"`
	UserID        string    `bun:"user_id,notnull" json:"user_id"`
	Amount        int64     `bun:"amount,notnull" json:"amount"`
	Round         int       `bun:"round,notnull" json:"round"`
	TransactionID *int64    `bun:"transaction_id" json:"transaction_id"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}
