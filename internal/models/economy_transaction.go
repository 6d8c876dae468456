package models

import (
	"time"

	"github.com/uptrace/bun"
)

type EconomyTransaction struct {
	bun.BaseModel  `bun:"table:economy_transactions"`
	ID             int64                  `bun:"id,pk,autoincrement" json:"id"`
	CommunityID    string                 `bun:"community_id,notnull" json:"community_id"`
	UserID         string                 `bun:"user_id,notnull" json:"user_id"`
	ActorID        string                 `bun:"actor_id,notnull" json:"actor_id"`
	Source         string                 `bun:"source,notnull" json:"source"`
	Reason         string                 `bun:"reason" json:"reason"`
	CommandID      string                 `bun:"command_id" json:"command_id,omitempty"`
	ChannelID      string                 `bun:"channel_id" json:"channel_id,omitempty"`
	MessageID      string                 `bun:"message_id" json:"message_id,omitempty"`
	CoinsBefore    int64                  `bun:"coins_before,notnull" json:"coins_before"`
	CoinsDelta     int64                  `bun:"coins_delta,notnull" json:"coins_delta"`
	CoinsAfter     int64                  `bun:"coins_after,notnull" json:"coins_after"`
	XPBefore       int64                  `bun:"xp_before,notnull" json:"xp_before"`
	XPDelta        int64                  `bun:"xp_delta,notnull" json:"xp_delta"`
	XPAfter        int64                  `bun:"xp_after,notnull" json:"xp_after"`
	TraceID        string                 `bun:"trace_id,notnull" json:"trace_id"`
	Metadata       map[string]interface{} `bun:"metadata,type:jsonb" json:"metadata"`
	CreatedAt      time.Time              `bun:"created_at,notnull" json:"created_at"`
	RevertedAt     *time.Time             `bun:"reverted_at" json:"reverted_at"`
	RevertedBy     *string                `bun:"reverted_by" json:"reverted_by"`
	RevertedReason *string                `bun:"reverted_reason" json:"reverted_reason"`
	RevertedTxID   *int64                 `bun:"reverted_tx_id" json:"reverted_tx_id"`
}

func (tx *EconomyTransaction) Reverted() bool {
	return tx.RevertedAt != nil
}
