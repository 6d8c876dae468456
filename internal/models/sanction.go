package models

import (
	"time"

	"github.com/uptrace/bun"
)

type SanctionKind string

const (
	SanctionKindWarn        SanctionKind = "warn"
	SanctionKindUnwarn      SanctionKind = "unwarn"
	SanctionKindBlacklist   SanctionKind = "blacklist"
	SanctionKindUnblacklist SanctionKind = "unblacklist"
)

// SanctionEvent is append-only; SanctionState is the materialised view of the events.
type SanctionEvent struct {
	bun.BaseModel `bun:"table:sanction_events"`
	ID            int64        `bun:"id,pk,autoincrement" json:"id"`
	CommunityID   string       `bun:"community_id,notnull" json:"community_id"`
	UserID        string       `bun:"user_id,notnull" json:"user_id"`
	ActorID       string       `bun:"actor_id,notnull" json:"actor_id"`
	Kind          SanctionKind `bun:"kind,notnull" json:"kind"`
	Reason        string       `bun:"reason" json:"reason"`
	CreatedAt     time.Time    `bun:"created_at,notnull" json:"created_at"`
}

type SanctionState struct {
	bun.BaseModel `bun:"table:sanction_states"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	CommunityID   string    `bun:"community_id,notnull" json:"community_id"`
	UserID        string    `bun:"user_id,notnull" json:"user_id"`
	Warns         int       `bun:"warns,notnull" json:"warns"`
	Blacklisted   bool      `bun:"blacklisted,notnull" json:"blacklisted"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}
