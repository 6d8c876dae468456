package models

import "time"

type AuditKind string

const (
	AuditKindTransaction AuditKind = "transaction"
	AuditKindReversal    AuditKind = "reversal"
	AuditKindGiveaway    AuditKind = "giveaway"
	AuditKindDraw        AuditKind = "draw"
	AuditKindSanction    AuditKind = "sanction"
)

// AuditEvent is the display-facing copy of a committed mutation. It is queued in redis and
// rendered by the bot into the community log channel.
type AuditEvent struct {
	Kind        AuditKind         `msgpack:"kind" json:"kind"`
	CommunityID string            `msgpack:"community_id" json:"community_id"`
	UserID      string            `msgpack:"user_id" json:"user_id"`
	ActorID     string            `msgpack:"actor_id" json:"actor_id"`
	Source      string            `msgpack:"source" json:"source"`
	Reason      string            `msgpack:"reason" json:"reason"`
	TraceID     string            `msgpack:"trace_id" json:"trace_id"`
	CoinsDelta  int64             `msgpack:"coins_delta" json:"coins_delta"`
	XPDelta     int64             `msgpack:"xp_delta" json:"xp_delta"`
	CoinsAfter  int64             `msgpack:"coins_after" json:"coins_after"`
	Fields      map[string]string `msgpack:"fields" json:"fields,omitempty"`
	CreatedAt   time.Time         `msgpack:"created_at" json:"created_at"`
}
