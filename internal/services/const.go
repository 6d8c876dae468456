package services

import (
	"fmt"
	"time"
)

// Ledger sources. Known metadata keys are listed next to each source.
const (
	SOURCE_ADMIN           = "admin:adjust"    // admin_note
	SOURCE_REVERSAL        = "admin:revert"    // reverted_tx_id, reverted_trace_id
	SOURCE_TRANSFER        = "cmd:give"        // counterparty_id, direction
	SOURCE_DAILY           = "cmd:daily"       // streak
	SOURCE_VOICE           = "gain:vocal"      // minutes
	SOURCE_DRAW            = "draw:pull"       // draw_item_id, draw_item_name, pull_index
	SOURCE_DRAW_CREDITS    = "draw:credits"    // draws_before, draws_delta, draws_after
	SOURCE_GIVEAWAY_PAYOUT = "giveaway:payout" // giveaway_id, round
	SOURCE_COINFLIP        = "game:coinflip"   // bet, side, result
	SOURCE_SLOTS           = "game:slots"      // bet, reels, multiplier
	SOURCE_UNKNOWN         = "unknown"

	SYSTEM_ACTOR = "system"
)

const (
	CONFIG_DAILY_AMOUNT        = "DAILY_AMOUNT"
	CONFIG_DAILY_COOLDOWN      = "DAILY_COOLDOWN"
	CONFIG_VOICE_XP_PER_MINUTE = "VOICE_XP_PER_MINUTE"
	CONFIG_GAME_MAX_BET        = "GAME_MAX_BET"
	CONFIG_COINFLIP_WIN_WEIGHT = "COINFLIP_WIN_WEIGHT"
	CONFIG_BURST_WINDOW        = "BURST_WINDOW"
	CONFIG_BURST_MAX_HITS      = "BURST_MAX_HITS"
	CONFIG_BURST_BLOCK         = "BURST_BLOCK"
	CONFIG_LEADERBOARD_LIMIT   = "LEADERBOARD_LIMIT"
	CONFIG_CRONJOB_GIVEAWAY    = "CRONJOB_GIVEAWAY"
	CONFIG_CRONJOB_LEADERBOARD = "CRONJOB_LEADERBOARD"
	CONFIG_CRONJOB_GUARD_SWEEP = "CRONJOB_GUARD_SWEEP"
	CONFIG_CRONJOB_AUDIT       = "CRONJOB_AUDIT"
	CONFIG_LOG_CHANNEL_PREFIX  = "LOG_CHANNEL:"

	DEFAULT_DAILY_AMOUNT        = 250
	DEFAULT_DAILY_COOLDOWN      = 24 * time.Hour
	DEFAULT_VOICE_XP_PER_MINUTE = 2
	DEFAULT_GAME_MAX_BET        = 1_000_000
	DEFAULT_COINFLIP_WIN_WEIGHT = 50
	DEFAULT_BURST_WINDOW        = 5 * time.Second
	DEFAULT_BURST_MAX_HITS      = 6
	DEFAULT_BURST_BLOCK         = 30 * time.Second
	DEFAULT_LEADERBOARD_LIMIT   = 10

	TRANSACTION_LIST_DEFAULT_LIMIT = 50
	TRANSACTION_LIST_MAX_LIMIT     = 300
	SANCTION_LIST_LIMIT            = 25

	MAX_PULLS_PER_CALL   = 10
	MAX_GIVEAWAY_WINNERS = 50
	DUE_GIVEAWAYS_BATCH  = 20
	AUDIT_FLUSH_BATCH    = 50

	GIVEAWAY_LOCK_TTL = 2 * time.Minute

	CACHE_TTL_15_SECONDS = 15 * time.Second
	CACHE_TTL_1_MIN      = 1 * time.Minute
	CACHE_TTL_5_MINS     = 5 * time.Minute
)

func LockKeyGiveaway(messageID string) string {
	return fmt.Sprintf("lock:giveaway:%s", messageID)
}

func DBKeyConfig(key string) string {
	return fmt.Sprintf("config:%s", key)
}

func DBKeyDrawCatalog(communityID string) string {
	return fmt.Sprintf("draw_catalog:%s", communityID)
}

func DBKeyGiveaway(messageID string) string {
	return fmt.Sprintf("giveaway:%s", messageID)
}

func DBKeyBlacklisted(communityID, userID string) string {
	return fmt.Sprintf("blacklisted:%s:%s", communityID, userID)
}

func GiveawayTraceID(messageID string, round int) string {
	return fmt.Sprintf("giveaway:%s:%d", messageID, round)
}

func BurstBucketGame(communityID string) string {
	return fmt.Sprintf("game:%s", communityID)
}
