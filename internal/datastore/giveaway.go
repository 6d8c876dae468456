package datastore

import (
	"context"
	"time"

	"casino/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableGiveaway(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*models.Giveaway)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Giveaway)(nil)).Index("index_giveaways_status_end_at").IfNotExists().Column("status", "end_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTableGiveawayEntry(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*models.GiveawayEntry)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.GiveawayEntry)(nil)).Index("index_giveaway_entries_message_id_user_id").IfNotExists().Unique().Column("message_id", "user_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTableGiveawayWinner(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*models.GiveawayWinner)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.GiveawayWinner)(nil)).Index("index_giveaway_winners_message_id_round_user_id").IfNotExists().Unique().Column("message_id", "round", "user_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTableGiveawayPayout(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*models.GiveawayPayout)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.GiveawayPayout)(nil)).Index("index_giveaway_payouts_message_id_round_user_id").IfNotExists().Unique().Column("message_id", "round", "user_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertGiveaway(ctx context.Context, db bun.IDB, giveaway *models.Giveaway) error {
	_, err := db.NewInsert().Model(giveaway).Exec(ctx)
	return err
}

func GetGiveaway(ctx context.Context, db bun.IDB, messageID string) (*models.Giveaway, error) {
	var giveaway models.Giveaway
	err := db.NewSelect().Model(&giveaway).Where("message_id = ?", messageID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &giveaway, nil
}

func LockGiveaway(ctx context.Context, tx bun.IDB, messageID string) (*models.Giveaway, error) {
	var giveaway models.Giveaway
	q := tx.NewSelect().Model(&giveaway).Where("message_id = ?", messageID)
	err := forUpdate(tx, q).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &giveaway, nil
}

func GetDueGiveaways(ctx context.Context, db bun.IDB, now time.Time, limit int) ([]models.Giveaway, error) {
	giveaways := []models.Giveaway{}
	err := db.NewSelect().Model(&giveaways).
		Where("status = ?", models.GiveawayStatusActive).
		Where("end_at <= ?", now.Unix()).
		Order("end_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return giveaways, nil
}

func GetActiveGiveaways(ctx context.Context, db bun.IDB, communityID string) ([]models.Giveaway, error) {
	giveaways := []models.Giveaway{}
	err := db.NewSelect().Model(&giveaways).
		Where("community_id = ?", communityID).
		Where("status = ?", models.GiveawayStatusActive).
		Order("end_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return giveaways, nil
}

// FinishGiveaway moves an active giveaway to a terminal status. It reports false when the
// giveaway was no longer active.
func FinishGiveaway(ctx context.Context, tx bun.IDB, messageID string, status models.GiveawayStatus, at time.Time, by string) (bool, error) {
	res, err := tx.NewUpdate().Model((*models.Giveaway)(nil)).
		Set("status = ?", status).
		Set("ended_at = ?", at).
		Set("ended_by = ?", by).
		Where("message_id = ?", messageID).
		Where("status = ?", models.GiveawayStatusActive).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func adjustEntriesCount(ctx context.Context, tx bun.IDB, messageID string, delta int) error {
	_, err := tx.NewUpdate().Model((*models.Giveaway)(nil)).
		Set("entries_count = CASE WHEN entries_count + ? < 0 THEN 0 ELSE entries_count + ? END", delta, delta).
		Where("message_id = ?", messageID).
		Exec(ctx)
	return err
}

// InsertGiveawayEntry records participation and bumps entries_count when the row is new.
func InsertGiveawayEntry(ctx context.Context, tx bun.IDB, entry *models.GiveawayEntry) (bool, error) {
	res, err := tx.NewInsert().Model(entry).On("CONFLICT (message_id, user_id) DO NOTHING").Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}
	return true, adjustEntriesCount(ctx, tx, entry.MessageID, 1)
}

// DeleteGiveawayEntry removes participation and lowers entries_count when a row was removed.
func DeleteGiveawayEntry(ctx context.Context, tx bun.IDB, messageID, userID string) (bool, error) {
	res, err := tx.NewDelete().Model((*models.GiveawayEntry)(nil)).
		Where("message_id = ?", messageID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}
	return true, adjustEntriesCount(ctx, tx, messageID, -1)
}

func HasGiveawayEntry(ctx context.Context, db bun.IDB, messageID, userID string) (bool, error) {
	return db.NewSelect().Model((*models.GiveawayEntry)(nil)).
		Where("message_id = ?", messageID).
		Where("user_id = ?", userID).
		Exists(ctx)
}

func CountGiveawayEntries(ctx context.Context, db bun.IDB, messageID string) (int, error) {
	return db.NewSelect().Model((*models.GiveawayEntry)(nil)).Where("message_id = ?", messageID).Count(ctx)
}

// StreamGiveawayEntrants walks the entrant table with a server-side cursor, calling fn for
// every user id. Iteration stops at the first error returned by fn.
func StreamGiveawayEntrants(ctx context.Context, db bun.IDB, messageID string, fn func(userID string) error) error {
	rows, err := db.NewSelect().Model((*models.GiveawayEntry)(nil)).
		Column("user_id").
		Where("message_id = ?", messageID).
		Order("id ASC").
		Rows(ctx)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return err
		}
		if err := fn(userID); err != nil {
			return err
		}
	}
	return rows.Err()
}

func GetMaxGiveawayRound(ctx context.Context, tx bun.IDB, messageID string) (int, error) {
	var round int
	err := tx.NewSelect().Model((*models.GiveawayWinner)(nil)).
		ColumnExpr("COALESCE(MAX(round), -1)").
		Where("message_id = ?", messageID).
		Scan(ctx, &round)
	if err != nil {
		return 0, err
	}
	return round, nil
}

func InsertGiveawayWinners(ctx context.Context, tx bun.IDB, winners []models.GiveawayWinner) error {
	if len(winners) == 0 {
		return nil
	}
	_, err := tx.NewInsert().Model(&winners).On("CONFLICT (message_id, round, user_id) DO NOTHING").Exec(ctx)
	return err
}

func GetGiveawayWinners(ctx context.Context, db bun.IDB, messageID string) ([]models.GiveawayWinner, error) {
	winners := []models.GiveawayWinner{}
	err := db.NewSelect().Model(&winners).
		Where("message_id = ?", messageID).
		Order("round ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return winners, nil
}

// InsertGiveawayPayout reports false when the (message, round, user) payout already exists.
func InsertGiveawayPayout(ctx context.Context, tx bun.IDB, payout *models.GiveawayPayout) (bool, error) {
	res, err := tx.NewInsert().Model(payout).On("CONFLICT (message_id, round, user_id) DO NOTHING").Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func SetGiveawayPayoutTransaction(ctx context.Context, tx bun.IDB, payoutID, transactionID int64) error {
	_, err := tx.NewUpdate().Model((*models.GiveawayPayout)(nil)).
		Set("transaction_id = ?", transactionID).
		Where("id = ?", payoutID).
		Exec(ctx)
	return err
}

func GetGiveawayPayouts(ctx context.Context, db bun.IDB, messageID string) ([]models.GiveawayPayout, error) {
	payouts := []models.GiveawayPayout{}
	err := db.NewSelect().Model(&payouts).
		Where("message_id = ?", messageID).
		Order("round ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return payouts, nil
}
