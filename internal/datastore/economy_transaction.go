package datastore

import (
	"context"
	"strings"
	"time"

	"casino/internal/models"

	"github.com/uptrace/bun"
)

type RevertedFilter string

const (
	RevertedInclude RevertedFilter = ""
	RevertedExclude RevertedFilter = "exclude"
	RevertedOnly    RevertedFilter = "only"
)

type TransactionFilter struct {
	UserID   string
	ActorID  string
	Source   string // exact match, or a prefix when it ends with "*"
	TraceID  string
	Reverted RevertedFilter
	Since    *time.Time
	Until    *time.Time
	MinAbs   int64
	Limit    int
}

func CreateTableEconomyTransaction(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*models.EconomyTransaction)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.EconomyTransaction)(nil)).Index("index_economy_transactions_community_user").IfNotExists().Column("community_id", "user_id", "id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.EconomyTransaction)(nil)).Index("index_economy_transactions_community_trace").IfNotExists().Column("community_id", "trace_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.EconomyTransaction)(nil)).Index("index_economy_transactions_created_at").IfNotExists().Column("created_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertEconomyTransaction(ctx context.Context, tx bun.IDB, record *models.EconomyTransaction) error {
	_, err := tx.NewInsert().Model(record).Returning("id").Exec(ctx)
	return err
}

func GetEconomyTransaction(ctx context.Context, db bun.IDB, communityID string, id int64) (*models.EconomyTransaction, error) {
	var record models.EconomyTransaction
	err := db.NewSelect().Model(&record).
		Where("id = ?", id).
		Where("community_id = ?", communityID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func LockEconomyTransaction(ctx context.Context, tx bun.IDB, communityID string, id int64) (*models.EconomyTransaction, error) {
	var record models.EconomyTransaction
	q := tx.NewSelect().Model(&record).
		Where("id = ?", id).
		Where("community_id = ?", communityID)
	err := forUpdate(tx, q).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarkEconomyTransactionReverted sets the reversal fields once. It reports false when the
// row was already reverted.
func MarkEconomyTransactionReverted(ctx context.Context, tx bun.IDB, communityID string, id int64, revertedAt time.Time, revertedBy, reason string, reversalID int64) (bool, error) {
	res, err := tx.NewUpdate().Model((*models.EconomyTransaction)(nil)).
		Set("reverted_at = ?", revertedAt).
		Set("reverted_by = ?", revertedBy).
		Set("reverted_reason = ?", reason).
		Set("reverted_tx_id = ?", reversalID).
		Where("id = ?", id).
		Where("community_id = ?", communityID).
		Where("reverted_at IS NULL").
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

func ListEconomyTransactions(ctx context.Context, db bun.IDB, communityID string, filter TransactionFilter) ([]models.EconomyTransaction, error) {
	records := []models.EconomyTransaction{}
	q := db.NewSelect().Model(&records).Where("community_id = ?", communityID)

	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Source != "" {
		if prefix, ok := strings.CutSuffix(filter.Source, "*"); ok {
			q = q.Where("source LIKE ?", prefix+"%")
		} else {
			q = q.Where("source = ?", filter.Source)
		}
	}
	if filter.TraceID != "" {
		q = q.Where("trace_id = ?", filter.TraceID)
	}
	switch filter.Reverted {
	case RevertedExclude:
		q = q.Where("reverted_at IS NULL")
	case RevertedOnly:
		q = q.Where("reverted_at IS NOT NULL")
	}
	if filter.Since != nil {
		q = q.Where("created_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		q = q.Where("created_at < ?", *filter.Until)
	}
	if filter.MinAbs > 0 {
		q = q.Where("(ABS(coins_delta) >= ? OR ABS(xp_delta) >= ?)", filter.MinAbs, filter.MinAbs)
	}

	err := q.Order("id DESC").Limit(filter.Limit).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetTraceTransactions returns the not yet reverted rows of a trace, oldest first.
func GetTraceTransactions(ctx context.Context, tx bun.IDB, communityID, traceID string) ([]models.EconomyTransaction, error) {
	records := []models.EconomyTransaction{}
	err := tx.NewSelect().Model(&records).
		Where("community_id = ?", communityID).
		Where("trace_id = ?", traceID).
		Where("reverted_at IS NULL").
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func SumAccountDeltas(ctx context.Context, db bun.IDB, communityID, userID string) (coins int64, xp int64, err error) {
	err = db.NewSelect().Model((*models.EconomyTransaction)(nil)).
		ColumnExpr("COALESCE(SUM(coins_delta), 0)").
		ColumnExpr("COALESCE(SUM(xp_delta), 0)").
		Where("community_id = ?", communityID).
		Where("user_id = ?", userID).
		Scan(ctx, &coins, &xp)
	return coins, xp, err
}

// StreamEconomyTransactions walks the ledger of a community oldest first, calling fn for every
// row created at or after since.
func StreamEconomyTransactions(ctx context.Context, db *bun.DB, communityID string, since time.Time, fn func(record *models.EconomyTransaction) error) error {
	rows, err := db.NewSelect().Model((*models.EconomyTransaction)(nil)).
		Where("community_id = ?", communityID).
		Where("created_at >= ?", since).
		Order("id ASC").
		Rows(ctx)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var record models.EconomyTransaction
		if err := db.ScanRow(ctx, rows, &record); err != nil {
			return err
		}
		if err := fn(&record); err != nil {
			return err
		}
	}
	return rows.Err()
}
