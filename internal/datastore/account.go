package datastore

import (
	"context"
	"time"

	"casino/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableAccount(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*models.Account)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Account)(nil)).Index("index_accounts_community_id_user_id").IfNotExists().Unique().Column("community_id", "user_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Account)(nil)).Index("index_accounts_community_id_coins").IfNotExists().Column("community_id", "coins").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func EnsureAccount(ctx context.Context, db bun.IDB, communityID, userID string, now time.Time) error {
	account := &models.Account{
		CommunityID: communityID,
		UserID:      userID,
		UpdatedAt:   now,
	}
	_, err := db.NewInsert().Model(account).On("CONFLICT (community_id, user_id) DO NOTHING").Exec(ctx)
	return err
}

func GetAccount(ctx context.Context, db bun.IDB, communityID, userID string) (*models.Account, error) {
	var account models.Account
	err := db.NewSelect().Model(&account).
		Where("community_id = ?", communityID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// LockAccount reads the account inside a transaction and keeps it locked until commit.
func LockAccount(ctx context.Context, tx bun.IDB, communityID, userID string) (*models.Account, error) {
	var account models.Account
	q := tx.NewSelect().Model(&account).
		Where("community_id = ?", communityID).
		Where("user_id = ?", userID)
	err := forUpdate(tx, q).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func UpdateAccountBalance(ctx context.Context, tx bun.IDB, account *models.Account) error {
	_, err := tx.NewUpdate().Model((*models.Account)(nil)).
		Set("coins = ?", account.Coins).
		Set("xp = ?", account.XP).
		Set("updated_at = ?", account.UpdatedAt).
		Where("community_id = ?", account.CommunityID).
		Where("user_id = ?", account.UserID).
		Exec(ctx)
	return err
}

func GetTopAccounts(ctx context.Context, db bun.IDB, communityID string, limit, offset int) ([]models.Account, error) {
	var accounts []models.Account
	err := db.NewSelect().Model(&accounts).
		Where("community_id = ?", communityID).
		Where("coins > 0").
		Order("coins DESC", "id ASC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func GetCommunityIDs(ctx context.Context, db bun.IDB) ([]string, error) {
	var ids []string
	err := db.NewSelect().Model((*models.Account)(nil)).
		Distinct().
		Column("community_id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
