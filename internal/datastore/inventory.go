package datastore

import (
	"context"

	"casino/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableInventoryItem(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*models.InventoryItem)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.InventoryItem)(nil)).Index("index_inventory_items_owner_item").IfNotExists().Unique().Column("community_id", "user_id", "draw_item_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// InsertInventoryItem reports false when the user already owns the item.
func InsertInventoryItem(ctx context.Context, tx bun.IDB, item *models.InventoryItem) (bool, error) {
	res, err := tx.NewInsert().Model(item).On("CONFLICT (community_id, user_id, draw_item_id) DO NOTHING").Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func GetInventory(ctx context.Context, db bun.IDB, communityID, userID string) ([]models.InventoryItem, error) {
	items := []models.InventoryItem{}
	err := db.NewSelect().Model(&items).
		Where("community_id = ?", communityID).
		Where("user_id = ?", userID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}
