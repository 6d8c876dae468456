package datastore

import (
	"context"

	"casino/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableDrawItem(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*models.DrawItem)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.DrawItem)(nil)).Index("index_draw_items_community_id").IfNotExists().Column("community_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertDrawItem(ctx context.Context, db bun.IDB, item *models.DrawItem) error {
	_, err := db.NewInsert().Model(item).Returning("id").Exec(ctx)
	return err
}

func UpdateDrawItem(ctx context.Context, db bun.IDB, item *models.DrawItem) error {
	_, err := db.NewUpdate().Model(item).
		Column("name", "category", "weight", "reward_type", "reward_value", "enabled", "sort_order").
		WherePK().
		Where("community_id = ?", item.CommunityID).
		Exec(ctx)
	return err
}

func GetDrawItem(ctx context.Context, db bun.IDB, communityID string, id int64) (*models.DrawItem, error) {
	var item models.DrawItem
	err := db.NewSelect().Model(&item).
		Where("id = ?", id).
		Where("community_id = ?", communityID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func GetDrawItems(ctx context.Context, db bun.IDB, communityID string, onlyEnabled bool) ([]models.DrawItem, error) {
	items := []models.DrawItem{}
	q := db.NewSelect().Model(&items).Where("community_id = ?", communityID)
	if onlyEnabled {
		q = q.Where("enabled = ?", true)
	}
	err := q.Order("sort_order ASC", "id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}
