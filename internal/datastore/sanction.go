package datastore

import (
	"context"
	"time"

	"casino/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableSanction(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*models.SanctionEvent)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.SanctionEvent)(nil)).Index("index_sanction_events_community_id_user_id").IfNotExists().Column("community_id", "user_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateTable().Model((*models.SanctionState)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.SanctionState)(nil)).Index("index_sanction_states_community_id_user_id").IfNotExists().Unique().Column("community_id", "user_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertSanctionEvent(ctx context.Context, tx bun.IDB, event *models.SanctionEvent) error {
	_, err := tx.NewInsert().Model(event).Returning("id").Exec(ctx)
	return err
}

func LockSanctionState(ctx context.Context, tx bun.IDB, communityID, userID string, now time.Time) (*models.SanctionState, error) {
	state := &models.SanctionState{
		CommunityID: communityID,
		UserID:      userID,
		UpdatedAt:   now,
	}
	_, err := tx.NewInsert().Model(state).On("CONFLICT (community_id, user_id) DO NOTHING").Exec(ctx)
	if err != nil {
		return nil, err
	}

	var current models.SanctionState
	q := tx.NewSelect().Model(&current).
		Where("community_id = ?", communityID).
		Where("user_id = ?", userID)
	err = forUpdate(tx, q).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &current, nil
}

func UpdateSanctionState(ctx context.Context, tx bun.IDB, state *models.SanctionState) error {
	_, err := tx.NewUpdate().Model((*models.SanctionState)(nil)).
		Set("warns = ?", state.Warns).
		Set("blacklisted = ?", state.Blacklisted).
		Set("updated_at = ?", state.UpdatedAt).
		Where("community_id = ?", state.CommunityID).
		Where("user_id = ?", state.UserID).
		Exec(ctx)
	return err
}

func GetSanctionState(ctx context.Context, db bun.IDB, communityID, userID string) (*models.SanctionState, error) {
	var state models.SanctionState
	err := db.NewSelect().Model(&state).
		Where("community_id = ?", communityID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func GetSanctionEvents(ctx context.Context, db bun.IDB, communityID, userID string, limit int) ([]models.SanctionEvent, error) {
	events := []models.SanctionEvent{}
	err := db.NewSelect().Model(&events).
		Where("community_id = ?", communityID).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}
