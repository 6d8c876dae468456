package datastore

import (
	"context"
	"time"

	"casino/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableCasinoProfile(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*models.CasinoProfile)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.CasinoProfile)(nil)).Index("index_casino_profiles_community_id_user_id").IfNotExists().Unique().Column("community_id", "user_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func EnsureCasinoProfile(ctx context.Context, db bun.IDB, communityID, userID string, now time.Time) error {
	profile := &models.CasinoProfile{
		CommunityID: communityID,
		UserID:      userID,
		UpdatedAt:   now,
	}
	_, err := db.NewInsert().Model(profile).On("CONFLICT (community_id, user_id) DO NOTHING").Exec(ctx)
	return err
}

func GetCasinoProfile(ctx context.Context, db bun.IDB, communityID, userID string) (*models.CasinoProfile, error) {
	var profile models.CasinoProfile
	err := db.NewSelect().Model(&profile).
		Where("community_id = ?", communityID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// ConsumeDrawCredits decrements the credits only when enough are available, in a single
// statement. It reports false when nothing was consumed.
func ConsumeDrawCredits(ctx context.Context, tx bun.IDB, communityID, userID string, count int64, now time.Time) (bool, error) {
	res, err := tx.NewUpdate().Model((*models.CasinoProfile)(nil)).
		Set("draw_credits = draw_credits - ?", count).
		Set("draws_done = draws_done + ?", count).
		Set("updated_at = ?", now).
		Where("community_id = ?", communityID).
		Where("user_id = ?", userID).
		Where("draw_credits >= ?", count).
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

// RefundDrawCredits gives back credits taken by ConsumeDrawCredits. draws_done only ever grows,
// so it keeps counting the refunded attempt.
func RefundDrawCredits(ctx context.Context, tx bun.IDB, communityID, userID string, count int64, now time.Time) error {
	_, err := tx.NewUpdate().Model((*models.CasinoProfile)(nil)).
		Set("draw_credits = draw_credits + ?", count).
		Set("updated_at = ?", now).
		Where("community_id = ?", communityID).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}

// SetDrawCredits overwrites the credit balance of a locked profile.
func SetDrawCredits(ctx context.Context, tx bun.IDB, communityID, userID string, credits int64, now time.Time) error {
	_, err := tx.NewUpdate().Model((*models.CasinoProfile)(nil)).
		Set("draw_credits = ?", credits).
		Set("updated_at = ?", now).
		Where("community_id = ?", communityID).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}

func LockCasinoProfile(ctx context.Context, tx bun.IDB, communityID, userID string) (*models.CasinoProfile, error) {
	var profile models.CasinoProfile
	q := tx.NewSelect().Model(&profile).
		Where("community_id = ?", communityID).
		Where("user_id = ?", userID)
	err := forUpdate(tx, q).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func AddVoiceMinutes(ctx context.Context, tx bun.IDB, communityID, userID string, minutes int64, now time.Time) error {
	_, err := tx.NewUpdate().Model((*models.CasinoProfile)(nil)).
		Set("voice_minutes = voice_minutes + ?", minutes).
		Set("updated_at = ?", now).
		Where("community_id = ?", communityID).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}
