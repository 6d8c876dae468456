package models

import (
	"time"

	"github.com/uptrace/bun"
)

type DrawCategory string

const (
	DrawCategoryCosmetic   DrawCategory = "cosmetic"
	DrawCategoryColour     DrawCategory = "colour"
	DrawCategoryBadge      DrawCategory = "badge"
	DrawCategoryDecorative DrawCategory = "decorative"
	DrawCategoryOther      DrawCategory = "other"
)

func (v DrawCategory) Valid() bool {
	switch v {
	case DrawCategoryCosmetic, DrawCategoryColour, DrawCategoryBadge, DrawCategoryDecorative, DrawCategoryOther:
		return true
	}
	return false
}

type RewardType string

const (
	RewardTypeCoins    RewardType = "coins"
	RewardTypeXP       RewardType = "xp"
	RewardTypeDraws    RewardType = "draws"
	RewardTypeCosmetic RewardType = "cosmetic"
	RewardTypeRole     RewardType = "role"
	RewardTypeNone     RewardType = "none"
)

func (v RewardType) Valid() bool {
	switch v {
	case RewardTypeCoins, RewardTypeXP, RewardTypeDraws, RewardTypeCosmetic, RewardTypeRole, RewardTypeNone:
		return true
	}
	return false
}

type DrawItem struct {
	bun.BaseModel `bun:"table:draw_items"`
	ID            int64        `bun:"id,pk,autoincrement" json:"id"`
	CommunityID   string       `bun:"community_id,notnull" json:"community_id"`
	Name          string       `bun:"name,notnull" json:"name"`
	Category      DrawCategory `bun:"category,notnull" json:"category"`
	Weight        float64      `bun:"weight,notnull" json:"weight"`
	RewardType    RewardType   `bun:"reward_type,notnull" json:"reward_type"`
	RewardValue   string       `bun:"reward_value" json:"reward_value"`
	Enabled       bool         `bun:"enabled,notnull" json:"enabled"`
	SortOrder     int          `bun:"sort_order,notnull" json:"sort_order"`
	CreatedAt     time.Time    `bun:"created_at,notnull" json:"created_at"`
}

type InventoryItem struct {
	bun.BaseModel `bun:"table:inventory_items"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	CommunityID   string    `bun:"community_id,notnull" json:"community_id"`
	UserID        string    `bun:"user_id,notnull" json:"user_id"`
	DrawItemID    int64     `bun:"draw_item_id,notnull" json:"draw_item_id"`
	Name          string    `bun:"name,notnull" json:"name"`
	RoleID        string    `bun:"role_id" json:"role_id,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}
