package services

import (
	"strconv"
	"strings"

	"casino/internal/models"
)

// RewardOutcome is the effect a drawn item should have. It is decided here and applied by
// ServiceDraw through the ledger.
type RewardOutcome interface {
	rewardOutcome()
}

type CoinsReward struct {
	Amount int64
}

type XPReward struct {
	Amount int64
}

type DrawsReward struct {
	Amount int64
}

type CosmeticReward struct {
	ItemID int64
	Name   string
	RoleID string
}

type NoReward struct{}

func (CoinsReward) rewardOutcome()    {}
func (XPReward) rewardOutcome()       {}
func (DrawsReward) rewardOutcome()    {}
func (CosmeticReward) rewardOutcome() {}
func (NoReward) rewardOutcome()       {}

// PickWeighted walks the cumulative weights of the enabled items. Items with a weight <= 0 are
// never picked; the last eligible item absorbs floating point drift.
func PickWeighted(items []models.DrawItem, rnd func() float64) (*models.DrawItem, bool) {
	var total float64
	last := -1
	for i := range items {
		if !items[i].Enabled || items[i].Weight <= 0 {
			continue
		}
		total += items[i].Weight
		last = i
	}
	if last < 0 {
		return nil, false
	}

	r := rnd() * total
	for i := range items {
		if !items[i].Enabled || items[i].Weight <= 0 {
			continue
		}
		r -= items[i].Weight
		if r <= 0 {
			return &items[i], true
		}
	}
	return &items[last], true
}

func ResolveRewardOutcome(item *models.DrawItem) RewardOutcome {
	switch item.RewardType {
	case models.RewardTypeCoins:
		if amount, ok := positiveAmount(item.RewardValue); ok {
			return CoinsReward{Amount: amount}
		}
	case models.RewardTypeXP:
		if amount, ok := positiveAmount(item.RewardValue); ok {
			return XPReward{Amount: amount}
		}
	case models.RewardTypeDraws:
		if amount, ok := positiveAmount(item.RewardValue); ok {
			return DrawsReward{Amount: amount}
		}
	case models.RewardTypeCosmetic, models.RewardTypeRole:
		return CosmeticReward{ItemID: item.ID, Name: item.Name, RoleID: strings.TrimSpace(item.RewardValue)}
	case models.RewardTypeNone:
	}
	return NoReward{}
}

func positiveAmount(value string) (int64, bool) {
	amount, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || amount <= 0 {
		return 0, false
	}
	return amount, true
}
