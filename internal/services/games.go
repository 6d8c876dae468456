package services

import (
	"context"
	"strings"
	"time"

	"casino/internal/interfaces"
	"casino/internal/models"
	"casino/internal/pkg/logger"

	"github.com/mroth/weightedrand/v2"
	"github.com/samber/do"
	"github.com/sirupsen/logrus"
)

const (
	COINFLIP_HEADS = "heads"
	COINFLIP_TAILS = "tails"

	COOLDOWN_KEY_DAILY = "daily"
)

type GameResult struct {
	Won     bool            `json:"won"`
	Net     int64           `json:"net"`
	Result  string          `json:"result"`
	Account *models.Account `json:"account"`
}

type ServiceGames struct {
	container *do.Injector
	guard     interfaces.Guard

	serviceLedger *ServiceLedger
	serviceConfig *ServiceConfig

	slotReel *ServiceGacha[SlotSymbol]
}

func NewServiceGames(container *do.Injector) (*ServiceGames, error) {
	guard, err := do.Invoke[interfaces.Guard](container)
	if err != nil {
		return nil, err
	}

	serviceLedger, err := do.Invoke[*ServiceLedger](container)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	slotReel, err := newSlotReel()
	if err != nil {
		return nil, err
	}

	return &ServiceGames{container, guard, serviceLedger, serviceConfig, slotReel}, nil
}

func (service *ServiceGames) intConfig(ctx context.Context, key string, defaultValue int64) int64 {
	value, err := service.serviceConfig.GetIntConfig(ctx, key, defaultValue)
	if err != nil {
		logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("config unreadable, using default")
	}
	return value
}

func (service *ServiceGames) durationConfig(ctx context.Context, key string, defaultValue time.Duration) time.Duration {
	value, err := service.serviceConfig.GetDurationConfig(ctx, key, defaultValue)
	if err != nil {
		logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("config unreadable, using default")
	}
	return value
}

// Daily pays the daily reward once per cooldown window.
func (service *ServiceGames) Daily(ctx context.Context, communityID, userID string) (*AdjustResult, error) {
	cooldown := service.durationConfig(ctx, CONFIG_DAILY_COOLDOWN, DEFAULT_DAILY_COOLDOWN)
	remaining, err := service.guard.CheckAndConsumeCooldown(ctx, communityID, userID, COOLDOWN_KEY_DAILY, cooldown)
	if err != nil {
		return nil, err
	}
	if remaining > 0 {
		return nil, newRetryError(ReasonCooldown, remaining)
	}

	amount := service.intConfig(ctx, CONFIG_DAILY_AMOUNT, DEFAULT_DAILY_AMOUNT)
	return service.serviceLedger.AdjustBalance(ctx, communityID, userID, Delta{Coins: amount}, Meta{
		Source:  SOURCE_DAILY,
		ActorID: userID,
	})
}

func (service *ServiceGames) checkBurst(ctx context.Context, communityID, userID string) error {
	window := service.durationConfig(ctx, CONFIG_BURST_WINDOW, DEFAULT_BURST_WINDOW)
	maxHits := service.intConfig(ctx, CONFIG_BURST_MAX_HITS, DEFAULT_BURST_MAX_HITS)
	block := service.durationConfig(ctx, CONFIG_BURST_BLOCK, DEFAULT_BURST_BLOCK)

	remaining, err := service.guard.BurstGuard(ctx, BurstBucketGame(communityID), userID, window, int(maxHits), block)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return newRetryError(ReasonRateLimited, remaining)
	}
	return nil
}

// checkWager refuses a bet the user cannot cover before any odds are drawn. The settling
// adjust repeats the check on the locked row through Meta.RequireCoins.
func (service *ServiceGames) checkWager(ctx context.Context, communityID, userID string, bet int64) error {
	maxBet := service.intConfig(ctx, CONFIG_GAME_MAX_BET, DEFAULT_GAME_MAX_BET)
	if bet <= 0 || bet > maxBet {
		return newBusinessError(ReasonInvalidAmount, "bet must be between 1 and %d", maxBet)
	}

	if err := service.checkBurst(ctx, communityID, userID); err != nil {
		return err
	}

	account, err := service.serviceLedger.GetAccount(ctx, communityID, userID)
	if err != nil {
		return err
	}
	if account.Coins < bet {
		return newBusinessError(ReasonInsufficientFunds, "balance %d is below the bet %d", account.Coins, bet)
	}
	return nil
}

func (service *ServiceGames) Coinflip(ctx context.Context, communityID, userID string, bet int64, side string) (*GameResult, error) {
	side = strings.ToLower(strings.TrimSpace(side))
	if side != COINFLIP_HEADS && side != COINFLIP_TAILS {
		return nil, newBusinessError(ReasonInvalidAmount, "side must be %s or %s", COINFLIP_HEADS, COINFLIP_TAILS)
	}
	if err := service.checkWager(ctx, communityID, userID, bet); err != nil {
		return nil, err
	}

	winWeight := service.intConfig(ctx, CONFIG_COINFLIP_WIN_WEIGHT, DEFAULT_COINFLIP_WIN_WEIGHT)
	if winWeight < 0 || winWeight > 100 {
		winWeight = DEFAULT_COINFLIP_WIN_WEIGHT
	}
	gacha, err := NewServiceGacha([]weightedrand.Choice[bool, int]{
		weightedrand.NewChoice(true, int(winWeight)),
		weightedrand.NewChoice(false, int(100-winWeight)),
	})
	if err != nil {
		return nil, err
	}

	result := &GameResult{Won: gacha.Pick(), Result: side}
	result.Net = -bet
	if result.Won {
		result.Net = bet
	} else if side == COINFLIP_HEADS {
		result.Result = COINFLIP_TAILS
	} else {
		result.Result = COINFLIP_HEADS
	}

	adjusted, err := service.serviceLedger.AdjustBalance(ctx, communityID, userID, Delta{Coins: result.Net}, Meta{
		Source:       SOURCE_COINFLIP,
		ActorID:      userID,
		ForceLog:     true,
		RequireCoins: bet,
		Extra:        map[string]interface{}{"bet": bet, "side": side, "result": result.Result},
	})
	if err != nil {
		return nil, err
	}
	result.Account = adjusted.Account
	result.Net = adjusted.Transaction.CoinsDelta
	return result, nil
}

func (service *ServiceGames) Slots(ctx context.Context, communityID, userID string, bet int64) (*GameResult, error) {
	if err := service.checkWager(ctx, communityID, userID, bet); err != nil {
		return nil, err
	}

	reels := []SlotSymbol{service.slotReel.Pick(), service.slotReel.Pick(), service.slotReel.Pick()}
	multiplier := slotMultiplier(reels)
	names := make([]string, len(reels))
	for i, symbol := range reels {
		names[i] = symbol.Name
	}

	result := &GameResult{
		Won:    multiplier > 1,
		Net:    bet*multiplier - bet,
		Result: strings.Join(names, " | "),
	}

	adjusted, err := service.serviceLedger.AdjustBalance(ctx, communityID, userID, Delta{Coins: result.Net}, Meta{
		Source:       SOURCE_SLOTS,
		ActorID:      userID,
		ForceLog:     true,
		RequireCoins: bet,
		Extra:        map[string]interface{}{"bet": bet, "reels": names, "multiplier": multiplier},
	})
	if err != nil {
		return nil, err
	}
	result.Account = adjusted.Account
	result.Net = adjusted.Transaction.CoinsDelta
	return result, nil
}
