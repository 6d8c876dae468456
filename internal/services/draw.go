package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"casino/internal/datastore"
	"casino/internal/interfaces"
	"casino/internal/models"
	"casino/internal/pkg"
	"casino/internal/pkg/caching"
	"casino/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
)

type PullOutcome struct {
	Item    models.DrawItem `json:"item"`
	Outcome RewardOutcome   `json:"-"`
	// cosmetic already owned, nothing granted
	Duplicate bool `json:"duplicate"`
}

type PullResult struct {
	TraceID  string                `json:"trace_id"`
	Outcomes []PullOutcome         `json:"outcomes"`
	Account  *models.Account       `json:"account"`
	Profile  *models.CasinoProfile `json:"profile"`
}

type ServiceDraw struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache
	roles              interfaces.RoleAssigner

	serviceLedger *ServiceLedger
	serviceConfig *ServiceConfig

	now func() time.Time
	rnd func() float64
}

func NewServiceDraw(container *do.Injector) (*ServiceDraw, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	readonlyCache, err := do.Invoke[caching.ReadOnlyCache](container)
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

	rnd, err := do.InvokeNamed[func() float64](container, "rng")
	if err != nil || rnd == nil {
		rnd = pkg.CryptoFloat64
	}

	return &ServiceDraw{
		container:          container,
		postgresDB:         postgresDB,
		readonlyPostgresDB: readonlyPostgresDB,
		cache:              cache,
		readonlyCache:      readonlyCache,
		roles:              invokeOptional[interfaces.RoleAssigner](container),
		serviceLedger:      serviceLedger,
		serviceConfig:      serviceConfig,
		now:                resolveClock(container),
		rnd:                rnd,
	}, nil
}

func validateDrawItem(item *models.DrawItem) error {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return newBusinessError(ReasonInvalidAmount, "item name is required")
	}
	if !item.Category.Valid() {
		return newBusinessError(ReasonInvalidAmount, "unknown category %q", item.Category)
	}
	if !item.RewardType.Valid() {
		return newBusinessError(ReasonInvalidAmount, "unknown reward type %q", item.RewardType)
	}
	if item.Weight < 0 || (item.Enabled && item.Weight == 0) {
		return newBusinessError(ReasonInvalidAmount, "weight must be positive for an enabled item")
	}
	return nil
}

// ListItems serves the catalog from cache. Pull re-reads the primary before sampling.
func (service *ServiceDraw) ListItems(ctx context.Context, communityID string, onlyEnabled bool) ([]models.DrawItem, error) {
	callback := func() ([]models.DrawItem, error) {
		return datastore.GetDrawItems(ctx, service.readonlyPostgresDB, communityID, false)
	}

	items, err := caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyDrawCatalog(communityID), CACHE_TTL_1_MIN, callback)
	if err != nil {
		return nil, storeError(err)
	}
	if !onlyEnabled {
		return items, nil
	}

	enabled := make([]models.DrawItem, 0, len(items))
	for _, item := range items {
		if item.Enabled {
			enabled = append(enabled, item)
		}
	}
	return enabled, nil
}

func (service *ServiceDraw) CreateItem(ctx context.Context, item *models.DrawItem) (*models.DrawItem, error) {
	if err := validateDrawItem(item); err != nil {
		return nil, err
	}
	item.ID = 0
	item.CreatedAt = service.now()

	if err := datastore.InsertDrawItem(ctx, service.postgresDB, item); err != nil {
		return nil, storeError(err)
	}
	service.invalidateCatalog(ctx, item.CommunityID)
	return item, nil
}

func (service *ServiceDraw) UpdateItem(ctx context.Context, item *models.DrawItem) (*models.DrawItem, error) {
	if err := validateDrawItem(item); err != nil {
		return nil, err
	}

	current, err := datastore.GetDrawItem(ctx, service.postgresDB, item.CommunityID, item.ID)
	if err != nil {
		return nil, storeError(notFound(err, "draw item"))
	}
	item.CreatedAt = current.CreatedAt

	if err := datastore.UpdateDrawItem(ctx, service.postgresDB, item); err != nil {
		return nil, storeError(err)
	}
	service.invalidateCatalog(ctx, item.CommunityID)
	return item, nil
}

// SetItemEnabled is the only way to retire an item; rows stay for history.
func (service *ServiceDraw) SetItemEnabled(ctx context.Context, communityID string, id int64, enabled bool) (*models.DrawItem, error) {
	item, err := datastore.GetDrawItem(ctx, service.postgresDB, communityID, id)
	if err != nil {
		return nil, storeError(notFound(err, "draw item"))
	}
	item.Enabled = enabled
	return service.UpdateItem(ctx, item)
}

func (service *ServiceDraw) invalidateCatalog(ctx context.Context, communityID string) {
	bestEffort("catalog cache invalidation", service.cache.Delete(ctx, DBKeyDrawCatalog(communityID)), logrus.Fields{
		"community_id": communityID,
	})
}

func (service *ServiceDraw) GetProfile(ctx context.Context, communityID, userID string) (*models.CasinoProfile, error) {
	if err := datastore.EnsureCasinoProfile(ctx, service.postgresDB, communityID, userID, service.now()); err != nil {
		return nil, storeError(err)
	}
	profile, err := datastore.GetCasinoProfile(ctx, service.postgresDB, communityID, userID)
	if err != nil {
		return nil, storeError(err)
	}
	return profile, nil
}

func (service *ServiceDraw) GetInventory(ctx context.Context, communityID, userID string) ([]models.InventoryItem, error) {
	items, err := datastore.GetInventory(ctx, service.readonlyPostgresDB, communityID, userID)
	if err != nil {
		return nil, storeError(err)
	}
	return items, nil
}

// ConsumeDrawCredits takes count credits or nothing at all.
func (service *ServiceDraw) ConsumeDrawCredits(ctx context.Context, communityID, userID string, count int64) (*models.CasinoProfile, error) {
	if count < 1 {
		return nil, newBusinessError(ReasonInvalidAmount, "count must be at least 1")
	}

	now := service.now()
	if err := datastore.EnsureCasinoProfile(ctx, service.postgresDB, communityID, userID, now); err != nil {
		return nil, storeError(err)
	}

	ok, err := datastore.ConsumeDrawCredits(ctx, service.postgresDB, communityID, userID, count, now)
	if err != nil {
		return nil, storeError(err)
	}
	if !ok {
		return nil, newBusinessError(ReasonNotEnoughCredits, "%d draw credits required", count)
	}

	profile, err := datastore.GetCasinoProfile(ctx, service.postgresDB, communityID, userID)
	if err != nil {
		return nil, storeError(err)
	}
	return profile, nil
}

func (service *ServiceDraw) refund(ctx context.Context, communityID, userID string, count int64) error {
	err := datastore.RefundDrawCredits(ctx, service.postgresDB, communityID, userID, count, service.now())
	if err != nil {
		bestEffort("draw credit refund", err, logrus.Fields{"community_id": communityID, "user_id": userID, "count": count})
	}
	return err
}

func (service *ServiceDraw) Pull(ctx context.Context, communityID, userID string, n int) (*PullResult, error) {
	if n < 1 || n > MAX_PULLS_PER_CALL {
		return nil, newBusinessError(ReasonInvalidAmount, "pulls must be between 1 and %d", MAX_PULLS_PER_CALL)
	}

	catalog, err := service.ListItems(ctx, communityID, true)
	if err != nil {
		return nil, err
	}
	if _, ok := PickWeighted(catalog, service.rnd); !ok {
		return nil, newBusinessError(ReasonDrawFailed, "the catalog has nothing to draw")
	}

	if _, err := service.ConsumeDrawCredits(ctx, communityID, userID, int64(n)); err != nil {
		return nil, err
	}

	// the cached catalog may be stale, sample from the primary
	fresh, err := datastore.GetDrawItems(ctx, service.postgresDB, communityID, true)
	if err != nil {
		if refundErr := service.refund(ctx, communityID, userID, int64(n)); refundErr != nil {
			return nil, storeError(errors.Join(err, refundErr))
		}
		return nil, storeError(err)
	}

	result := &PullResult{TraceID: uuid.NewString()}
	for i := 0; i < n; i++ {
		item, ok := PickWeighted(fresh, service.rnd)
		if !ok {
			break
		}
		result.Outcomes = append(result.Outcomes, PullOutcome{Item: *item, Outcome: ResolveRewardOutcome(item)})
	}
	if len(result.Outcomes) < n {
		if err := service.refund(ctx, communityID, userID, int64(n)); err != nil {
			return nil, storeError(err)
		}
		return nil, newBusinessError(ReasonDrawFailed, "the catalog has nothing to draw")
	}

	var records []*models.EconomyTransaction
	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		records = records[:0]
		for i := range result.Outcomes {
			record, err := service.applyOutcome(ctx, tx, communityID, userID, i, &result.Outcomes[i], result.TraceID)
			if err != nil {
				return err
			}
			if record != nil {
				records = append(records, record)
			}
		}
		return nil
	})
	if err != nil {
		if refundErr := service.refund(ctx, communityID, userID, int64(n)); refundErr != nil {
			return nil, storeError(errors.Join(err, refundErr))
		}
		return nil, storeError(err)
	}

	service.serviceLedger.publish(ctx, models.AuditKindDraw, records...)
	for _, outcome := range result.Outcomes {
		cosmetic, ok := outcome.Outcome.(CosmeticReward)
		if !ok || outcome.Duplicate || cosmetic.RoleID == "" || service.roles == nil {
			continue
		}
		bestEffort("role assignment", service.roles.AssignRole(ctx, communityID, userID, cosmetic.RoleID), logrus.Fields{
			"community_id": communityID,
			"user_id":      userID,
			"role_id":      cosmetic.RoleID,
		})
	}

	result.Account, err = service.serviceLedger.GetAccount(ctx, communityID, userID)
	if err != nil {
		return nil, err
	}
	result.Profile, err = datastore.GetCasinoProfile(ctx, service.postgresDB, communityID, userID)
	if err != nil {
		return nil, storeError(err)
	}
	return result, nil
}

func (service *ServiceDraw) applyOutcome(ctx context.Context, tx bun.IDB, communityID, userID string, index int, outcome *PullOutcome, traceID string) (*models.EconomyTransaction, error) {
	meta := Meta{
		Source:  SOURCE_DRAW,
		ActorID: userID,
		TraceID: traceID,
		Extra: map[string]interface{}{
			"draw_item_id":   outcome.Item.ID,
			"draw_item_name": outcome.Item.Name,
			"pull_index":     index,
		},
	}

	switch reward := outcome.Outcome.(type) {
	case CoinsReward:
		res, err := service.serviceLedger.adjustInTx(ctx, tx, communityID, userID, Delta{Coins: reward.Amount}, meta)
		if err != nil {
			return nil, err
		}
		return res.Transaction, nil
	case XPReward:
		res, err := service.serviceLedger.adjustInTx(ctx, tx, communityID, userID, Delta{XP: reward.Amount}, meta)
		if err != nil {
			return nil, err
		}
		return res.Transaction, nil
	case DrawsReward:
		_, record, err := service.grantDrawCreditsInTx(ctx, tx, communityID, userID, reward.Amount, meta)
		return record, err
	case CosmeticReward:
		inserted, err := datastore.InsertInventoryItem(ctx, tx, &models.InventoryItem{
			CommunityID: communityID,
			UserID:      userID,
			DrawItemID:  reward.ItemID,
			Name:        reward.Name,
			RoleID:      reward.RoleID,
			CreatedAt:   service.now(),
		})
		if err != nil {
			return nil, err
		}
		outcome.Duplicate = !inserted
		return nil, nil
	case NoReward:
		return nil, nil
	}
	return nil, nil
}

// GrantDrawCredits adds n credits, or removes -n clamped at zero.
func (service *ServiceDraw) GrantDrawCredits(ctx context.Context, communityID, userID string, n int64, meta Meta) (*models.CasinoProfile, error) {
	if n == 0 {
		return nil, newBusinessError(ReasonInvalidAmount, "credit delta must not be zero")
	}

	var profile *models.CasinoProfile
	var record *models.EconomyTransaction
	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		profile, record, err = service.grantDrawCreditsInTx(ctx, tx, communityID, userID, n, meta)
		return err
	})
	if err != nil {
		return nil, storeError(err)
	}

	service.serviceLedger.publish(ctx, models.AuditKindDraw, record)
	return profile, nil
}

func (service *ServiceDraw) grantDrawCreditsInTx(ctx context.Context, tx bun.IDB, communityID, userID string, n int64, meta Meta) (*models.CasinoProfile, *models.EconomyTransaction, error) {
	now := service.now()
	if err := datastore.EnsureCasinoProfile(ctx, tx, communityID, userID, now); err != nil {
		return nil, nil, err
	}

	profile, err := datastore.LockCasinoProfile(ctx, tx, communityID, userID)
	if err != nil {
		return nil, nil, err
	}

	before := profile.DrawCredits
	profile.DrawCredits = clampBalance(before, n)
	profile.UpdatedAt = now
	if err := datastore.SetDrawCredits(ctx, tx, communityID, userID, profile.DrawCredits, now); err != nil {
		return nil, nil, err
	}

	if meta.Source == "" {
		meta.Source = SOURCE_DRAW_CREDITS
	}
	meta.ForceLog = true
	meta = meta.withExtra("draws_before", before).
		withExtra("draws_delta", profile.DrawCredits-before).
		withExtra("draws_after", profile.DrawCredits)

	res, err := service.serviceLedger.adjustInTx(ctx, tx, communityID, userID, Delta{}, meta)
	if err != nil {
		return nil, nil, err
	}
	return profile, res.Transaction, nil
}

// AddVoiceMinutes bumps the voice counter and pays the configured XP per minute.
func (service *ServiceDraw) AddVoiceMinutes(ctx context.Context, communityID, userID string, minutes int64) (*AdjustResult, error) {
	if minutes <= 0 {
		return nil, newBusinessError(ReasonInvalidAmount, "minutes must be positive")
	}

	xpPerMinute, err := service.serviceConfig.GetIntConfig(ctx, CONFIG_VOICE_XP_PER_MINUTE, DEFAULT_VOICE_XP_PER_MINUTE)
	if err != nil {
		logger.WithError(err).Warn("voice xp config unreadable, using default")
	}

	var result *AdjustResult
	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := service.now()
		if err := datastore.EnsureCasinoProfile(ctx, tx, communityID, userID, now); err != nil {
			return err
		}
		if err := datastore.AddVoiceMinutes(ctx, tx, communityID, userID, minutes, now); err != nil {
			return err
		}

		var err error
		result, err = service.serviceLedger.adjustInTx(ctx, tx, communityID, userID, Delta{XP: minutes * xpPerMinute}, Meta{
			Source: SOURCE_VOICE,
			Extra:  map[string]interface{}{"minutes": minutes},
		})
		return err
	})
	if err != nil {
		return nil, storeError(err)
	}

	service.serviceLedger.publish(ctx, models.AuditKindTransaction, result.Transaction)
	return result, nil
}
