package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"casino/internal/datastore"
	"casino/internal/interfaces"
	"casino/internal/models"
	"casino/internal/pkg/caching"

	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
)

type ServiceModeration struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache
	audit              interfaces.AuditSink
	now                func() time.Time
}

func NewServiceModeration(container *do.Injector) (*ServiceModeration, error) {
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

	audit, err := do.Invoke[interfaces.AuditSink](container)
	if err != nil {
		return nil, err
	}

	return &ServiceModeration{container, postgresDB, readonlyPostgresDB, cache, readonlyCache, audit, resolveClock(container)}, nil
}

func (service *ServiceModeration) Warn(ctx context.Context, communityID, userID, actorID, reason string) (*models.SanctionState, error) {
	return service.apply(ctx, communityID, userID, actorID, reason, models.SanctionKindWarn)
}

func (service *ServiceModeration) Unwarn(ctx context.Context, communityID, userID, actorID, reason string) (*models.SanctionState, error) {
	return service.apply(ctx, communityID, userID, actorID, reason, models.SanctionKindUnwarn)
}

func (service *ServiceModeration) Blacklist(ctx context.Context, communityID, userID, actorID, reason string) (*models.SanctionState, error) {
	return service.apply(ctx, communityID, userID, actorID, reason, models.SanctionKindBlacklist)
}

func (service *ServiceModeration) Unblacklist(ctx context.Context, communityID, userID, actorID, reason string) (*models.SanctionState, error) {
	return service.apply(ctx, communityID, userID, actorID, reason, models.SanctionKindUnblacklist)
}

// apply appends the event and updates the materialised state in one transaction. A sanction
// that would not change the state is refused with no_effect and leaves no event.
func (service *ServiceModeration) apply(ctx context.Context, communityID, userID, actorID, reason string, kind models.SanctionKind) (*models.SanctionState, error) {
	if actorID == "" {
		actorID = SYSTEM_ACTOR
	}

	var state *models.SanctionState
	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := service.now()
		var err error
		state, err = datastore.LockSanctionState(ctx, tx, communityID, userID, now)
		if err != nil {
			return err
		}

		switch kind {
		case models.SanctionKindWarn:
			state.Warns++
		case models.SanctionKindUnwarn:
			if state.Warns == 0 {
				return newBusinessError(ReasonNoEffect, "user has no warning")
			}
			state.Warns--
		case models.SanctionKindBlacklist:
			if state.Blacklisted {
				return newBusinessError(ReasonNoEffect, "user is already blacklisted")
			}
			state.Blacklisted = true
		case models.SanctionKindUnblacklist:
			if !state.Blacklisted {
				return newBusinessError(ReasonNoEffect, "user is not blacklisted")
			}
			state.Blacklisted = false
		}
		state.UpdatedAt = now

		err = datastore.InsertSanctionEvent(ctx, tx, &models.SanctionEvent{
			CommunityID: communityID,
			UserID:      userID,
			ActorID:     actorID,
			Kind:        kind,
			Reason:      reason,
			CreatedAt:   now,
		})
		if err != nil {
			return err
		}
		return datastore.UpdateSanctionState(ctx, tx, state)
	})
	if err != nil {
		return nil, storeError(err)
	}

	fields := logrus.Fields{"community_id": communityID, "user_id": userID, "kind": kind}
	bestEffort("blacklist cache invalidation", service.cache.Delete(ctx, DBKeyBlacklisted(communityID, userID)), fields)
	bestEffort("audit publish", service.audit.Publish(ctx, &models.AuditEvent{
		Kind:        models.AuditKindSanction,
		CommunityID: communityID,
		UserID:      userID,
		ActorID:     actorID,
		Reason:      reason,
		Fields:      map[string]string{"sanction": string(kind), "warns": formatInt(int64(state.Warns))},
		CreatedAt:   state.UpdatedAt,
	}), fields)
	return state, nil
}

func (service *ServiceModeration) GetState(ctx context.Context, communityID, userID string) (*models.SanctionState, error) {
	state, err := datastore.GetSanctionState(ctx, service.readonlyPostgresDB, communityID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.SanctionState{CommunityID: communityID, UserID: userID}, nil
	}
	if err != nil {
		return nil, storeError(err)
	}
	return state, nil
}

func (service *ServiceModeration) IsBlacklisted(ctx context.Context, communityID, userID string) (bool, error) {
	callback := func() (bool, error) {
		state, err := service.GetState(ctx, communityID, userID)
		if err != nil {
			return false, err
		}
		return state.Blacklisted, nil
	}
	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyBlacklisted(communityID, userID), CACHE_TTL_1_MIN, callback)
}

func (service *ServiceModeration) ListSanctions(ctx context.Context, communityID, userID string) ([]models.SanctionEvent, error) {
	events, err := datastore.GetSanctionEvents(ctx, service.readonlyPostgresDB, communityID, userID, SANCTION_LIST_LIMIT)
	if err != nil {
		return nil, storeError(err)
	}
	return events, nil
}
