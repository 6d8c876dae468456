package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"casino/internal/datastore"
	"casino/internal/interfaces"
	"casino/internal/models"
	"casino/internal/pkg"
	"casino/internal/pkg/caching"
	"casino/internal/pkg/locker"
	"casino/internal/pkg/logger"

	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
)

type GiveawayInput struct {
	MessageID         string           `json:"message_id"`
	CommunityID       string           `json:"community_id"`
	ChannelID         string           `json:"channel_id"`
	HostID            string           `json:"host_id"`
	Prize             string           `json:"prize"`
	RewardTotal       int64            `json:"reward_total"`
	WinnersCount      int              `json:"winners_count"`
	EntryMode         models.EntryMode `json:"entry_mode"`
	ForcedWinnerIDs   []string         `json:"forced_winner_ids"`
	RequiredRoleID    string           `json:"required_role_id"`
	MinAccountAgeDays int              `json:"min_account_age_days"`
	MinMemberAgeDays  int              `json:"min_member_age_days"`
	EndAt             time.Time        `json:"end_at"`
}

type Round struct {
	Number       int                          `json:"round"`
	Winners      []string                     `json:"winners"`
	Payouts      []models.GiveawayPayout      `json:"payouts"`
	Transactions []*models.EconomyTransaction `json:"-"`
}

// MemberInfo is what the chat platform knows about a member when they try to enter.
type MemberInfo struct {
	Roles            []string
	AccountCreatedAt time.Time
	JoinedAt         time.Time
}

type ServiceGiveaway struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache
	locker             interfaces.Locker
	announcer          interfaces.Announcer
	audit              interfaces.AuditSink

	serviceLedger *ServiceLedger

	now      func() time.Time
	randIntn func(n int) (int, error)
}

func NewServiceGiveaway(container *do.Injector) (*ServiceGiveaway, error) {
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

	lock, err := do.Invoke[interfaces.Locker](container)
	if err != nil {
		return nil, err
	}

	audit, err := do.Invoke[interfaces.AuditSink](container)
	if err != nil {
		return nil, err
	}

	serviceLedger, err := do.Invoke[*ServiceLedger](container)
	if err != nil {
		return nil, err
	}

	randIntn, err := do.InvokeNamed[func(int) (int, error)](container, "rng-intn")
	if err != nil || randIntn == nil {
		randIntn = pkg.CryptoIntn
	}

	return &ServiceGiveaway{
		container:          container,
		postgresDB:         postgresDB,
		readonlyPostgresDB: readonlyPostgresDB,
		cache:              cache,
		readonlyCache:      readonlyCache,
		locker:             lock,
		announcer:          invokeOptional[interfaces.Announcer](container),
		audit:              audit,
		serviceLedger:      serviceLedger,
		now:                resolveClock(container),
		randIntn:           randIntn,
	}, nil
}

// SplitPayout divides total into n integer shares; the first total%n winners get one extra.
func SplitPayout(total int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	base := total / int64(n)
	remainder := total % int64(n)

	shares := make([]int64, n)
	for i := range shares {
		shares[i] = base
		if int64(i) < remainder {
			shares[i]++
		}
	}
	return shares
}

// reservoirSample keeps a uniform sample of k ids from a stream of unknown length in O(k)
// memory.
func reservoirSample(k int, stream func(fn func(string) error) error, skip func(string) bool, randIntn func(int) (int, error)) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}

	reservoir := make([]string, 0, k)
	seen := 0
	err := stream(func(id string) error {
		if skip(id) {
			return nil
		}
		seen++

		if len(reservoir) < k {
			reservoir = append(reservoir, id)
			j, err := randIntn(len(reservoir))
			if err != nil {
				return err
			}
			last := len(reservoir) - 1
			reservoir[j], reservoir[last] = reservoir[last], reservoir[j]
			return nil
		}

		j, err := randIntn(seen)
		if err != nil {
			return err
		}
		if j < k {
			reservoir[j] = id
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservoir, nil
}

// CheckMemberEligibility applies the role and age requirements of a giveaway.
func CheckMemberEligibility(giveaway *models.Giveaway, member MemberInfo, now time.Time) bool {
	if giveaway.RequiredRoleID != "" {
		found := false
		for _, role := range member.Roles {
			if role == giveaway.RequiredRoleID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	day := 24 * time.Hour
	if giveaway.MinAccountAgeDays > 0 {
		if member.AccountCreatedAt.IsZero() || now.Sub(member.AccountCreatedAt) < time.Duration(giveaway.MinAccountAgeDays)*day {
			return false
		}
	}
	if giveaway.MinMemberAgeDays > 0 {
		if member.JoinedAt.IsZero() || now.Sub(member.JoinedAt) < time.Duration(giveaway.MinMemberAgeDays)*day {
			return false
		}
	}
	return true
}

func (service *ServiceGiveaway) Create(ctx context.Context, input GiveawayInput) (*models.Giveaway, error) {
	now := service.now()
	if strings.TrimSpace(input.MessageID) == "" || input.CommunityID == "" {
		return nil, newBusinessError(ReasonInvalidAmount, "message and community are required")
	}
	if input.WinnersCount < 1 || input.WinnersCount > MAX_GIVEAWAY_WINNERS {
		return nil, newBusinessError(ReasonInvalidAmount, "winners must be between 1 and %d", MAX_GIVEAWAY_WINNERS)
	}
	if input.RewardTotal < int64(input.WinnersCount) {
		return nil, newBusinessError(ReasonInvalidAmount, "reward %d cannot pay %d winners", input.RewardTotal, input.WinnersCount)
	}
	if input.EntryMode == "" {
		input.EntryMode = models.EntryModeButton
	}
	if !input.EntryMode.Valid() {
		return nil, newBusinessError(ReasonInvalidAmount, "unknown entry mode %q", input.EntryMode)
	}
	if !input.EndAt.After(now) {
		return nil, newBusinessError(ReasonInvalidAmount, "end time must be in the future")
	}
	if input.MinAccountAgeDays < 0 || input.MinMemberAgeDays < 0 {
		return nil, newBusinessError(ReasonInvalidAmount, "age requirements cannot be negative")
	}

	forced := make([]string, 0, len(input.ForcedWinnerIDs))
	dedupe := make(map[string]bool, len(input.ForcedWinnerIDs))
	for _, id := range input.ForcedWinnerIDs {
		id = strings.TrimSpace(id)
		if id == "" || dedupe[id] {
			continue
		}
		dedupe[id] = true
		forced = append(forced, id)
	}
	if len(forced) > MAX_GIVEAWAY_WINNERS {
		return nil, newBusinessError(ReasonInvalidAmount, "at most %d forced winners", MAX_GIVEAWAY_WINNERS)
	}

	giveaway := &models.Giveaway{
		MessageID:         input.MessageID,
		CommunityID:       input.CommunityID,
		ChannelID:         input.ChannelID,
		HostID:            input.HostID,
		Prize:             input.Prize,
		RewardTotal:       input.RewardTotal,
		WinnersCount:      input.WinnersCount,
		EntryMode:         input.EntryMode,
		ForcedWinnerIDs:   forced,
		RequiredRoleID:    input.RequiredRoleID,
		MinAccountAgeDays: input.MinAccountAgeDays,
		MinMemberAgeDays:  input.MinMemberAgeDays,
		Status:            models.GiveawayStatusActive,
		EndAt:             input.EndAt.Unix(),
		CreatedAt:         now,
	}
	if err := datastore.InsertGiveaway(ctx, service.postgresDB, giveaway); err != nil {
		return nil, storeError(err)
	}

	service.publish(ctx, giveaway, -1, nil, logrus.Fields{"giveaway_id": giveaway.MessageID, "community_id": giveaway.CommunityID})
	return giveaway, nil
}

func (service *ServiceGiveaway) Get(ctx context.Context, messageID string) (*models.Giveaway, error) {
	callback := func() (*models.Giveaway, error) {
		return datastore.GetGiveaway(ctx, service.readonlyPostgresDB, messageID)
	}

	giveaway, err := caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyGiveaway(messageID), CACHE_TTL_15_SECONDS, callback)
	if err != nil {
		return nil, storeError(notFound(err, "giveaway"))
	}
	return giveaway, nil
}

func (service *ServiceGiveaway) ListActive(ctx context.Context, communityID string) ([]models.Giveaway, error) {
	giveaways, err := datastore.GetActiveGiveaways(ctx, service.readonlyPostgresDB, communityID)
	if err != nil {
		return nil, storeError(err)
	}
	return giveaways, nil
}

func (service *ServiceGiveaway) GetWinners(ctx context.Context, messageID string) ([]models.GiveawayWinner, error) {
	winners, err := datastore.GetGiveawayWinners(ctx, service.readonlyPostgresDB, messageID)
	if err != nil {
		return nil, storeError(err)
	}
	return winners, nil
}

func (service *ServiceGiveaway) GetPayouts(ctx context.Context, messageID string) ([]models.GiveawayPayout, error) {
	payouts, err := datastore.GetGiveawayPayouts(ctx, service.readonlyPostgresDB, messageID)
	if err != nil {
		return nil, storeError(err)
	}
	return payouts, nil
}

// ListDue returns active giveaways whose end time has passed, oldest first.
func (service *ServiceGiveaway) ListDue(ctx context.Context, now time.Time) ([]models.Giveaway, error) {
	giveaways, err := datastore.GetDueGiveaways(ctx, service.postgresDB, now, DUE_GIVEAWAYS_BATCH)
	if err != nil {
		return nil, storeError(err)
	}
	return giveaways, nil
}

func (service *ServiceGiveaway) checkJoinable(giveaway *models.Giveaway) error {
	if giveaway.Status != models.GiveawayStatusActive {
		return newBusinessError(ReasonGiveawayNotActive, "giveaway %s is %s", giveaway.MessageID, giveaway.Status)
	}
	if giveaway.Expired(service.now()) {
		return newBusinessError(ReasonGiveawayExpired, "giveaway %s has expired", giveaway.MessageID)
	}
	return nil
}

// Join records an entry. It reports false when the user had already joined.
func (service *ServiceGiveaway) Join(ctx context.Context, messageID, userID string, check interfaces.EligibilityChecker) (bool, error) {
	giveaway, err := service.Get(ctx, messageID)
	if err != nil {
		return false, err
	}
	if err := service.checkJoinable(giveaway); err != nil {
		return false, err
	}

	if check != nil {
		ok, err := check(ctx, giveaway, userID)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, newBusinessError(ReasonNotEligible, "requirements of giveaway %s are not met", messageID)
		}
	}

	var joined bool
	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		giveaway, err := datastore.LockGiveaway(ctx, tx, messageID)
		if err != nil {
			return notFound(err, "giveaway")
		}
		if err := service.checkJoinable(giveaway); err != nil {
			return err
		}

		joined, err = datastore.InsertGiveawayEntry(ctx, tx, &models.GiveawayEntry{
			MessageID: messageID,
			UserID:    userID,
			CreatedAt: service.now(),
		})
		return err
	})
	if err != nil {
		return false, storeError(err)
	}
	return joined, nil
}

// Leave removes an entry. It reports false when the user was not entered.
func (service *ServiceGiveaway) Leave(ctx context.Context, messageID, userID string) (bool, error) {
	var left bool
	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		giveaway, err := datastore.LockGiveaway(ctx, tx, messageID)
		if err != nil {
			return notFound(err, "giveaway")
		}
		if giveaway.Status != models.GiveawayStatusActive {
			return newBusinessError(ReasonGiveawayNotActive, "giveaway %s is %s", giveaway.MessageID, giveaway.Status)
		}

		left, err = datastore.DeleteGiveawayEntry(ctx, tx, messageID, userID)
		return err
	})
	if err != nil {
		return false, storeError(err)
	}
	return left, nil
}

// Toggle joins when the user is not entered and leaves otherwise. It reports whether the user
// is entered afterwards.
func (service *ServiceGiveaway) Toggle(ctx context.Context, messageID, userID string, check interfaces.EligibilityChecker) (bool, error) {
	entered, err := datastore.HasGiveawayEntry(ctx, service.postgresDB, messageID, userID)
	if err != nil {
		return false, storeError(err)
	}

	if entered {
		_, err := service.Leave(ctx, messageID, userID)
		return false, err
	}

	_, err = service.Join(ctx, messageID, userID, check)
	if err != nil {
		return false, err
	}
	return true, nil
}

// DrawWinners picks min(requested, winners_count) users: forced winners first, then a uniform
// sample of the remaining entrants.
func (service *ServiceGiveaway) DrawWinners(ctx context.Context, giveaway *models.Giveaway, requested int, exclude map[string]bool) ([]string, error) {
	return service.drawWinners(ctx, service.postgresDB, giveaway, requested, exclude)
}

func (service *ServiceGiveaway) drawWinners(ctx context.Context, db bun.IDB, giveaway *models.Giveaway, requested int, exclude map[string]bool) ([]string, error) {
	k := requested
	if k > giveaway.WinnersCount {
		k = giveaway.WinnersCount
	}
	if k <= 0 {
		return nil, nil
	}

	winners := make([]string, 0, k)
	chosen := make(map[string]bool, k)
	for _, id := range giveaway.ForcedWinnerIDs {
		if len(winners) == k {
			break
		}
		if exclude[id] || chosen[id] {
			continue
		}
		chosen[id] = true
		winners = append(winners, id)
	}
	if len(winners) == k {
		return winners, nil
	}

	stream := func(fn func(string) error) error {
		return datastore.StreamGiveawayEntrants(ctx, db, giveaway.MessageID, fn)
	}
	skip := func(id string) bool {
		return exclude[id] || chosen[id]
	}
	sampled, err := reservoirSample(k-len(winners), stream, skip, service.randIntn)
	if err != nil {
		return nil, err
	}
	return append(winners, sampled...), nil
}

// PersistWinnerRound stores winners under the next round number and pays each of them.
func (service *ServiceGiveaway) PersistWinnerRound(ctx context.Context, tx bun.IDB, giveaway *models.Giveaway, winners []string, actorID string) (*Round, error) {
	maxRound, err := datastore.GetMaxGiveawayRound(ctx, tx, giveaway.MessageID)
	if err != nil {
		return nil, err
	}
	return service.PersistRound(ctx, tx, giveaway, maxRound+1, winners, actorID)
}

// PersistRound stores winners under a known round number. Payout rows that already exist are
// left untouched, so a replayed round credits nobody twice.
func (service *ServiceGiveaway) PersistRound(ctx context.Context, tx bun.IDB, giveaway *models.Giveaway, number int, winners []string, actorID string) (*Round, error) {
	now := service.now()
	round := &Round{Number: number, Winners: winners}

	rows := make([]models.GiveawayWinner, 0, len(winners))
	for _, userID := range winners {
		rows = append(rows, models.GiveawayWinner{
			MessageID: giveaway.MessageID,
			UserID:    userID,
			Round:     number,
			CreatedAt: now,
		})
	}
	if err := datastore.InsertGiveawayWinners(ctx, tx, rows); err != nil {
		return nil, err
	}

	traceID := GiveawayTraceID(giveaway.MessageID, number)
	for i, amount := range SplitPayout(giveaway.RewardTotal, len(winners)) {
		payout := models.GiveawayPayout{
			MessageID: giveaway.MessageID,
			UserID:    winners[i],
			Amount:    amount,
			Round:     number,
			CreatedAt: now,
		}
		inserted, err := datastore.InsertGiveawayPayout(ctx, tx, &payout)
		if err != nil {
			return nil, err
		}
		if !inserted {
			continue
		}

		res, err := service.serviceLedger.adjustInTx(ctx, tx, giveaway.CommunityID, winners[i], Delta{Coins: amount}, Meta{
			Source:    SOURCE_GIVEAWAY_PAYOUT,
			Reason:    giveaway.Prize,
			ActorID:   actorID,
			ChannelID: giveaway.ChannelID,
			MessageID: giveaway.MessageID,
			TraceID:   traceID,
			ForceLog:  true,
			Extra: map[string]interface{}{
				"giveaway_id": giveaway.MessageID,
				"round":       number,
			},
		})
		if err != nil {
			return nil, err
		}
		if err := datastore.SetGiveawayPayoutTransaction(ctx, tx, payout.ID, res.Transaction.ID); err != nil {
			return nil, err
		}
		payout.TransactionID = &res.Transaction.ID

		round.Payouts = append(round.Payouts, payout)
		round.Transactions = append(round.Transactions, res.Transaction)
	}
	return round, nil
}

func (service *ServiceGiveaway) lock(ctx context.Context, messageID string) (func(), error) {
	release, err := service.locker.TryLock(ctx, LockKeyGiveaway(messageID))
	if errors.Is(err, locker.ErrLocked) {
		return nil, newBusinessError(ReasonLocked, "giveaway %s is being processed", messageID)
	}
	if err != nil {
		return nil, err
	}
	return release, nil
}

// End draws round 0, pays it and closes the giveaway in one transaction.
func (service *ServiceGiveaway) End(ctx context.Context, messageID, endedBy string) (*models.Giveaway, *Round, error) {
	if endedBy == "" {
		endedBy = SYSTEM_ACTOR
	}

	release, err := service.lock(ctx, messageID)
	if err != nil {
		return nil, nil, err
	}
	// held until the round is announced so rounds are announced in order
	defer release()

	var giveaway *models.Giveaway
	var round *Round
	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		giveaway, err = datastore.LockGiveaway(ctx, tx, messageID)
		if err != nil {
			return notFound(err, "giveaway")
		}
		if giveaway.Status != models.GiveawayStatusActive {
			return newBusinessError(ReasonGiveawayNotActive, "giveaway %s is %s", messageID, giveaway.Status)
		}

		winners, err := service.drawWinners(ctx, tx, giveaway, giveaway.WinnersCount, nil)
		if err != nil {
			return err
		}

		round, err = service.PersistRound(ctx, tx, giveaway, 0, winners, endedBy)
		if err != nil {
			return err
		}

		endedAt := service.now()
		ok, err := datastore.FinishGiveaway(ctx, tx, messageID, models.GiveawayStatusEnded, endedAt, endedBy)
		if err != nil {
			return err
		}
		if !ok {
			return newBusinessError(ReasonGiveawayNotActive, "giveaway %s is no longer active", messageID)
		}
		giveaway.Status = models.GiveawayStatusEnded
		giveaway.EndedAt = &endedAt
		giveaway.EndedBy = &endedBy
		return nil
	})
	if err != nil {
		return nil, nil, storeError(err)
	}

	service.afterRound(ctx, giveaway, round)
	return giveaway, round, nil
}

// Reroll draws a new round among entrants who never won this giveaway. A requested count <= 0
// means winners_count.
func (service *ServiceGiveaway) Reroll(ctx context.Context, messageID string, requested int, by string) (*models.Giveaway, *Round, error) {
	if by == "" {
		by = SYSTEM_ACTOR
	}

	release, err := service.lock(ctx, messageID)
	if err != nil {
		return nil, nil, err
	}
	// held until the round is announced so rounds are announced in order
	defer release()

	var giveaway *models.Giveaway
	var round *Round
	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		giveaway, err = datastore.LockGiveaway(ctx, tx, messageID)
		if err != nil {
			return notFound(err, "giveaway")
		}
		if giveaway.Status != models.GiveawayStatusEnded {
			return newBusinessError(ReasonGiveawayNotActive, "only an ended giveaway can be rerolled, %s is %s", messageID, giveaway.Status)
		}

		previous, err := datastore.GetGiveawayWinners(ctx, tx, messageID)
		if err != nil {
			return err
		}
		exclude := make(map[string]bool, len(previous))
		for _, winner := range previous {
			exclude[winner.UserID] = true
		}

		if requested <= 0 {
			requested = giveaway.WinnersCount
		}
		winners, err := service.drawWinners(ctx, tx, giveaway, requested, exclude)
		if err != nil {
			return err
		}
		if len(winners) == 0 {
			return newBusinessError(ReasonDrawFailed, "no eligible entrant left in giveaway %s", messageID)
		}

		round, err = service.PersistWinnerRound(ctx, tx, giveaway, winners, by)
		return err
	})
	if err != nil {
		return nil, nil, storeError(err)
	}

	service.afterRound(ctx, giveaway, round)
	return giveaway, round, nil
}

func (service *ServiceGiveaway) Cancel(ctx context.Context, messageID, by string) (*models.Giveaway, error) {
	if by == "" {
		by = SYSTEM_ACTOR
	}

	release, err := service.lock(ctx, messageID)
	if err != nil {
		return nil, err
	}
	defer release()

	var giveaway *models.Giveaway
	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		giveaway, err = datastore.LockGiveaway(ctx, tx, messageID)
		if err != nil {
			return notFound(err, "giveaway")
		}

		cancelledAt := service.now()
		ok, err := datastore.FinishGiveaway(ctx, tx, messageID, models.GiveawayStatusCancelled, cancelledAt, by)
		if err != nil {
			return err
		}
		if !ok {
			return newBusinessError(ReasonGiveawayNotActive, "giveaway %s is %s", messageID, giveaway.Status)
		}
		giveaway.Status = models.GiveawayStatusCancelled
		giveaway.EndedAt = &cancelledAt
		giveaway.EndedBy = &by
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	service.invalidate(ctx, messageID)
	service.publish(ctx, giveaway, -1, nil, logrus.Fields{"giveaway_id": messageID, "community_id": giveaway.CommunityID})
	return giveaway, nil
}

// EndDue ends every giveaway past its end time. Giveaways held by another worker are skipped.
func (service *ServiceGiveaway) EndDue(ctx context.Context) (int, error) {
	due, err := service.ListDue(ctx, service.now())
	if err != nil {
		return 0, err
	}

	ended := 0
	for _, giveaway := range due {
		_, _, err := service.End(ctx, giveaway.MessageID, SYSTEM_ACTOR)
		if errors.Is(err, ErrLocked) || errors.Is(err, ErrGiveawayNotActive) {
			continue
		}
		if err != nil {
			logger.WithFields(logrus.Fields{"giveaway_id": giveaway.MessageID}).WithError(err).Error("end due giveaway")
			continue
		}
		ended++
	}
	return ended, nil
}

func (service *ServiceGiveaway) invalidate(ctx context.Context, messageID string) {
	bestEffort("giveaway cache invalidation", service.cache.Delete(ctx, DBKeyGiveaway(messageID)), logrus.Fields{
		"giveaway_id": messageID,
	})
}

func (service *ServiceGiveaway) afterRound(ctx context.Context, giveaway *models.Giveaway, round *Round) {
	fields := logrus.Fields{"giveaway_id": giveaway.MessageID, "community_id": giveaway.CommunityID, "round": round.Number}

	service.invalidate(ctx, giveaway.MessageID)
	service.serviceLedger.publish(ctx, models.AuditKindTransaction, round.Transactions...)
	service.publish(ctx, giveaway, round.Number, round.Winners, fields)

	if service.announcer != nil {
		bestEffort("giveaway announcement", service.announcer.AnnounceGiveaway(ctx, giveaway, round.Number, round.Payouts), fields)
	}
}

func (service *ServiceGiveaway) publish(ctx context.Context, giveaway *models.Giveaway, round int, winners []string, fields logrus.Fields) {
	event := &models.AuditEvent{
		Kind:        models.AuditKindGiveaway,
		CommunityID: giveaway.CommunityID,
		ActorID:     giveaway.HostID,
		Reason:      giveaway.Prize,
		CreatedAt:   service.now(),
		Fields: map[string]string{
			"giveaway_id":  giveaway.MessageID,
			"status":       string(giveaway.Status),
			"reward_total": strconv.FormatInt(giveaway.RewardTotal, 10),
		},
	}
	if giveaway.EndedBy != nil {
		event.ActorID = *giveaway.EndedBy
	}
	if round >= 0 {
		event.TraceID = GiveawayTraceID(giveaway.MessageID, round)
		event.Fields["round"] = strconv.Itoa(round)
		event.Fields["winners"] = strings.Join(winners, ",")
	}
	bestEffort("audit publish", service.audit.Publish(ctx, event), fields)
}
