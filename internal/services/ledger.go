package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"casino/internal/datastore"
	"casino/internal/interfaces"
	"casino/internal/models"

	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
)

type Delta struct {
	Coins int64
	XP    int64
}

// Meta describes why a balance moved. Empty Source and ActorID fall back to SOURCE_UNKNOWN
// and SYSTEM_ACTOR; an empty TraceID gets a fresh uuid.
type Meta struct {
	Source    string
	Reason    string
	ActorID   string
	CommandID string
	ChannelID string
	MessageID string
	TraceID   string
	Extra     map[string]interface{}
	ForceLog  bool
	// RequireCoins refuses the adjust with insufficient_funds unless the locked balance
	// holds at least this many coins. Wagers use it; every other caller relies on the clamp.
	RequireCoins int64
}

func (meta Meta) withExtra(key string, value interface{}) Meta {
	extra := make(map[string]interface{}, len(meta.Extra)+1)
	for k, v := range meta.Extra {
		extra[k] = v
	}
	extra[key] = value
	meta.Extra = extra
	return meta
}

type AdjustResult struct {
	Account *models.Account
	// nil when nothing moved and the call was not force-logged
	Transaction *models.EconomyTransaction
}

type TransferResult struct {
	TraceID string
	From    *models.Account
	To      *models.Account
	Debit   *models.EconomyTransaction
	Credit  *models.EconomyTransaction
}

type ReverseResult struct {
	Original *models.EconomyTransaction
	Reversal *models.EconomyTransaction
	Account  *models.Account
}

type ServiceLedger struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	audit              interfaces.AuditSink
	now                func() time.Time
}

func NewServiceLedger(container *do.Injector) (*ServiceLedger, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	audit, err := do.Invoke[interfaces.AuditSink](container)
	if err != nil {
		return nil, err
	}

	return &ServiceLedger{container, postgresDB, readonlyPostgresDB, audit, resolveClock(container)}, nil
}

func clampBalance(current, delta int64) int64 {
	if delta > 0 && current > models.MaxBalance-delta {
		return models.MaxBalance
	}
	next := current + delta
	if next < 0 {
		return 0
	}
	if next > models.MaxBalance {
		return models.MaxBalance
	}
	return next
}

func (service *ServiceLedger) EnsureAccount(ctx context.Context, communityID, userID string) error {
	return storeError(datastore.EnsureAccount(ctx, service.postgresDB, communityID, userID, service.now()))
}

func (service *ServiceLedger) GetAccount(ctx context.Context, communityID, userID string) (*models.Account, error) {
	err := datastore.EnsureAccount(ctx, service.postgresDB, communityID, userID, service.now())
	if err != nil {
		return nil, storeError(err)
	}

	account, err := datastore.GetAccount(ctx, service.postgresDB, communityID, userID)
	if err != nil {
		return nil, storeError(err)
	}
	return account, nil
}

func (service *ServiceLedger) AdjustBalance(ctx context.Context, communityID, userID string, delta Delta, meta Meta) (*AdjustResult, error) {
	var result *AdjustResult
	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		result, err = service.adjustInTx(ctx, tx, communityID, userID, delta, meta)
		return err
	})
	if err != nil {
		return nil, storeError(err)
	}

	service.publish(ctx, models.AuditKindTransaction, result.Transaction)
	return result, nil
}

// adjustInTx is the single write path for balances. The caller owns the transaction.
func (service *ServiceLedger) adjustInTx(ctx context.Context, tx bun.IDB, communityID, userID string, delta Delta, meta Meta) (*AdjustResult, error) {
	now := service.now()
	if err := datastore.EnsureAccount(ctx, tx, communityID, userID, now); err != nil {
		return nil, err
	}

	account, err := datastore.LockAccount(ctx, tx, communityID, userID)
	if err != nil {
		return nil, err
	}

	if meta.RequireCoins > 0 && account.Coins < meta.RequireCoins {
		return nil, newBusinessError(ReasonInsufficientFunds, "balance %d is below %d", account.Coins, meta.RequireCoins)
	}

	before := *account
	account.Coins = clampBalance(before.Coins, delta.Coins)
	account.XP = clampBalance(before.XP, delta.XP)
	coinsDelta := account.Coins - before.Coins
	xpDelta := account.XP - before.XP

	if coinsDelta != 0 || xpDelta != 0 {
		account.UpdatedAt = now
		if err := datastore.UpdateAccountBalance(ctx, tx, account); err != nil {
			return nil, err
		}
	}

	if coinsDelta == 0 && xpDelta == 0 && !meta.ForceLog {
		return &AdjustResult{Account: account}, nil
	}

	record := &models.EconomyTransaction{
		CommunityID: communityID,
		UserID:      userID,
		ActorID:     meta.ActorID,
		Source:      meta.Source,
		Reason:      meta.Reason,
		CommandID:   meta.CommandID,
		ChannelID:   meta.ChannelID,
		MessageID:   meta.MessageID,
		CoinsBefore: before.Coins,
		CoinsDelta:  coinsDelta,
		CoinsAfter:  account.Coins,
		XPBefore:    before.XP,
		XPDelta:     xpDelta,
		XPAfter:     account.XP,
		TraceID:     meta.TraceID,
		Metadata:    map[string]interface{}{},
		CreatedAt:   now,
	}
	if record.ActorID == "" {
		record.ActorID = SYSTEM_ACTOR
	}
	if record.Source == "" {
		record.Source = SOURCE_UNKNOWN
	}
	if record.TraceID == "" {
		record.TraceID = uuid.NewString()
	}
	for k, v := range meta.Extra {
		record.Metadata[k] = v
	}
	if coinsDelta != delta.Coins || xpDelta != delta.XP {
		record.Metadata["requested_coins_delta"] = delta.Coins
		record.Metadata["requested_xp_delta"] = delta.XP
	}

	if err := datastore.InsertEconomyTransaction(ctx, tx, record); err != nil {
		return nil, err
	}

	return &AdjustResult{Account: account, Transaction: record}, nil
}

func (service *ServiceLedger) Transfer(ctx context.Context, communityID, fromUserID, toUserID string, amount int64, meta Meta) (*TransferResult, error) {
	if amount <= 0 {
		return nil, newBusinessError(ReasonInvalidAmount, "transfer amount must be positive")
	}
	if fromUserID == toUserID {
		return nil, newBusinessError(ReasonInvalidAmount, "cannot transfer to yourself")
	}
	if meta.Source == "" {
		meta.Source = SOURCE_TRANSFER
	}
	if meta.ActorID == "" {
		meta.ActorID = fromUserID
	}
	if meta.TraceID == "" {
		meta.TraceID = uuid.NewString()
	}
	meta.ForceLog = true

	result := &TransferResult{TraceID: meta.TraceID}
	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := service.now()

		// lock both rows in a stable order so two opposite transfers cannot deadlock
		users := []string{fromUserID, toUserID}
		sort.Strings(users)
		var from *models.Account
		for _, userID := range users {
			if err := datastore.EnsureAccount(ctx, tx, communityID, userID, now); err != nil {
				return err
			}
			account, err := datastore.LockAccount(ctx, tx, communityID, userID)
			if err != nil {
				return err
			}
			if userID == fromUserID {
				from = account
			}
		}

		if from.Coins < amount {
			return newBusinessError(ReasonInsufficientFunds, "balance %d is below %d", from.Coins, amount)
		}

		debit, err := service.adjustInTx(ctx, tx, communityID, fromUserID, Delta{Coins: -amount},
			meta.withExtra("counterparty_id", toUserID).withExtra("direction", "out"))
		if err != nil {
			return err
		}

		credit, err := service.adjustInTx(ctx, tx, communityID, toUserID, Delta{Coins: amount},
			meta.withExtra("counterparty_id", fromUserID).withExtra("direction", "in"))
		if err != nil {
			return err
		}
		if credit.Transaction.CoinsDelta != amount {
			return newBusinessError(ReasonInvalidAmount, "recipient balance would exceed %d", models.MaxBalance)
		}

		result.From, result.Debit = debit.Account, debit.Transaction
		result.To, result.Credit = credit.Account, credit.Transaction
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	service.publish(ctx, models.AuditKindTransaction, result.Debit, result.Credit)
	return result, nil
}

func (service *ServiceLedger) ReverseTransaction(ctx context.Context, communityID string, txID int64, meta Meta) (*ReverseResult, error) {
	if meta.TraceID == "" {
		meta.TraceID = uuid.NewString()
	}

	var result *ReverseResult
	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		original, err := datastore.LockEconomyTransaction(ctx, tx, communityID, txID)
		if err != nil {
			return notFound(err, "transaction")
		}

		result, err = service.reverseInTx(ctx, tx, original, meta)
		return err
	})
	if err != nil {
		return nil, storeError(err)
	}

	service.publish(ctx, models.AuditKindReversal, result.Reversal)
	return result, nil
}

// ReverseTrace reverses every row of a trace that is not reverted yet, all or nothing.
func (service *ServiceLedger) ReverseTrace(ctx context.Context, communityID, traceID string, meta Meta) ([]*ReverseResult, error) {
	if meta.TraceID == "" {
		meta.TraceID = uuid.NewString()
	}

	var results []*ReverseResult
	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		records, err := datastore.GetTraceTransactions(ctx, tx, communityID, traceID)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return newBusinessError(ReasonNotFound, "no open transaction for trace %s", traceID)
		}

		for i := range records {
			original, err := datastore.LockEconomyTransaction(ctx, tx, communityID, records[i].ID)
			if err != nil {
				return err
			}

			result, err := service.reverseInTx(ctx, tx, original, meta)
			if errors.Is(err, ErrNoEffect) {
				continue
			}
			if err != nil {
				return err
			}
			results = append(results, result)
		}

		if len(results) == 0 {
			return newBusinessError(ReasonNoEffect, "trace %s moved nothing", traceID)
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	for _, result := range results {
		service.publish(ctx, models.AuditKindReversal, result.Reversal)
	}
	return results, nil
}

func (service *ServiceLedger) reverseInTx(ctx context.Context, tx bun.IDB, original *models.EconomyTransaction, meta Meta) (*ReverseResult, error) {
	if original.Reverted() {
		return nil, newBusinessError(ReasonAlreadyReverted, "transaction %d was already reverted", original.ID)
	}
	if original.CoinsDelta == 0 && original.XPDelta == 0 {
		return nil, newBusinessError(ReasonNoEffect, "transaction %d moved nothing", original.ID)
	}

	if meta.Source == "" {
		meta.Source = SOURCE_REVERSAL
	}
	if meta.Reason == "" {
		meta.Reason = "revert #" + formatInt(original.ID)
	}
	meta.ForceLog = true
	meta = meta.withExtra("reverted_tx_id", original.ID).withExtra("reverted_trace_id", original.TraceID)

	adjusted, err := service.adjustInTx(ctx, tx, original.CommunityID, original.UserID,
		Delta{Coins: -original.CoinsDelta, XP: -original.XPDelta}, meta)
	if err != nil {
		return nil, err
	}

	actor := meta.ActorID
	if actor == "" {
		actor = SYSTEM_ACTOR
	}
	revertedAt := service.now()
	marked, err := datastore.MarkEconomyTransactionReverted(ctx, tx, original.CommunityID, original.ID, revertedAt, actor, meta.Reason, adjusted.Transaction.ID)
	if err != nil {
		return nil, err
	}
	if !marked {
		return nil, newBusinessError(ReasonAlreadyReverted, "transaction %d was already reverted", original.ID)
	}

	original.RevertedAt = &revertedAt
	original.RevertedBy = &actor
	original.RevertedReason = &meta.Reason
	original.RevertedTxID = &adjusted.Transaction.ID

	return &ReverseResult{Original: original, Reversal: adjusted.Transaction, Account: adjusted.Account}, nil
}

func (service *ServiceLedger) ListTransactions(ctx context.Context, communityID string, filter datastore.TransactionFilter) ([]models.EconomyTransaction, error) {
	if filter.Limit <= 0 {
		filter.Limit = TRANSACTION_LIST_DEFAULT_LIMIT
	}
	if filter.Limit > TRANSACTION_LIST_MAX_LIMIT {
		filter.Limit = TRANSACTION_LIST_MAX_LIMIT
	}
	if filter.MinAbs < 0 {
		filter.MinAbs = -filter.MinAbs
	}

	records, err := datastore.ListEconomyTransactions(ctx, service.readonlyPostgresDB, communityID, filter)
	if err != nil {
		return nil, storeError(err)
	}
	return records, nil
}

func (service *ServiceLedger) GetTransaction(ctx context.Context, communityID string, id int64) (*models.EconomyTransaction, error) {
	record, err := datastore.GetEconomyTransaction(ctx, service.readonlyPostgresDB, communityID, id)
	if err != nil {
		return nil, storeError(notFound(err, "transaction"))
	}
	return record, nil
}

func (service *ServiceLedger) publish(ctx context.Context, kind models.AuditKind, records ...*models.EconomyTransaction) {
	for _, record := range records {
		if record == nil {
			continue
		}
		event := &models.AuditEvent{
			Kind:        kind,
			CommunityID: record.CommunityID,
			UserID:      record.UserID,
			ActorID:     record.ActorID,
			Source:      record.Source,
			Reason:      record.Reason,
			TraceID:     record.TraceID,
			CoinsDelta:  record.CoinsDelta,
			XPDelta:     record.XPDelta,
			CoinsAfter:  record.CoinsAfter,
			Fields:      map[string]string{"transaction_id": formatInt(record.ID)},
			CreatedAt:   record.CreatedAt,
		}
		bestEffort("audit publish", service.audit.Publish(ctx, event), logrus.Fields{
			"community_id": record.CommunityID,
			"trace_id":     record.TraceID,
		})
	}
}
