package services

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"casino/internal/pkg/logger"

	"github.com/samber/do"
	"github.com/sirupsen/logrus"
)

// Reason identifies an expected business outcome. Callers branch on it instead of parsing
// messages.
type Reason string

const (
	ReasonInsufficientFunds   Reason = "insufficient_funds"
	ReasonNotEnoughCredits    Reason = "not_enough_credits"
	ReasonInvalidAmount       Reason = "invalid_amount"
	ReasonNotFound            Reason = "not_found"
	ReasonAlreadyReverted     Reason = "already_reverted"
	ReasonNoEffect            Reason = "no_effect"
	ReasonGiveawayNotActive   Reason = "giveaway_not_active"
	ReasonGiveawayExpired     Reason = "giveaway_expired"
	ReasonNotEligible         Reason = "not_eligible"
	ReasonLocked              Reason = "locked"
	ReasonDrawFailed          Reason = "draw_failed"
	ReasonDatabaseUnavailable Reason = "database_unavailable"
	ReasonCooldown            Reason = "cooldown"
	ReasonRateLimited         Reason = "rate_limited"
	ReasonBlacklisted         Reason = "blacklisted"
)

type BusinessError struct {
	Reason     Reason
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *BusinessError) Error() string {
	if e.Message == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// Is matches on the reason only, so errors.Is(err, ErrNotFound) holds for every not_found.
func (e *BusinessError) Is(target error) bool {
	t, ok := target.(*BusinessError)
	return ok && t.Reason == e.Reason
}

var (
	ErrInsufficientFunds   = &BusinessError{Reason: ReasonInsufficientFunds}
	ErrNotEnoughCredits    = &BusinessError{Reason: ReasonNotEnoughCredits}
	ErrInvalidAmount       = &BusinessError{Reason: ReasonInvalidAmount}
	ErrNotFound            = &BusinessError{Reason: ReasonNotFound}
	ErrAlreadyReverted     = &BusinessError{Reason: ReasonAlreadyReverted}
	ErrNoEffect            = &BusinessError{Reason: ReasonNoEffect}
	ErrGiveawayNotActive   = &BusinessError{Reason: ReasonGiveawayNotActive}
	ErrGiveawayExpired     = &BusinessError{Reason: ReasonGiveawayExpired}
	ErrNotEligible         = &BusinessError{Reason: ReasonNotEligible}
	ErrLocked              = &BusinessError{Reason: ReasonLocked}
	ErrDrawFailed          = &BusinessError{Reason: ReasonDrawFailed}
	ErrDatabaseUnavailable = &BusinessError{Reason: ReasonDatabaseUnavailable}
	ErrCooldown            = &BusinessError{Reason: ReasonCooldown}
	ErrRateLimited         = &BusinessError{Reason: ReasonRateLimited}
	ErrBlacklisted         = &BusinessError{Reason: ReasonBlacklisted}
)

func newBusinessError(reason Reason, format string, args ...interface{}) error {
	return &BusinessError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func newRetryError(reason Reason, retryAfter time.Duration) error {
	return &BusinessError{
		Reason:     reason,
		Message:    fmt.Sprintf("retry in %s", retryAfter.Round(time.Second)),
		RetryAfter: retryAfter,
	}
}

// ReasonOf reports the business reason carried by err, if any.
func ReasonOf(err error) (Reason, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Reason, true
	}
	return "", false
}

// storeError maps lost connections to database_unavailable and lets every other error
// through untouched.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return &BusinessError{Reason: ReasonDatabaseUnavailable, Message: err.Error(), Err: err}
	}
	return err
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return newBusinessError(ReasonNotFound, "%s not found", what)
	}
	return err
}

func resolveClock(container *do.Injector) func() time.Time {
	clock, err := do.InvokeNamed[func() time.Time](container, "clock")
	if err != nil || clock == nil {
		return func() time.Time { return time.Now().UTC() }
	}
	return clock
}

// bestEffort logs a failed side effect that must not undo a committed mutation.
func bestEffort(what string, err error, fields logrus.Fields) {
	if err == nil {
		return
	}
	logger.WithFields(fields).WithError(err).Warnf("%s failed", what)
}

// invokeOptional resolves a collaborator that a process may not provide, such as the chat
// transport in the admin API.
func invokeOptional[T any](container *do.Injector) T {
	v, err := do.Invoke[T](container)
	if err != nil {
		var zero T
		return zero
	}
	return v
}
