// Package service provides the ledger commands and queries called by the transport layer.
// Every command that moves money runs in one repository transaction and goes through the ledger.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"rewards-ledger/internal/apperr"
	"rewards-ledger/internal/ledger"
	"rewards-ledger/internal/metrics"
	"rewards-ledger/internal/pkg/lock"
	"rewards-ledger/internal/repository"
)

// Domain errors returned by the services.
var (
	ErrCouponNotFound      = repository.ErrCouponNotFound
	ErrCouponAlreadyUsed   = repository.ErrCouponAlreadyUsed
	ErrAccountNotFound     = repository.ErrAccountNotFound
	ErrInsufficientBalance = ledger.ErrInsufficientBalance
	ErrInvalidReferralCode = apperr.New(apperr.NotFound, "invalid_referral_code", "invalid referral code")
	ErrInvalidCredentials  = apperr.New(apperr.Authentication, "invalid_credentials", "invalid credentials")
	ErrDailyAlreadyClaimed = apperr.New(apperr.AlreadyUsed, "daily_already_claimed", "daily login bonus already claimed today")
	ErrGameAlreadyPlayed   = apperr.New(apperr.AlreadyUsed, "game_already_played", "game already played today")
	ErrUnknownGame         = apperr.New(apperr.Validation, "unknown_game", "unknown game type")
	ErrUsernameTaken       = apperr.New(apperr.AlreadyUsed, "username_taken", "username already taken")
	ErrEmailTaken          = apperr.New(apperr.AlreadyUsed, "email_taken", "email already registered")
	ErrInvalidAmount       = apperr.New(apperr.Validation, "invalid_amount", "amount must be positive")
	ErrBelowMinimum        = apperr.New(apperr.Validation, "below_minimum", "amount is below the minimum withdrawal")
	ErrNotEarningCategory  = apperr.New(apperr.Validation, "not_earning_category", "category cannot be used for rewards")
)

// Pagination bounds for list queries.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func pageSize(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// refNamespace scopes deterministic ledger reference IDs.
var refNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("rewards-ledger"))

// refID derives a stable reference ID from parts. Replaying the same command
// yields the same ID, which the transactions table rejects as a duplicate.
func refID(parts ...string) string {
	return uuid.NewSHA1(refNamespace, []byte(strings.Join(parts, "/"))).String()
}

// retrier reruns a unit of work on concurrency conflicts.
type retrier struct {
	attempts int
	metrics  *metrics.Metrics
}

func (r retrier) do(ctx context.Context, op string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, apperr.ErrConcurrencyConflict) || attempt >= r.attempts {
			return err
		}

		r.metrics.Conflict(op)
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Msg("Concurrency conflict, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 10 * time.Millisecond):
		}
	}
}

// withAccountLock runs fn holding the in-process lock for accountID.
func withAccountLock(ctx context.Context, locks *lock.AccountLock, accountID int64, fn func() error) error {
	if locks == nil {
		return fn()
	}
	err := locks.WithLock(ctx, accountID, fn)
	if errors.Is(err, lock.ErrLockTimeout) {
		return apperr.ErrConcurrencyConflict.Wrap(err)
	}
	return err
}
