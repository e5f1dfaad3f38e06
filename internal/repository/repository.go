// Package repository provides data access layer implementations.
// Repositories run against either the pool or an open transaction through Querier.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"rewards-ledger/internal/apperr"
)

// Querier is implemented by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Common errors for repository operations.
var (
	ErrAccountNotFound     = apperr.New(apperr.NotFound, "account_not_found", "account not found")
	ErrPackageNotFound     = apperr.New(apperr.NotFound, "package_not_found", "package not found")
	ErrCouponNotFound      = apperr.New(apperr.NotFound, "coupon_not_found", "coupon not found")
	ErrCouponAlreadyUsed   = apperr.New(apperr.AlreadyUsed, "coupon_already_used", "coupon already used")
	ErrSubmissionNotFound  = apperr.New(apperr.NotFound, "submission_not_found", "content submission not found")
	ErrWithdrawalNotFound  = apperr.New(apperr.NotFound, "withdrawal_not_found", "withdrawal request not found")
	ErrTransactionNotFound = apperr.New(apperr.NotFound, "transaction_not_found", "transaction not found")
	ErrReferralNotFound    = apperr.New(apperr.NotFound, "referral_not_found", "referral not found")
	ErrDuplicate           = apperr.New(apperr.AlreadyUsed, "duplicate", "record already exists")
)

// Constraint names referenced by callers.
const (
	ConstraintAccountUsername  = "accounts_username_key"
	ConstraintAccountEmail     = "accounts_email_key"
	ConstraintAccountReferral  = "accounts_referral_code_key"
	ConstraintCouponCode       = "coupons_code_key"
	ConstraintReferralReferee  = "referrals_once_per_referee"
	ConstraintGamePerDay       = "game_participations_once_per_day"
	ConstraintPackageType      = "packages_package_type_key"
	ConstraintWithdrawalDebit  = "withdrawal_requests_debit_ref_id_key"
	ConstraintTransactionRefID = "transactions_ref_id_key"
)

// wrapErr classifies storage errors. Unique violations become ErrDuplicate,
// lock and serialization failures become apperr.ErrConcurrencyConflict.
func wrapErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return ErrDuplicate.Withf("failed to %s: duplicate %s", op, pgErr.ConstraintName).Wrap(err)
		case pgerrcode.LockNotAvailable, pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
			return apperr.ErrConcurrencyConflict.Wrap(fmt.Errorf("failed to %s: %w", op, err))
		case pgerrcode.CheckViolation:
			return apperr.Validationf("failed to %s: constraint %s violated", op, pgErr.ConstraintName).Wrap(err)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// Constraint returns the violated constraint name carried by err, if any.
func Constraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// IsUniqueViolation reports whether err is a unique violation of constraint.
func IsUniqueViolation(err error, constraint string) bool {
	return errors.Is(err, ErrDuplicate) && Constraint(err) == constraint
}

// notFound maps pgx.ErrNoRows to sentinel and wraps anything else.
func notFound(op string, err, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return wrapErr(op, err)
}
