package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"rewards-ledger/internal/apperr"
	"rewards-ledger/internal/ledger"
	"rewards-ledger/internal/metrics"
	"rewards-ledger/internal/model"
	"rewards-ledger/internal/pkg/lock"
	"rewards-ledger/internal/repository"
)

// MaxAccountNumberLength bounds destination account numbers.
const MaxAccountNumberLength = 20

// WithdrawalOptions tunes WithdrawalService.
type WithdrawalOptions struct {
	Minimum         decimal.Decimal
	ConflictRetries int
}

// WithdrawalService runs the withdrawal workflow. The amount is reserved by a
// payout debit when the request is created and credited back if it fails.
type WithdrawalService struct {
	store   *repository.Store
	ledger  *ledger.Ledger
	locks   *lock.AccountLock
	metrics *metrics.Metrics
	minimum decimal.Decimal
	retry   retrier
}

// NewWithdrawalService creates a new WithdrawalService instance.
func NewWithdrawalService(store *repository.Store, l *ledger.Ledger, locks *lock.AccountLock, opts WithdrawalOptions) *WithdrawalService {
	return &WithdrawalService{
		store:   store,
		ledger:  l,
		locks:   locks,
		metrics: l.Metrics(),
		minimum: opts.Minimum,
		retry:   retrier{attempts: opts.ConflictRetries, metrics: l.Metrics()},
	}
}

// Minimum returns the smallest amount that can be withdrawn.
func (s *WithdrawalService) Minimum() decimal.Decimal {
	return s.minimum
}

func validateBank(b model.BankDetails) (model.BankDetails, error) {
	b.BankName = strings.TrimSpace(b.BankName)
	b.AccountNumber = strings.TrimSpace(b.AccountNumber)
	b.AccountName = strings.TrimSpace(b.AccountName)

	switch {
	case b.BankName == "":
		return b, apperr.Validationf("bank name is required")
	case b.AccountNumber == "":
		return b, apperr.Validationf("account number is required")
	case len(b.AccountNumber) > MaxAccountNumberLength:
		return b, apperr.Validationf("account number must be at most %d characters", MaxAccountNumberLength)
	case b.AccountName == "":
		return b, apperr.Validationf("account name is required")
	}
	return b, nil
}

func maskAccountNumber(n string) string {
	if len(n) <= 4 {
		return n
	}
	return "****" + n[len(n)-4:]
}

// Request creates a pending withdrawal and debits the wallet in the same unit of work.
// Checks run in order: amount, minimum, bank details, password, balance.
func (s *WithdrawalService) Request(ctx context.Context, accountID int64, amount decimal.Decimal, bank model.BankDetails, password string) (*model.WithdrawalRequest, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if amount.LessThan(s.minimum) {
		return nil, ErrBelowMinimum.Withf("minimum withdrawal is %s", s.minimum.StringFixed(2))
	}
	bank, err := validateBank(bank)
	if err != nil {
		return nil, err
	}

	acc, err := s.store.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, ErrInvalidCredentials.Wrap(err)
	}

	var w *model.WithdrawalRequest
	err = withAccountLock(ctx, s.locks, accountID, func() error {
		return s.retry.do(ctx, "request_withdrawal", func() error {
			return s.store.RunInTx(ctx, func(tx *repository.Tx) error {
				acc, err := tx.Accounts.GetForUpdate(ctx, accountID)
				if err != nil {
					return err
				}
				if acc.WalletBalance.LessThan(amount) {
					return ErrInsufficientBalance.Withf("wallet balance %s is less than %s", acc.WalletBalance.StringFixed(2), amount.StringFixed(2))
				}

				debitRef := uuid.NewString()
				if _, err := s.ledger.ApplyDelta(ctx, tx, ledger.Entry{
					AccountID:   acc.ID,
					Amount:      amount.Neg(),
					Category:    model.CategoryPayout,
					Description: fmt.Sprintf("Withdrawal to %s %s", bank.BankName, maskAccountNumber(bank.AccountNumber)),
					RefID:       debitRef,
				}); err != nil {
					return err
				}

				w, err = tx.Withdrawals.Create(ctx, acc.ID, amount, bank, debitRef)
				return err
			})
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Withdrawal(w.Status)
	log.Info().
		Int64("account_id", accountID).
		Int64("withdrawal_id", w.ID).
		Str("amount", w.Amount.StringFixed(2)).
		Int("priority", w.Priority).
		Msg("Withdrawal requested")
	return w, nil
}

// MarkProcessing moves a pending withdrawal to processing.
func (s *WithdrawalService) MarkProcessing(ctx context.Context, id int64) (*model.WithdrawalRequest, error) {
	return s.transition(ctx, id, model.WithdrawalPending, model.WithdrawalProcessing)
}

// Complete moves a processing withdrawal to completed and stamps processed_at.
func (s *WithdrawalService) Complete(ctx context.Context, id int64) (*model.WithdrawalRequest, error) {
	return s.transition(ctx, id, model.WithdrawalProcessing, model.WithdrawalCompleted)
}

func (s *WithdrawalService) transition(ctx context.Context, id int64, from, to string) (*model.WithdrawalRequest, error) {
	w, err := s.store.Withdrawals.Transition(ctx, id, from, to, "")
	if err != nil {
		return nil, err
	}

	s.metrics.Withdrawal(w.Status)
	log.Info().Int64("withdrawal_id", id).Str("status", w.Status).Msg("Withdrawal updated")
	return w, nil
}

// Fail moves a pending withdrawal to failed and credits the reserved amount
// back. The reversal restores the wallet but not total earnings.
func (s *WithdrawalService) Fail(ctx context.Context, id int64, reason string) (*model.WithdrawalRequest, *model.Transaction, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, nil, apperr.Validationf("failure reason is required")
	}

	current, err := s.store.Withdrawals.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var (
		w        *model.WithdrawalRequest
		reversal *model.Transaction
	)
	err = withAccountLock(ctx, s.locks, current.AccountID, func() error {
		return s.retry.do(ctx, "fail_withdrawal", func() error {
			return s.store.RunInTx(ctx, func(tx *repository.Tx) error {
				var err error
				w, err = tx.Withdrawals.Transition(ctx, id, model.WithdrawalPending, model.WithdrawalFailed, reason)
				if err != nil {
					return err
				}
				reversal, err = s.ledger.ApplyDelta(ctx, tx, ledger.Entry{
					AccountID:   w.AccountID,
					Amount:      w.Amount,
					Category:    model.CategoryPayout,
					Description: fmt.Sprintf("Withdrawal #%d reversed: %s", w.ID, reason),
					RefID:       refID("withdrawal-reversal", fmt.Sprint(w.ID)),
				})
				return err
			})
		})
	})
	if err != nil {
		return nil, nil, err
	}

	s.metrics.Withdrawal(w.Status)
	log.Warn().
		Int64("account_id", w.AccountID).
		Int64("withdrawal_id", id).
		Str("amount", w.Amount.StringFixed(2)).
		Str("reason", reason).
		Msg("Withdrawal failed and reversed")
	return w, reversal, nil
}

// Get returns a withdrawal request.
func (s *WithdrawalService) Get(ctx context.Context, id int64) (*model.WithdrawalRequest, error) {
	return s.store.Withdrawals.GetByID(ctx, id)
}

// List returns an account's withdrawals, newest first.
func (s *WithdrawalService) List(ctx context.Context, accountID int64) ([]*model.WithdrawalRequest, error) {
	return s.store.Withdrawals.GetByAccountID(ctx, accountID)
}

// Queue returns pending withdrawals in service order: priority, then age.
func (s *WithdrawalService) Queue(ctx context.Context, limit int) ([]*model.WithdrawalRequest, error) {
	return s.store.Withdrawals.Queue(ctx, pageSize(limit))
}
