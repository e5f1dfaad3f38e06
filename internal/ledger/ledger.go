// Package ledger is the only writer of account balances.
// Every balance change and its transaction record are written in the same unit of work.
package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"rewards-ledger/internal/apperr"
	"rewards-ledger/internal/metrics"
	"rewards-ledger/internal/model"
	"rewards-ledger/internal/repository"
)

// Ledger errors.
var (
	ErrInsufficientBalance = apperr.New(apperr.InsufficientBalance, "insufficient_balance", "insufficient wallet balance")
	ErrZeroAmount          = apperr.New(apperr.Validation, "zero_amount", "amount must not be zero")
	ErrUnknownCategory     = apperr.New(apperr.Validation, "unknown_category", "unknown transaction category")
	ErrDebitNotAllowed     = apperr.New(apperr.Validation, "debit_not_allowed", "only payouts may debit a wallet")
)

// Entry is a requested balance change. Positive amounts are credits.
type Entry struct {
	AccountID   int64
	Amount      decimal.Decimal
	Category    string
	Description string
	RefID       string // generated when empty
}

// Balances are the two account totals the ledger maintains.
type Balances struct {
	Wallet decimal.Decimal
	Total  decimal.Decimal
}

// Validate checks an entry without looking at the account.
func Validate(e Entry) error {
	if !model.IsKnownCategory(e.Category) {
		return ErrUnknownCategory.Withf("unknown transaction category %q", e.Category)
	}
	amount := e.Amount.Round(2)
	if amount.IsZero() {
		return ErrZeroAmount
	}
	if amount.IsNegative() && e.Category != model.CategoryPayout {
		return ErrDebitNotAllowed.Withf("category %s cannot debit", e.Category)
	}
	return nil
}

// Next computes the balances after applying e to cur.
// Credits in earning categories raise both totals; a positive payout is a
// withdrawal reversal and only restores the wallet. Debits lower the wallet
// and fail with ErrInsufficientBalance if it would go negative.
func Next(cur Balances, e Entry) (Balances, error) {
	if err := Validate(e); err != nil {
		return cur, err
	}
	amount := e.Amount.Round(2)

	next := Balances{Wallet: cur.Wallet.Add(amount), Total: cur.Total}
	if amount.IsNegative() {
		if next.Wallet.IsNegative() {
			return cur, ErrInsufficientBalance.Withf("wallet balance %s is less than %s", cur.Wallet.StringFixed(2), amount.Neg().StringFixed(2))
		}
		return next, nil
	}
	if model.IsEarningCategory(e.Category) {
		next.Total = cur.Total.Add(amount)
	}
	return next, nil
}

// Ledger applies entries against the store.
type Ledger struct {
	store   *repository.Store
	metrics *metrics.Metrics
}

// New creates a Ledger. m may be nil.
func New(store *repository.Store, m *metrics.Metrics) *Ledger {
	return &Ledger{store: store, metrics: m}
}

// Metrics returns the collectors the ledger reports to, possibly nil.
func (l *Ledger) Metrics() *metrics.Metrics {
	return l.metrics
}

// ApplyDelta applies e inside tx. It locks the account row, so concurrent
// entries for one account are serialized until tx ends.
func (l *Ledger) ApplyDelta(ctx context.Context, tx *repository.Tx, e Entry) (*model.Transaction, error) {
	if err := Validate(e); err != nil {
		return nil, err
	}

	acc, err := tx.Accounts.GetForUpdate(ctx, e.AccountID)
	if err != nil {
		return nil, err
	}

	next, err := Next(Balances{Wallet: acc.WalletBalance, Total: acc.TotalEarnings}, e)
	if err != nil {
		return nil, err
	}

	if err := tx.Accounts.UpdateBalances(ctx, acc.ID, next.Wallet, next.Total); err != nil {
		return nil, err
	}

	refID := e.RefID
	if refID == "" {
		refID = uuid.NewString()
	}
	created, err := tx.Transactions.Create(ctx, &model.Transaction{
		AccountID:    acc.ID,
		Amount:       e.Amount.Round(2),
		Category:     e.Category,
		Description:  e.Description,
		RefID:        refID,
		BalanceAfter: next.Wallet,
	})
	if err != nil {
		return nil, err
	}

	tx.OnCommit(func() {
		l.metrics.LedgerEntry(created.Category, created.Amount)
		log.Debug().
			Int64("account_id", created.AccountID).
			Str("category", created.Category).
			Str("amount", created.Amount.StringFixed(2)).
			Str("balance_after", created.BalanceAfter.StringFixed(2)).
			Str("ref_id", created.RefID).
			Msg("Ledger entry committed")
	})
	return created, nil
}

// Apply applies e in its own unit of work.
func (l *Ledger) Apply(ctx context.Context, e Entry) (*model.Transaction, error) {
	var created *model.Transaction
	err := l.store.RunInTx(ctx, func(tx *repository.Tx) error {
		var err error
		created, err = l.ApplyDelta(ctx, tx, e)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
