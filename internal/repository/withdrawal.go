package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"rewards-ledger/internal/apperr"
	"rewards-ledger/internal/model"
)

// Priority is read through the account's package so a package change reorders the queue.
const withdrawalSelect = `
	SELECT w.id, w.account_id, w.amount, w.bank_name, w.account_number, w.account_name,
		w.status, w.failure_reason, w.debit_ref_id, COALESCE(p.withdrawal_priority, $1) AS priority,
		w.created_at, w.processed_at
	FROM withdrawal_requests w
	JOIN accounts a ON a.id = w.account_id
	LEFT JOIN packages p ON p.id = a.package_id`

// WithdrawalRepository handles withdrawal request persistence.
type WithdrawalRepository struct {
	db              Querier
	defaultPriority int
}

// NewWithdrawalRepository creates a new WithdrawalRepository instance.
// defaultPriority applies to accounts without a package.
func NewWithdrawalRepository(db Querier, defaultPriority int) *WithdrawalRepository {
	return &WithdrawalRepository{db: db, defaultPriority: defaultPriority}
}

func scanWithdrawal(row pgx.Row) (*model.WithdrawalRequest, error) {
	var w model.WithdrawalRequest
	err := row.Scan(
		&w.ID,
		&w.AccountID,
		&w.Amount,
		&w.Bank.BankName,
		&w.Bank.AccountNumber,
		&w.Bank.AccountName,
		&w.Status,
		&w.FailureReason,
		&w.DebitRefID,
		&w.Priority,
		&w.CreatedAt,
		&w.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Create inserts a pending withdrawal whose amount was already debited under debitRefID.
func (r *WithdrawalRepository) Create(ctx context.Context, accountID int64, amount decimal.Decimal, bank model.BankDetails, debitRefID string) (*model.WithdrawalRequest, error) {
	const query = `
		INSERT INTO withdrawal_requests (account_id, amount, bank_name, account_number, account_name, debit_ref_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(ctx, query, accountID, amount, bank.BankName, bank.AccountNumber, bank.AccountName, debitRefID).Scan(&id)
	if err != nil {
		return nil, wrapErr("create withdrawal", err)
	}
	return r.GetByID(ctx, id)
}

// GetByID retrieves a withdrawal request by ID.
func (r *WithdrawalRepository) GetByID(ctx context.Context, id int64) (*model.WithdrawalRequest, error) {
	query := withdrawalSelect + ` WHERE w.id = $2`

	w, err := scanWithdrawal(r.db.QueryRow(ctx, query, r.defaultPriority, id))
	if err != nil {
		return nil, notFound("get withdrawal", err, ErrWithdrawalNotFound)
	}
	return w, nil
}

// Transition moves a withdrawal from one status to another. Terminal statuses
// stamp processed_at. Returns apperr.ErrInvalidTransition when the request is
// not in from.
func (r *WithdrawalRepository) Transition(ctx context.Context, id int64, from, to, failureReason string) (*model.WithdrawalRequest, error) {
	const query = `
		UPDATE withdrawal_requests
		SET status = $3,
			failure_reason = $4,
			processed_at = CASE WHEN $3 IN ('completed', 'failed') THEN NOW() ELSE processed_at END
		WHERE id = $1 AND status = $2
		RETURNING id
	`

	var updated int64
	err := r.db.QueryRow(ctx, query, id, from, to, failureReason).Scan(&updated)
	if err == nil {
		return r.GetByID(ctx, updated)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, wrapErr("update withdrawal", err)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, apperr.ErrInvalidTransition.Withf("withdrawal %d is %s, cannot become %s", id, current.Status, to)
}

// GetByAccountID returns an account's withdrawals, newest first.
func (r *WithdrawalRepository) GetByAccountID(ctx context.Context, accountID int64) ([]*model.WithdrawalRequest, error) {
	query := withdrawalSelect + `
		WHERE w.account_id = $2
		ORDER BY w.created_at DESC, w.id DESC
	`
	return r.list(ctx, query, r.defaultPriority, accountID)
}

// Queue returns pending withdrawals in service order: lower priority first, then oldest.
func (r *WithdrawalRepository) Queue(ctx context.Context, limit int) ([]*model.WithdrawalRequest, error) {
	query := withdrawalSelect + `
		WHERE w.status = 'pending'
		ORDER BY priority, w.created_at, w.id
		LIMIT $2
	`
	return r.list(ctx, query, r.defaultPriority, limit)
}

func (r *WithdrawalRepository) list(ctx context.Context, query string, args ...any) ([]*model.WithdrawalRequest, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list withdrawals", err)
	}
	defer rows.Close()

	var out []*model.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, wrapErr("scan withdrawal", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate withdrawals", err)
	}
	return out, nil
}
