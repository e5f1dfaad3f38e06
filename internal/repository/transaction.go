package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"rewards-ledger/internal/model"
)

const transactionColumns = `id, account_id, amount, category, description, ref_id, balance_after, created_at`

// TransactionRepository handles the append-only transaction log.
// It has no update or delete operations.
type TransactionRepository struct {
	db Querier
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(db Querier) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var tx model.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.AccountID,
		&tx.Amount,
		&tx.Category,
		&tx.Description,
		&tx.RefID,
		&tx.BalanceAfter,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Create appends a transaction record.
func (r *TransactionRepository) Create(ctx context.Context, t *model.Transaction) (*model.Transaction, error) {
	const query = `
		INSERT INTO transactions (account_id, amount, category, description, ref_id, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + transactionColumns

	created, err := scanTransaction(r.db.QueryRow(ctx, query,
		t.AccountID, t.Amount, t.Category, t.Description, t.RefID, t.BalanceAfter))
	if err != nil {
		return nil, wrapErr("create transaction", err)
	}
	return created, nil
}

// GetByRefID retrieves a transaction by its reference ID.
func (r *TransactionRepository) GetByRefID(ctx context.Context, refID string) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ref_id = $1`

	t, err := scanTransaction(r.db.QueryRow(ctx, query, refID))
	if err != nil {
		return nil, notFound("get transaction", err, ErrTransactionNotFound)
	}
	return t, nil
}

// GetByAccountID retrieves an account's transactions, newest first.
func (r *TransactionRepository) GetByAccountID(ctx context.Context, accountID int64, limit, offset int) ([]*model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, wrapErr("get transactions", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, wrapErr("scan transaction", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate transactions", err)
	}
	return transactions, nil
}

// Sum returns the sum of all transaction amounts for an account.
func (r *TransactionRepository) Sum(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE account_id = $1`

	var sum decimal.Decimal
	if err := r.db.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		return decimal.Zero, wrapErr("sum transactions", err)
	}
	return sum, nil
}

// SumCredits returns the sum of positive transactions per category for an account.
func (r *TransactionRepository) SumCredits(ctx context.Context, accountID int64) (model.EarningsBreakdown, error) {
	const query = `
		SELECT category, COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE account_id = $1 AND amount > 0
		GROUP BY category
	`

	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, wrapErr("sum credits", err)
	}
	defer rows.Close()

	out := model.EarningsBreakdown{}
	for rows.Next() {
		var (
			category string
			sum      decimal.Decimal
		)
		if err := rows.Scan(&category, &sum); err != nil {
			return nil, wrapErr("scan credit sum", err)
		}
		out[category] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate credit sums", err)
	}
	return out, nil
}
