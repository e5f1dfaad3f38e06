package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"rewards-ledger/internal/model"
)

const accountColumns = `
	id, username, email, password_hash, phone_number, package_id, referral_code, referred_by,
	wallet_balance, total_earnings, last_daily_login, login_streak, last_daily_game, created_at, updated_at`

// NewAccount holds the fields set at signup.
type NewAccount struct {
	Username     string
	Email        string
	PasswordHash string
	PhoneNumber  string
	PackageID    *int64
	ReferralCode string
	ReferredBy   *int64
}

// AccountRepository handles account data persistence.
type AccountRepository struct {
	db Querier
}

// NewAccountRepository creates a new AccountRepository instance.
func NewAccountRepository(db Querier) *AccountRepository {
	return &AccountRepository{db: db}
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.PasswordHash,
		&a.PhoneNumber,
		&a.PackageID,
		&a.ReferralCode,
		&a.ReferredBy,
		&a.WalletBalance,
		&a.TotalEarnings,
		&a.LastDailyLogin,
		&a.LoginStreak,
		&a.LastDailyGame,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.LastDailyGame == nil {
		a.LastDailyGame = map[string]time.Time{}
	}
	return &a, nil
}

// Create inserts a new account with zero balances.
func (r *AccountRepository) Create(ctx context.Context, in NewAccount) (*model.Account, error) {
	const query = `
		INSERT INTO accounts (username, email, password_hash, phone_number, package_id, referral_code, referred_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + accountColumns

	a, err := scanAccount(r.db.QueryRow(ctx, query,
		in.Username, in.Email, in.PasswordHash, in.PhoneNumber, in.PackageID, in.ReferralCode, in.ReferredBy))
	if err != nil {
		return nil, wrapErr("create account", err)
	}
	return a, nil
}

// GetByID retrieves an account by ID.
// Returns ErrAccountNotFound if the account does not exist.
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound("get account", err, ErrAccountNotFound)
	}
	return a, nil
}

// GetForUpdate retrieves an account and locks its row until the transaction ends.
// Only meaningful on a transaction-bound repository.
func (r *AccountRepository) GetForUpdate(ctx context.Context, id int64) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	a, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound("lock account", err, ErrAccountNotFound)
	}
	return a, nil
}

// GetByReferralCode retrieves the account owning a referral code.
func (r *AccountRepository) GetByReferralCode(ctx context.Context, code string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE referral_code = $1`

	a, err := scanAccount(r.db.QueryRow(ctx, query, code))
	if err != nil {
		return nil, notFound("get account by referral code", err, ErrAccountNotFound)
	}
	return a, nil
}

// ReferralCodeExists checks if a referral code is taken.
func (r *AccountRepository) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM accounts WHERE referral_code = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, wrapErr("check referral code", err)
	}
	return exists, nil
}

// UpdateBalances sets both balances. Callers hold the row lock.
func (r *AccountRepository) UpdateBalances(ctx context.Context, id int64, wallet, total decimal.Decimal) error {
	const query = `
		UPDATE accounts
		SET wallet_balance = $2, total_earnings = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, wallet, total)
	if err != nil {
		return wrapErr("update balances", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// UpdateDailyLogin records a daily login claim.
func (r *AccountRepository) UpdateDailyLogin(ctx context.Context, id int64, at time.Time, streak int) error {
	const query = `
		UPDATE accounts
		SET last_daily_login = $2, login_streak = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, at, streak)
	if err != nil {
		return wrapErr("update daily login", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// SetLastGame records when a game type was last played.
func (r *AccountRepository) SetLastGame(ctx context.Context, id int64, gameType string, at time.Time) error {
	const query = `
		UPDATE accounts
		SET last_daily_game = jsonb_set(last_daily_game, ARRAY[$2::text], to_jsonb($3::text)), updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, gameType, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return wrapErr("update last game", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// SetPackage replaces the account's package.
func (r *AccountRepository) SetPackage(ctx context.Context, id, packageID int64) error {
	const query = `UPDATE accounts SET package_id = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, packageID)
	if err != nil {
		return wrapErr("set package", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// Exists checks if an account with the given ID exists.
func (r *AccountRepository) Exists(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, wrapErr("check account existence", err)
	}
	return exists, nil
}
