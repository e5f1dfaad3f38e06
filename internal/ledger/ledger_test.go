package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewards-ledger/internal/apperr"
	"rewards-ledger/internal/model"
	"rewards-ledger/internal/repository"
	"rewards-ledger/internal/testutil"
)

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate(Entry{Amount: decimal.Zero, Category: model.CategoryGame}), ErrZeroAmount)
	assert.ErrorIs(t, Validate(Entry{Amount: decimal.RequireFromString("0.001"), Category: model.CategoryGame}), ErrZeroAmount)
	assert.ErrorIs(t, Validate(Entry{Amount: decimal.NewFromInt(1), Category: "bonus"}), ErrUnknownCategory)
	assert.ErrorIs(t, Validate(Entry{Amount: decimal.NewFromInt(-1), Category: model.CategoryGame}), ErrDebitNotAllowed)
	assert.NoError(t, Validate(Entry{Amount: decimal.NewFromInt(-1), Category: model.CategoryPayout}))
}

func TestNextReversalRestoresWalletOnly(t *testing.T) {
	cur := Balances{Wallet: decimal.NewFromInt(0), Total: decimal.NewFromInt(1000)}
	next, err := Next(cur, Entry{Amount: decimal.NewFromInt(1000), Category: model.CategoryPayout})
	require.NoError(t, err)
	assert.Equal(t, "1000", next.Wallet.String())
	assert.Equal(t, "1000", next.Total.String())
}

func TestNextInsufficientBalance(t *testing.T) {
	cur := Balances{Wallet: decimal.NewFromInt(500), Total: decimal.NewFromInt(500)}
	_, err := Next(cur, Entry{Amount: decimal.NewFromInt(-1000), Category: model.CategoryPayout})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, apperr.InsufficientBalance, apperr.KindOf(err))
}

func TestApplyPersistsBalanceAndTransaction(t *testing.T) {
	pool, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	store := repository.NewStore(pool, 0, 2)
	l := New(store, nil)
	acc, err := store.Accounts.Create(ctx, repository.NewAccount{
		Username: "alice", Email: "alice@example.com", PasswordHash: "x", ReferralCode: "REFA",
	})
	require.NoError(t, err)

	tx, err := l.Apply(ctx, Entry{AccountID: acc.ID, Amount: decimal.NewFromInt(1500), Category: model.CategoryContent, Description: "TikTok video"})
	require.NoError(t, err)
	assert.Equal(t, "1500.00", tx.BalanceAfter.StringFixed(2))
	assert.NotEmpty(t, tx.RefID)

	_, err = l.Apply(ctx, Entry{AccountID: acc.ID, Amount: decimal.NewFromInt(-2000), Category: model.CategoryPayout})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = l.Apply(ctx, Entry{AccountID: acc.ID, Amount: decimal.NewFromInt(-1000), Category: model.CategoryPayout})
	require.NoError(t, err)

	got, err := store.Accounts.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "500.00", got.WalletBalance.StringFixed(2))
	assert.Equal(t, "1500.00", got.TotalEarnings.StringFixed(2))

	sum, err := store.Transactions.Sum(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(got.WalletBalance))

	_, err = l.Apply(ctx, Entry{AccountID: 99999, Amount: decimal.NewFromInt(1), Category: model.CategoryGame})
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}
