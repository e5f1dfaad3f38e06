package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"rewards-ledger/internal/model"
)

var categories = []string{
	model.CategoryContent,
	model.CategoryReferral,
	model.CategoryGame,
	model.CategoryDailyLogin,
	model.CategoryPayout,
	model.CategoryPackagePurchase,
}

func drawEntry(t *rapid.T) Entry {
	category := rapid.SampledFrom(categories).Draw(t, "category")
	cents := rapid.Int64Range(1, 500000).Draw(t, "cents")
	if category == model.CategoryPayout && rapid.Bool().Draw(t, "debit") {
		cents = -cents
	}
	return Entry{AccountID: 1, Amount: decimal.New(cents, -2), Category: category}
}

// TestReconciliationProperty checks that after any sequence of entries the
// wallet equals the sum of applied amounts, total earnings equals the sum of
// applied earning credits and never decreases, and the wallet never goes negative.
func TestReconciliationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 60).Draw(t, "entries")
		cur := Balances{Wallet: decimal.Zero, Total: decimal.Zero}
		sum := decimal.Zero
		earned := decimal.Zero

		for i := 0; i < n; i++ {
			e := drawEntry(t)
			next, err := Next(cur, e)
			if err != nil {
				overdraft := e.Amount.IsNegative() && cur.Wallet.Add(e.Amount).IsNegative()
				if !overdraft {
					t.Fatalf("unexpected rejection of %v on %v: %v", e, cur, err)
				}
				if !next.Wallet.Equal(cur.Wallet) || !next.Total.Equal(cur.Total) {
					t.Fatal("rejected entry changed balances")
				}
				continue
			}

			if next.Total.LessThan(cur.Total) {
				t.Fatalf("total earnings decreased from %s to %s", cur.Total, next.Total)
			}
			sum = sum.Add(e.Amount)
			if e.Amount.IsPositive() && model.IsEarningCategory(e.Category) {
				earned = earned.Add(e.Amount)
			}
			cur = next

			if cur.Wallet.IsNegative() {
				t.Fatalf("wallet went negative: %s", cur.Wallet)
			}
			if !cur.Wallet.Equal(sum) {
				t.Fatalf("wallet %s != sum of amounts %s", cur.Wallet, sum)
			}
			if !cur.Total.Equal(earned) {
				t.Fatalf("total %s != sum of earning credits %s", cur.Total, earned)
			}
		}
	})
}

// TestDebitBeyondWalletProperty checks an overdraft is always rejected and leaves balances unchanged.
func TestDebitBeyondWalletProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		wallet := decimal.New(rapid.Int64Range(0, 1000000).Draw(t, "wallet"), -2)
		extra := decimal.New(rapid.Int64Range(1, 1000000).Draw(t, "extra"), -2)
		cur := Balances{Wallet: wallet, Total: wallet}

		next, err := Next(cur, Entry{Amount: wallet.Add(extra).Neg(), Category: model.CategoryPayout})
		if err == nil {
			t.Fatal("overdraft accepted")
		}
		if !next.Wallet.Equal(wallet) {
			t.Fatal("balance changed on rejection")
		}
	})
}
