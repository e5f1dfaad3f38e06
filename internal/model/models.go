// Package model defines the persisted entities of the rewards ledger.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a user together with their wallet. One row per user.
type Account struct {
	ID             int64                `db:"id" json:"id"`
	Username       string               `db:"username" json:"username"`
	Email          string               `db:"email" json:"email"`
	PasswordHash   string               `db:"password_hash" json:"-"`
	PhoneNumber    string               `db:"phone_number" json:"phone_number"`
	PackageID      *int64               `db:"package_id" json:"package_id"`
	ReferralCode   string               `db:"referral_code" json:"referral_code"`
	ReferredBy     *int64               `db:"referred_by" json:"referred_by"`
	WalletBalance  decimal.Decimal      `db:"wallet_balance" json:"wallet_balance"`
	TotalEarnings  decimal.Decimal      `db:"total_earnings" json:"total_earnings"`
	LastDailyLogin *time.Time           `db:"last_daily_login" json:"last_daily_login"`
	LoginStreak    int                  `db:"login_streak" json:"login_streak"`
	LastDailyGame  map[string]time.Time `db:"last_daily_game" json:"last_daily_game"`
	CreatedAt      time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `db:"updated_at" json:"updated_at"`
}

// Package is a purchasable tier. Created by administrators only.
type Package struct {
	ID                 int64           `db:"id" json:"id"`
	Name               string          `db:"name" json:"name"`
	Type               string          `db:"package_type" json:"package_type"`
	Price              decimal.Decimal `db:"price" json:"price"`
	Description        string          `db:"description" json:"description"`
	Features           []string        `db:"features" json:"features"`
	ReferralBonus      decimal.Decimal `db:"referral_bonus" json:"referral_bonus"`
	DailyLoginBonus    decimal.Decimal `db:"daily_login_bonus" json:"daily_login_bonus"`
	DailyGameBonus     decimal.Decimal `db:"daily_game_bonus" json:"daily_game_bonus"`
	WithdrawalPriority int             `db:"withdrawal_priority" json:"withdrawal_priority"`
}

// Coupon is a single-use right to sign up with a package.
type Coupon struct {
	ID        int64           `db:"id" json:"id"`
	Code      string          `db:"code" json:"code"`
	PackageID int64           `db:"package_id" json:"package_id"`
	PricePaid decimal.Decimal `db:"price_paid" json:"price_paid"`
	UsedBy    *int64          `db:"used_by" json:"used_by"`
	UsedAt    *time.Time      `db:"used_at" json:"used_at"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// IsUsed reports whether the coupon has been redeemed.
func (c *Coupon) IsUsed() bool {
	return c.UsedBy != nil
}

// Transaction is an immutable ledger entry. Positive amounts are credits.
type Transaction struct {
	ID           int64           `db:"id" json:"id"`
	AccountID    int64           `db:"account_id" json:"account_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Category     string          `db:"category" json:"category"`
	Description  string          `db:"description" json:"description"`
	RefID        string          `db:"ref_id" json:"ref_id"`
	BalanceAfter decimal.Decimal `db:"balance_after" json:"balance_after"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// ContentSubmission is a user-posted video awaiting review.
type ContentSubmission struct {
	ID          int64           `db:"id" json:"id"`
	AccountID   int64           `db:"account_id" json:"account_id"`
	Platform    string          `db:"platform" json:"platform"`
	VideoURL    string          `db:"video_url" json:"video_url"`
	Description string          `db:"description" json:"description"`
	Status      string          `db:"status" json:"status"`
	Earnings    decimal.Decimal `db:"earnings" json:"earnings"`
	ReviewNotes string          `db:"review_notes" json:"review_notes"`
	SubmittedAt time.Time       `db:"submitted_at" json:"submitted_at"`
	ReviewedAt  *time.Time      `db:"reviewed_at" json:"reviewed_at"`
	PaidAt      *time.Time      `db:"paid_at" json:"paid_at"`
}

// Referral links a referrer to the account they invited.
type Referral struct {
	ID             int64           `db:"id" json:"id"`
	ReferrerID     int64           `db:"referrer_id" json:"referrer_id"`
	RefereeID      int64           `db:"referee_id" json:"referee_id"`
	RewardEarned   decimal.Decimal `db:"reward_earned" json:"reward_earned"`
	RefereePackage string          `db:"referee_package" json:"referee_package"`
	IsPaid         bool            `db:"is_paid" json:"is_paid"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// ReferralStats aggregates a referrer's referrals.
type ReferralStats struct {
	TotalReferrals  int64           `db:"total_referrals" json:"total_referrals"`
	TotalEarned     decimal.Decimal `db:"total_earned" json:"total_earned"`
	PendingEarnings decimal.Decimal `db:"pending_earnings" json:"pending_earnings"`
}

// GameParticipation records one reward claim per account, game type and day.
type GameParticipation struct {
	ID           int64           `db:"id" json:"id"`
	AccountID    int64           `db:"account_id" json:"account_id"`
	GameType     string          `db:"game_type" json:"game_type"`
	PlayDate     time.Time       `db:"play_date" json:"play_date"`
	RewardEarned decimal.Decimal `db:"reward_earned" json:"reward_earned"`
	GameData     map[string]any  `db:"game_data" json:"game_data"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// BankDetails is the payout destination of a withdrawal.
type BankDetails struct {
	BankName      string `db:"bank_name" json:"bank_name"`
	AccountNumber string `db:"account_number" json:"account_number"`
	AccountName   string `db:"account_name" json:"account_name"`
}

// WithdrawalRequest is a request to pay out wallet balance.
// Priority is derived from the account's package at read time.
type WithdrawalRequest struct {
	ID            int64           `db:"id" json:"id"`
	AccountID     int64           `db:"account_id" json:"account_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Bank          BankDetails     `json:"bank"`
	Status        string          `db:"status" json:"status"`
	FailureReason string          `db:"failure_reason" json:"failure_reason"`
	DebitRefID    string          `db:"debit_ref_id" json:"debit_ref_id"`
	Priority      int             `db:"priority" json:"priority"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt   *time.Time      `db:"processed_at" json:"processed_at"`
}

// EarningsBreakdown is the sum of credits per category for one account.
type EarningsBreakdown map[string]decimal.Decimal

// Transaction categories.
const (
	CategoryContent         = "content"          // Approved content paid out
	CategoryReferral        = "referral"         // Referral bonus to the referrer
	CategoryGame            = "game"             // Mini-game reward
	CategoryDailyLogin      = "daily_login"      // Daily login bonus
	CategoryPayout          = "payout"           // Withdrawal debit, or its reversal
	CategoryPackagePurchase = "package_purchase" // Package purchase credit
)

// EarningCategories are credit categories that count towards total earnings.
func EarningCategories() []string {
	return []string{CategoryContent, CategoryReferral, CategoryGame, CategoryDailyLogin, CategoryPackagePurchase}
}

// IsEarningCategory reports whether a credit in category raises total earnings.
func IsEarningCategory(category string) bool {
	for _, c := range EarningCategories() {
		if c == category {
			return true
		}
	}
	return false
}

// IsKnownCategory reports whether category is a valid transaction category.
func IsKnownCategory(category string) bool {
	return category == CategoryPayout || IsEarningCategory(category)
}

// Content submission statuses.
const (
	SubmissionPending  = "pending"
	SubmissionApproved = "approved"
	SubmissionPaid     = "paid"
	SubmissionRejected = "rejected"
)

// Withdrawal statuses.
const (
	WithdrawalPending    = "pending"
	WithdrawalProcessing = "processing"
	WithdrawalCompleted  = "completed"
	WithdrawalFailed     = "failed"
)

// GameTypeDailyLogin tags the audit participation written by a daily login claim.
const GameTypeDailyLogin = "daily_login"
