package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"rewards-ledger/internal/apperr"
	"rewards-ledger/internal/ledger"
	"rewards-ledger/internal/model"
	"rewards-ledger/internal/pkg/codegen"
	"rewards-ledger/internal/repository"
	"rewards-ledger/internal/rules"
)

// MinPasswordLength is the shortest password accepted at signup.
const MinPasswordLength = 8

// SignUpInput is a coupon redemption by a new user.
type SignUpInput struct {
	Username     string
	Email        string
	Password     string
	PhoneNumber  string
	CouponCode   string
	ReferralCode string // optional
}

// SignUpResult is everything a signup created.
type SignUpResult struct {
	Account  *model.Account
	Package  *model.Package
	Coupon   *model.Coupon
	Referral *model.Referral    // nil without a referral code
	Credit   *model.Transaction // the referrer's referral credit
}

// Wallet is an account's current balances.
type Wallet struct {
	Balance       decimal.Decimal
	TotalEarnings decimal.Decimal
}

// Profile is an account with its package.
type Profile struct {
	Account *model.Account
	Package *model.Package // nil without a package
}

// Reconciliation compares the stored wallet with the transaction log.
type Reconciliation struct {
	Wallet         decimal.Decimal
	TransactionSum decimal.Decimal
	Balanced       bool
}

// AccountOptions tunes AccountService.
type AccountOptions struct {
	ReferralPrefix  string
	BcryptCost      int
	ConflictRetries int
}

// AccountService handles signup and account queries.
type AccountService struct {
	store  *repository.Store
	ledger *ledger.Ledger
	rules  *rules.Engine
	codes  *codegen.Generator
	opts   AccountOptions
	retry  retrier
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(store *repository.Store, l *ledger.Ledger, engine *rules.Engine, codes *codegen.Generator, opts AccountOptions) *AccountService {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &AccountService{
		store:  store,
		ledger: l,
		rules:  engine,
		codes:  codes,
		opts:   opts,
		retry:  retrier{attempts: opts.ConflictRetries, metrics: l.Metrics()},
	}
}

func (in *SignUpInput) normalize() error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.CouponCode = strings.ToUpper(strings.TrimSpace(in.CouponCode))
	in.ReferralCode = strings.ToUpper(strings.TrimSpace(in.ReferralCode))

	switch {
	case in.Username == "":
		return apperr.Validationf("username is required")
	case in.Email == "" || !strings.Contains(in.Email, "@"):
		return apperr.Validationf("a valid email is required")
	case len(in.Password) < MinPasswordLength:
		return apperr.Validationf("password must be at least %d characters", MinPasswordLength)
	case in.CouponCode == "":
		return apperr.Validationf("coupon code is required")
	}
	return nil
}

// SignUp redeems a coupon for a new account. Account creation, coupon
// redemption and referral attribution commit together or not at all.
func (s *AccountService) SignUp(ctx context.Context, in SignUpInput) (*SignUpResult, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var res *SignUpResult
	err = s.retry.do(ctx, "signup", func() error {
		code, err := s.codes.Generate(ctx, s.opts.ReferralPrefix, s.store.Accounts.ReferralCodeExists)
		if err != nil {
			return err
		}
		res, err = s.signUp(ctx, in, string(hash), code)
		return err
	})
	if err != nil {
		return nil, err
	}

	ev := log.Info().
		Int64("account_id", res.Account.ID).
		Str("package", res.Package.Type).
		Str("coupon", res.Coupon.Code)
	if res.Referral != nil {
		ev = ev.Int64("referrer_id", res.Referral.ReferrerID).Str("referral_reward", res.Referral.RewardEarned.StringFixed(2))
	}
	ev.Msg("Account signed up")
	return res, nil
}

func (s *AccountService) signUp(ctx context.Context, in SignUpInput, hash, referralCode string) (*SignUpResult, error) {
	res := &SignUpResult{}
	err := s.store.RunInTx(ctx, func(tx *repository.Tx) error {
		coupon, err := tx.Coupons.GetByCodeForUpdate(ctx, in.CouponCode)
		if err != nil {
			return err
		}
		if coupon.IsUsed() {
			return ErrCouponAlreadyUsed
		}

		pkg, err := tx.Packages.GetByID(ctx, coupon.PackageID)
		if err != nil {
			return err
		}

		var referrer *model.Account
		if in.ReferralCode != "" {
			referrer, err = tx.Accounts.GetByReferralCode(ctx, in.ReferralCode)
			if errors.Is(err, repository.ErrAccountNotFound) {
				return ErrInvalidReferralCode
			}
			if err != nil {
				return err
			}
		}

		newAcc := repository.NewAccount{
			Username:     in.Username,
			Email:        in.Email,
			PasswordHash: hash,
			PhoneNumber:  in.PhoneNumber,
			PackageID:    &pkg.ID,
			ReferralCode: referralCode,
		}
		if referrer != nil {
			newAcc.ReferredBy = &referrer.ID
		}
		acc, err := tx.Accounts.Create(ctx, newAcc)
		switch {
		case repository.IsUniqueViolation(err, repository.ConstraintAccountUsername):
			return ErrUsernameTaken
		case repository.IsUniqueViolation(err, repository.ConstraintAccountEmail):
			return ErrEmailTaken
		case repository.IsUniqueViolation(err, repository.ConstraintAccountReferral):
			// Lost a race for the generated code; retry with a fresh one.
			return apperr.ErrConcurrencyConflict.Wrap(err)
		case err != nil:
			return err
		}

		coupon, err = tx.Coupons.MarkUsed(ctx, coupon.ID, acc.ID)
		if err != nil {
			return err
		}

		res.Account, res.Package, res.Coupon = acc, pkg, coupon
		if referrer == nil {
			return nil
		}

		bonus := s.rules.ReferralBonus(pkg).Round(2)
		res.Referral, err = tx.Referrals.Create(ctx, referrer.ID, acc.ID, bonus, pkg.Type, true)
		if err != nil {
			return err
		}
		res.Credit, err = s.ledger.ApplyDelta(ctx, tx, ledger.Entry{
			AccountID:   referrer.ID,
			Amount:      bonus,
			Category:    model.CategoryReferral,
			Description: fmt.Sprintf("Referral bonus for %s (%s package)", acc.Username, pkg.Name),
			RefID:       refID("referral", fmt.Sprint(acc.ID)),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Wallet returns the account's balances.
func (s *AccountService) Wallet(ctx context.Context, accountID int64) (*Wallet, error) {
	acc, err := s.store.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &Wallet{Balance: acc.WalletBalance, TotalEarnings: acc.TotalEarnings}, nil
}

// History returns the account's transactions, most recent first.
func (s *AccountService) History(ctx context.Context, accountID int64, limit, offset int) ([]*model.Transaction, error) {
	if offset < 0 {
		return nil, apperr.Validationf("offset must not be negative")
	}
	if _, err := s.store.Accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.store.Transactions.GetByAccountID(ctx, accountID, pageSize(limit), offset)
}

// Profile returns the account with its package.
func (s *AccountService) Profile(ctx context.Context, accountID int64) (*Profile, error) {
	acc, err := s.store.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	p := &Profile{Account: acc}
	if acc.PackageID != nil {
		if p.Package, err = s.store.Packages.GetByID(ctx, *acc.PackageID); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// EarningsBreakdown returns credits per earning category. Every earning
// category is present, zero when the account never earned in it.
func (s *AccountService) EarningsBreakdown(ctx context.Context, accountID int64) (model.EarningsBreakdown, error) {
	if _, err := s.store.Accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	sums, err := s.store.Transactions.SumCredits(ctx, accountID)
	if err != nil {
		return nil, err
	}

	out := make(model.EarningsBreakdown, len(model.EarningCategories()))
	for _, c := range model.EarningCategories() {
		out[c] = sums[c].Round(2)
	}
	return out, nil
}

// AssignPackage replaces an account's package. Admin only.
func (s *AccountService) AssignPackage(ctx context.Context, accountID, packageID int64) (*Profile, error) {
	pkg, err := s.store.Packages.GetByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Accounts.SetPackage(ctx, accountID, pkg.ID); err != nil {
		return nil, err
	}

	log.Info().Int64("account_id", accountID).Str("package", pkg.Type).Msg("Package assigned")
	return s.Profile(ctx, accountID)
}

// Reconcile checks the wallet against the sum of the account's transactions.
func (s *AccountService) Reconcile(ctx context.Context, accountID int64) (*Reconciliation, error) {
	acc, err := s.store.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	sum, err := s.store.Transactions.Sum(ctx, accountID)
	if err != nil {
		return nil, err
	}

	r := &Reconciliation{Wallet: acc.WalletBalance, TransactionSum: sum, Balanced: acc.WalletBalance.Equal(sum)}
	if !r.Balanced {
		log.Error().
			Int64("account_id", accountID).
			Str("wallet", acc.WalletBalance.StringFixed(2)).
			Str("transactions", sum.StringFixed(2)).
			Msg("Ledger out of balance")
	}
	return r, nil
}
