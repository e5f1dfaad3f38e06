package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"rewards-ledger/internal/apperr"
	"rewards-ledger/internal/model"
	"rewards-ledger/internal/pkg/lock"
)

func TestPageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, pageSize(0))
	assert.Equal(t, DefaultPageSize, pageSize(-5))
	assert.Equal(t, 7, pageSize(7))
	assert.Equal(t, MaxPageSize, pageSize(MaxPageSize+1))
}

func TestRefIDIsStable(t *testing.T) {
	assert.Equal(t, refID("submission", "1"), refID("submission", "1"))
	assert.NotEqual(t, refID("submission", "1"), refID("submission", "2"))
	assert.NotEqual(t, refID("a", "b/c"), refID("a", "bc"))
	assert.Len(t, refID("x"), 36)
}

func TestMaskAccountNumber(t *testing.T) {
	assert.Equal(t, "****7890", maskAccountNumber("1234567890"))
	assert.Equal(t, "123", maskAccountNumber("123"))
}

func TestValidateBank(t *testing.T) {
	b, err := validateBank(model.BankDetails{BankName: " GTBank ", AccountNumber: "0123456789", AccountName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "GTBank", b.BankName)

	for _, bad := range []model.BankDetails{
		{AccountNumber: "1", AccountName: "Ada"},
		{BankName: "GTBank", AccountName: "Ada"},
		{BankName: "GTBank", AccountNumber: "1"},
		{BankName: "GTBank", AccountNumber: "123456789012345678901", AccountName: "Ada"},
	} {
		_, err := validateBank(bad)
		assert.Equal(t, apperr.Validation, apperr.KindOf(err), "%+v", bad)
	}
}

func TestSignUpInputNormalize(t *testing.T) {
	in := SignUpInput{Username: " bob ", Email: " Bob@Example.com", Password: "secret123", CouponCode: " meta1234 ", ReferralCode: "refabc"}
	require.NoError(t, in.normalize())
	assert.Equal(t, "bob", in.Username)
	assert.Equal(t, "bob@example.com", in.Email)
	assert.Equal(t, "META1234", in.CouponCode)
	assert.Equal(t, "REFABC", in.ReferralCode)

	short := SignUpInput{Username: "bob", Email: "b@x.io", Password: "short", CouponCode: "META1"}
	assert.Equal(t, apperr.Validation, apperr.KindOf(short.normalize()))

	noCoupon := SignUpInput{Username: "bob", Email: "b@x.io", Password: "secret123"}
	assert.Equal(t, apperr.Validation, apperr.KindOf(noCoupon.normalize()))
}

func TestRetrierStopsOnOtherErrors(t *testing.T) {
	calls := 0
	err := retrier{attempts: 3}.do(context.Background(), "op", func() error {
		calls++
		return ErrInvalidAmount
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, 1, calls)
}

func TestRetrierRecoversFromConflict(t *testing.T) {
	calls := 0
	err := retrier{attempts: 3}.do(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return apperr.ErrConcurrencyConflict.Wrap(errors.New("lock timeout"))
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrierAttemptsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		attempts := rapid.IntRange(0, 4).Draw(t, "attempts")
		calls := 0
		err := retrier{attempts: attempts}.do(context.Background(), "op", func() error {
			calls++
			return apperr.ErrConcurrencyConflict
		})
		if !errors.Is(err, apperr.ErrConcurrencyConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
		if calls != attempts+1 {
			t.Fatalf("expected %d calls, got %d", attempts+1, calls)
		}
	})
}

func TestWithAccountLockTimeoutIsConflict(t *testing.T) {
	locks := lock.New(20 * time.Millisecond)
	require.True(t, locks.TryLock(1))
	defer locks.Unlock(1)

	err := withAccountLock(context.Background(), locks, 1, func() error { return nil })
	assert.ErrorIs(t, err, apperr.ErrConcurrencyConflict)
	assert.Equal(t, apperr.ConcurrencyConflict, apperr.KindOf(err))
}
