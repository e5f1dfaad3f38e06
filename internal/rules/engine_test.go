package rules

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewards-ledger/internal/config"
	"rewards-ledger/internal/game"
	"rewards-ledger/internal/model"
)

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

func fixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

func newTestEngine(now time.Time, r float64) *Engine {
	return NewEngine(fixedClock(now), time.UTC, fixedSource(r), DefaultSchedule())
}

var (
	proPkg    = &model.Package{Type: "pro", DailyLoginBonus: decimal.NewFromInt(1000), ReferralBonus: decimal.NewFromInt(4000)}
	silverPkg = &model.Package{Type: "silver", ReferralBonus: decimal.NewFromInt(3000)}
	spin      = game.Daily{Key: game.TypeDailySpin, Reward: decimal.NewFromInt(500)}
)

func TestDailyLoginFreshProAccount(t *testing.T) {
	e := newTestEngine(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), 0)

	dec := e.DailyLogin(&model.Account{}, proPkg)
	assert.True(t, dec.Allowed)
	assert.Equal(t, "1000.00", dec.Amount.StringFixed(2))
	assert.Equal(t, 1, dec.Streak)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), dec.Date)
}

func TestDailyLoginFallsBackToDefault(t *testing.T) {
	e := newTestEngine(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), 0)

	assert.Equal(t, "500", e.DailyLogin(&model.Account{}, nil).Amount.String())
	assert.Equal(t, "500", e.DailyLogin(&model.Account{}, silverPkg).Amount.String())
}

func TestDailyLoginSameDayDenied(t *testing.T) {
	now := time.Date(2024, 3, 10, 22, 0, 0, 0, time.UTC)
	last := time.Date(2024, 3, 10, 0, 5, 0, 0, time.UTC)
	e := newTestEngine(now, 0)

	dec := e.DailyLogin(&model.Account{LastDailyLogin: &last, LoginStreak: 4}, proPkg)
	assert.False(t, dec.Allowed)
	assert.Equal(t, 4, dec.Streak)
	assert.True(t, dec.Amount.IsZero())
}

func TestDailyLoginStreak(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 1, 0, 0, time.UTC)
	yesterday := time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC)
	older := time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)
	e := newTestEngine(now, 0)

	dec := e.DailyLogin(&model.Account{LastDailyLogin: &yesterday, LoginStreak: 3}, nil)
	require.True(t, dec.Allowed)
	assert.Equal(t, 4, dec.Streak)

	dec = e.DailyLogin(&model.Account{LastDailyLogin: &older, LoginStreak: 3}, nil)
	require.True(t, dec.Allowed)
	assert.Equal(t, 1, dec.Streak)
}

func TestDailyLoginUsesConfiguredZone(t *testing.T) {
	lagos := time.FixedZone("WAT", 3600)
	// 23:30 UTC on the 9th is 00:30 on the 10th in WAT.
	now := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)
	last := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	e := NewEngine(fixedClock(now), lagos, fixedSource(0), DefaultSchedule())
	dec := e.DailyLogin(&model.Account{LastDailyLogin: &last, LoginStreak: 1}, nil)
	assert.True(t, dec.Allowed)
	assert.Equal(t, 2, dec.Streak)
}

func TestGameRewardMultipliers(t *testing.T) {
	e := newTestEngine(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), 0)

	// Zero draw yields the lower bound of the factor.
	assert.Equal(t, "600.00", e.GameReward(&model.Account{}, proPkg, spin).Amount.StringFixed(2))
	assert.Equal(t, "480.00", e.GameReward(&model.Account{}, silverPkg, spin).Amount.StringFixed(2))
	assert.Equal(t, "400.00", e.GameReward(&model.Account{}, nil, spin).Amount.StringFixed(2))
}

func TestGameRewardAlreadyPlayed(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	e := newTestEngine(now, 0.5)

	acc := &model.Account{LastDailyGame: map[string]time.Time{game.TypeDailySpin: now.Add(-time.Hour)}}
	assert.False(t, e.GameReward(acc, nil, spin).Allowed)

	quiz := game.Daily{Key: game.TypeQuiz, Reward: decimal.NewFromInt(200)}
	assert.True(t, e.GameReward(acc, nil, quiz).Allowed)
}

func TestContentEarnings(t *testing.T) {
	e := newTestEngine(time.Now(), 0)

	assert.Equal(t, "500", e.ContentEarnings("tiktok").String())
	assert.Equal(t, "400", e.ContentEarnings("Instagram").String())
	assert.Equal(t, "300", e.ContentEarnings("facebook").String())
	assert.Equal(t, "350", e.ContentEarnings("twitter").String())
	assert.Equal(t, "200", e.ContentEarnings("youtube").String())
}

func TestReferralBonus(t *testing.T) {
	e := newTestEngine(time.Now(), 0)

	assert.Equal(t, "3000", e.ReferralBonus(silverPkg).String())
	assert.Equal(t, "4000", e.ReferralBonus(&model.Package{Type: "pro"}).String())
	assert.Equal(t, "2000", e.ReferralBonus(&model.Package{Type: "bronze"}).String())
	assert.Equal(t, "2000", e.ReferralBonus(nil).String())
}

func TestScheduleFromConfig(t *testing.T) {
	s, err := ScheduleFromConfig(config.RewardsConfig{
		DefaultDailyLogin:    "500",
		DefaultReferralBonus: "2000",
		TierReferralBonus:    map[string]string{"PRO": "4000"},
		GameMultipliers:      map[string]string{"pro": "1.5"},
		GameFactorMin:        0.8,
		GameFactorMax:        1.5,
		ContentEarnings:      map[string]string{"tiktok": "500"},
		DefaultContent:       "200",
	})
	require.NoError(t, err)
	assert.Equal(t, "4000", s.TierReferralBonus["pro"].String())

	_, err = ScheduleFromConfig(config.RewardsConfig{DefaultDailyLogin: "x"})
	assert.Error(t, err)
}
