// Package rules computes reward amounts and eligibility.
// Nothing here touches storage; callers apply the resulting ledger mutation.
package rules

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"rewards-ledger/internal/game"
	"rewards-ledger/internal/model"
)

// Engine evaluates reward rules against an injected clock and random source.
type Engine struct {
	Clock    Clock
	Location *time.Location
	Random   Source
	Schedule Schedule
}

// NewEngine creates an Engine. Nil arguments fall back to the system clock,
// the local zone and a clock-seeded source.
func NewEngine(clock Clock, loc *time.Location, rnd Source, schedule Schedule) *Engine {
	if clock == nil {
		clock = SystemClock
	}
	if loc == nil {
		loc = time.Local
	}
	if rnd == nil {
		rnd = NewSource(0)
	}
	return &Engine{Clock: clock, Location: loc, Random: rnd, Schedule: schedule}
}

// DailyDecision is the outcome of a daily login evaluation.
type DailyDecision struct {
	Amount  decimal.Decimal
	Allowed bool
	Streak  int
	Date    time.Time // calendar date of the claim
}

// GameDecision is the outcome of a game reward evaluation.
type GameDecision struct {
	Amount     decimal.Decimal
	Allowed    bool
	Base       decimal.Decimal // base reward after tier multiplier
	Multiplier decimal.Decimal
	Factor     float64
	Date       time.Time
}

// CivilDate returns the calendar date of t in loc as midnight UTC.
// DATE columns store exactly this value.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in the engine's zone.
func (e *Engine) Today() time.Time {
	return CivilDate(e.Clock.Now(), e.Location)
}

// claimedOn reports whether last falls on or after today.
func (e *Engine) claimedOn(last *time.Time, today time.Time) bool {
	if last == nil {
		return false
	}
	return !CivilDate(*last, e.Location).Before(today)
}

// DailyLogin evaluates the daily login bonus for an account.
// pkg is the account's package, or nil.
func (e *Engine) DailyLogin(acc *model.Account, pkg *model.Package) DailyDecision {
	today := e.Today()
	dec := DailyDecision{Date: today, Streak: 1}

	if e.claimedOn(acc.LastDailyLogin, today) {
		dec.Streak = acc.LoginStreak
		return dec
	}

	dec.Allowed = true
	if acc.LastDailyLogin != nil {
		last := CivilDate(*acc.LastDailyLogin, e.Location)
		if last.Equal(today.AddDate(0, 0, -1)) {
			dec.Streak = acc.LoginStreak + 1
		}
	}

	dec.Amount = e.Schedule.DefaultDailyLogin
	if pkg != nil && pkg.DailyLoginBonus.IsPositive() {
		dec.Amount = pkg.DailyLoginBonus
	}
	dec.Amount = dec.Amount.Round(2)
	return dec
}

// TierMultiplier returns the game multiplier for a package; 1 without one.
func (e *Engine) TierMultiplier(pkg *model.Package) decimal.Decimal {
	if pkg == nil {
		return decimal.NewFromInt(1)
	}
	if m, ok := e.Schedule.GameMultipliers[strings.ToLower(pkg.Type)]; ok {
		return m
	}
	return decimal.NewFromInt(1)
}

// GameReward evaluates a game play. The random factor is drawn only when allowed.
func (e *Engine) GameReward(acc *model.Account, pkg *model.Package, g game.Game) GameDecision {
	today := e.Today()
	dec := GameDecision{Date: today, Multiplier: e.TierMultiplier(pkg)}
	dec.Base = g.BaseReward().Mul(dec.Multiplier)

	var last *time.Time
	if t, ok := acc.LastDailyGame[g.Type()]; ok {
		last = &t
	}
	if e.claimedOn(last, today) {
		return dec
	}

	dec.Allowed = true
	dec.Factor = e.Schedule.FactorMin + e.Random.Float64()*(e.Schedule.FactorMax-e.Schedule.FactorMin)
	dec.Amount = dec.Base.Mul(decimal.NewFromFloat(dec.Factor)).Round(2)
	return dec
}

// ContentEarnings returns the fixed earnings for an approved submission on platform.
func (e *Engine) ContentEarnings(platform string) decimal.Decimal {
	if amt, ok := e.Schedule.ContentEarnings[strings.ToLower(platform)]; ok {
		return amt
	}
	return e.Schedule.DefaultContent
}

// ReferralBonus returns the referrer's reward for a referee on pkg.
func (e *Engine) ReferralBonus(pkg *model.Package) decimal.Decimal {
	if pkg == nil {
		return e.Schedule.DefaultReferralBonus
	}
	if pkg.ReferralBonus.IsPositive() {
		return pkg.ReferralBonus
	}
	if amt, ok := e.Schedule.TierReferralBonus[strings.ToLower(pkg.Type)]; ok {
		return amt
	}
	return e.Schedule.DefaultReferralBonus
}
