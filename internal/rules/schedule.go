package rules

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"rewards-ledger/internal/config"
)

// Schedule holds the fixed reward tables.
type Schedule struct {
	DefaultDailyLogin    decimal.Decimal
	DefaultReferralBonus decimal.Decimal
	TierReferralBonus    map[string]decimal.Decimal
	GameMultipliers      map[string]decimal.Decimal
	FactorMin            float64
	FactorMax            float64
	ContentEarnings      map[string]decimal.Decimal
	DefaultContent       decimal.Decimal
}

// DefaultSchedule returns the built-in reward tables.
func DefaultSchedule() Schedule {
	return Schedule{
		DefaultDailyLogin:    decimal.NewFromInt(500),
		DefaultReferralBonus: decimal.NewFromInt(2000),
		TierReferralBonus: map[string]decimal.Decimal{
			"pro":    decimal.NewFromInt(4000),
			"silver": decimal.NewFromInt(3000),
		},
		GameMultipliers: map[string]decimal.Decimal{
			"pro":    decimal.RequireFromString("1.5"),
			"silver": decimal.RequireFromString("1.2"),
		},
		FactorMin: 0.8,
		FactorMax: 1.5,
		ContentEarnings: map[string]decimal.Decimal{
			"tiktok":    decimal.NewFromInt(500),
			"instagram": decimal.NewFromInt(400),
			"facebook":  decimal.NewFromInt(300),
			"twitter":   decimal.NewFromInt(350),
		},
		DefaultContent: decimal.NewFromInt(200),
	}
}

// ScheduleFromConfig parses the configured reward tables.
func ScheduleFromConfig(cfg config.RewardsConfig) (Schedule, error) {
	s := Schedule{
		FactorMin: cfg.GameFactorMin,
		FactorMax: cfg.GameFactorMax,
	}

	var err error
	if s.DefaultDailyLogin, err = decimal.NewFromString(cfg.DefaultDailyLogin); err != nil {
		return Schedule{}, fmt.Errorf("invalid default_daily_login: %w", err)
	}
	if s.DefaultReferralBonus, err = decimal.NewFromString(cfg.DefaultReferralBonus); err != nil {
		return Schedule{}, fmt.Errorf("invalid default_referral_bonus: %w", err)
	}
	if s.DefaultContent, err = decimal.NewFromString(cfg.DefaultContent); err != nil {
		return Schedule{}, fmt.Errorf("invalid default_content: %w", err)
	}
	if s.TierReferralBonus, err = ParseAmounts(cfg.TierReferralBonus); err != nil {
		return Schedule{}, fmt.Errorf("invalid tier_referral_bonus: %w", err)
	}
	if s.GameMultipliers, err = ParseAmounts(cfg.GameMultipliers); err != nil {
		return Schedule{}, fmt.Errorf("invalid game_multipliers: %w", err)
	}
	if s.ContentEarnings, err = ParseAmounts(cfg.ContentEarnings); err != nil {
		return Schedule{}, fmt.Errorf("invalid content_earnings: %w", err)
	}
	return s, nil
}

// ParseAmounts parses a string-valued table into decimals. Keys are lowercased.
func ParseAmounts(raw map[string]string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(raw))
	for k, v := range raw {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[strings.ToLower(k)] = d
	}
	return out, nil
}
