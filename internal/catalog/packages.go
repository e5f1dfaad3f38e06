// Package catalog provides the default package tiers seeded into a fresh database.
package catalog

import (
	"github.com/shopspring/decimal"

	"rewards-ledger/internal/model"
)

// Tier is the package_type key of a package.
type Tier string

// Package tiers.
const (
	TierPro    Tier = "pro"
	TierSilver Tier = "silver"
)

// PackageConfig holds the seed definition of a package tier.
type PackageConfig struct {
	Tier               Tier
	Name               string
	Price              decimal.Decimal
	Description        string
	Features           []string
	ReferralBonus      decimal.Decimal
	DailyLoginBonus    decimal.Decimal
	DailyGameBonus     decimal.Decimal
	WithdrawalPriority int
}

// Packages contains the default tiers keyed by package type.
var Packages = map[Tier]PackageConfig{
	TierPro: {
		Tier:        TierPro,
		Name:        "Pro Package",
		Price:       decimal.NewFromInt(10000),
		Description: "Premium package with automatic features and highest earnings",
		Features: []string{
			"Auto claim reward",
			"Earn 4,000 per referred user",
			"1,000 daily login bonus",
			"Fast withdrawal processing",
			"Priority support",
		},
		ReferralBonus:      decimal.NewFromInt(4000),
		DailyLoginBonus:    decimal.NewFromInt(1000),
		DailyGameBonus:     decimal.NewFromInt(700),
		WithdrawalPriority: 1,
	},
	TierSilver: {
		Tier:        TierSilver,
		Name:        "Silver Package",
		Price:       decimal.NewFromInt(8000),
		Description: "Standard package with manual features and good earnings",
		Features: []string{
			"Earn 3,000 per referred user",
			"700 daily login bonus",
			"Standard withdrawal processing",
		},
		ReferralBonus:      decimal.NewFromInt(3000),
		DailyLoginBonus:    decimal.NewFromInt(700),
		DailyGameBonus:     decimal.NewFromInt(700),
		WithdrawalPriority: 2,
	},
}

// GetAllPackages returns the default tiers in display order.
func GetAllPackages() []PackageConfig {
	order := []Tier{TierPro, TierSilver}

	pkgs := make([]PackageConfig, 0, len(order))
	for _, t := range order {
		if p, ok := Packages[t]; ok {
			pkgs = append(pkgs, p)
		}
	}
	return pkgs
}

// GetPackage returns the seed definition for a tier.
func GetPackage(t Tier) (PackageConfig, bool) {
	p, ok := Packages[t]
	return p, ok
}

// Model converts the seed definition into a storable package row.
func (c PackageConfig) Model() *model.Package {
	features := make([]string, len(c.Features))
	copy(features, c.Features)
	return &model.Package{
		Name:               c.Name,
		Type:               string(c.Tier),
		Price:              c.Price,
		Description:        c.Description,
		Features:           features,
		ReferralBonus:      c.ReferralBonus,
		DailyLoginBonus:    c.DailyLoginBonus,
		DailyGameBonus:     c.DailyGameBonus,
		WithdrawalPriority: c.WithdrawalPriority,
	}
}
