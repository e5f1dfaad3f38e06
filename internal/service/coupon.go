package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"rewards-ledger/internal/apperr"
	"rewards-ledger/internal/model"
	"rewards-ledger/internal/pkg/codegen"
	"rewards-ledger/internal/repository"
)

// MaxCouponBatch bounds a single Generate call.
const MaxCouponBatch = 1000

// CouponInfo is a redeemable coupon with its package.
type CouponInfo struct {
	Coupon  *model.Coupon
	Package *model.Package
}

// CouponService issues and checks coupons.
type CouponService struct {
	store  *repository.Store
	codes  *codegen.Generator
	prefix string
}

// NewCouponService creates a new CouponService instance.
func NewCouponService(store *repository.Store, codes *codegen.Generator, prefix string) *CouponService {
	return &CouponService{store: store, codes: codes, prefix: prefix}
}

// Generate creates count unredeemed coupons for a package. A zero pricePaid
// records the package price.
func (s *CouponService) Generate(ctx context.Context, packageID int64, count int, pricePaid decimal.Decimal) ([]*model.Coupon, error) {
	if count <= 0 || count > MaxCouponBatch {
		return nil, apperr.Validationf("count must be between 1 and %d", MaxCouponBatch)
	}
	if pricePaid.IsNegative() {
		return nil, apperr.Validationf("price paid must not be negative")
	}

	pkg, err := s.store.Packages.GetByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if pricePaid.IsZero() {
		pricePaid = pkg.Price
	}

	coupons := make([]*model.Coupon, 0, count)
	for len(coupons) < count {
		code, err := s.codes.Generate(ctx, s.prefix, s.store.Coupons.CodeExists)
		if err != nil {
			return nil, err
		}
		c, err := s.store.Coupons.Create(ctx, code, pkg.ID, pricePaid.Round(2))
		if repository.IsUniqueViolation(err, repository.ConstraintCouponCode) {
			continue
		}
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, c)
	}

	log.Info().Str("package", pkg.Type).Int("count", len(coupons)).Msg("Coupons generated")
	return coupons, nil
}

// Validate returns the coupon and its package if the code can still be redeemed.
func (s *CouponService) Validate(ctx context.Context, code string) (*CouponInfo, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperr.Validationf("coupon code is required")
	}

	c, err := s.store.Coupons.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if c.IsUsed() {
		return nil, ErrCouponAlreadyUsed
	}

	pkg, err := s.store.Packages.GetByID(ctx, c.PackageID)
	if err != nil {
		return nil, err
	}
	return &CouponInfo{Coupon: c, Package: pkg}, nil
}

// ListUnused returns unredeemed coupons of a package.
func (s *CouponService) ListUnused(ctx context.Context, packageID int64, limit int) ([]*model.Coupon, error) {
	return s.store.Coupons.ListUnused(ctx, packageID, pageSize(limit))
}

// Packages returns the package catalog.
func (s *CouponService) Packages(ctx context.Context) ([]*model.Package, error) {
	return s.store.Packages.List(ctx)
}
