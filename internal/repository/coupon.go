package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"rewards-ledger/internal/model"
)

const couponColumns = `id, code, package_id, price_paid, used_by, used_at, created_at`

// CouponRepository handles coupon persistence.
type CouponRepository struct {
	db Querier
}

// NewCouponRepository creates a new CouponRepository instance.
func NewCouponRepository(db Querier) *CouponRepository {
	return &CouponRepository{db: db}
}

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.PackageID, &c.PricePaid, &c.UsedBy, &c.UsedAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts an unredeemed coupon.
func (r *CouponRepository) Create(ctx context.Context, code string, packageID int64, pricePaid decimal.Decimal) (*model.Coupon, error) {
	const query = `
		INSERT INTO coupons (code, package_id, price_paid)
		VALUES ($1, $2, $3)
		RETURNING ` + couponColumns

	c, err := scanCoupon(r.db.QueryRow(ctx, query, code, packageID, pricePaid))
	if err != nil {
		return nil, wrapErr("create coupon", err)
	}
	return c, nil
}

// GetByCode retrieves a coupon by code.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	c, err := scanCoupon(r.db.QueryRow(ctx, query, code))
	if err != nil {
		return nil, notFound("get coupon", err, ErrCouponNotFound)
	}
	return c, nil
}

// GetByCodeForUpdate retrieves a coupon and locks its row until the transaction ends.
func (r *CouponRepository) GetByCodeForUpdate(ctx context.Context, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1 FOR UPDATE`

	c, err := scanCoupon(r.db.QueryRow(ctx, query, code))
	if err != nil {
		return nil, notFound("lock coupon", err, ErrCouponNotFound)
	}
	return c, nil
}

// CodeExists checks if a coupon code is taken.
func (r *CouponRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM coupons WHERE code = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, wrapErr("check coupon code", err)
	}
	return exists, nil
}

// MarkUsed redeems a coupon. It only succeeds while the coupon is unredeemed,
// so a second redemption returns ErrCouponAlreadyUsed.
func (r *CouponRepository) MarkUsed(ctx context.Context, couponID, accountID int64) (*model.Coupon, error) {
	const query = `
		UPDATE coupons
		SET used_by = $2, used_at = NOW()
		WHERE id = $1 AND used_by IS NULL
		RETURNING ` + couponColumns

	c, err := scanCoupon(r.db.QueryRow(ctx, query, couponID, accountID))
	if err != nil {
		return nil, notFound("redeem coupon", err, ErrCouponAlreadyUsed)
	}
	return c, nil
}

// ListUnused returns unredeemed coupons for a package, newest first.
func (r *CouponRepository) ListUnused(ctx context.Context, packageID int64, limit int) ([]*model.Coupon, error) {
	query := `
		SELECT ` + couponColumns + `
		FROM coupons
		WHERE package_id = $1 AND used_by IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, packageID, limit)
	if err != nil {
		return nil, wrapErr("list coupons", err)
	}
	defer rows.Close()

	var coupons []*model.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, wrapErr("scan coupon", err)
		}
		coupons = append(coupons, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate coupons", err)
	}
	return coupons, nil
}
