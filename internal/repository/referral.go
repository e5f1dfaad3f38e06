package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"rewards-ledger/internal/model"
)

const referralColumns = `id, referrer_id, referee_id, reward_earned, referee_package, is_paid, created_at`

// ReferralRepository handles referral persistence.
type ReferralRepository struct {
	db Querier
}

// NewReferralRepository creates a new ReferralRepository instance.
func NewReferralRepository(db Querier) *ReferralRepository {
	return &ReferralRepository{db: db}
}

func scanReferral(row pgx.Row) (*model.Referral, error) {
	var ref model.Referral
	err := row.Scan(
		&ref.ID,
		&ref.ReferrerID,
		&ref.RefereeID,
		&ref.RewardEarned,
		&ref.RefereePackage,
		&ref.IsPaid,
		&ref.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// Create records a referral. A referee can appear in at most one referral;
// a second insert fails with ErrDuplicate on ConstraintReferralReferee.
func (r *ReferralRepository) Create(ctx context.Context, referrerID, refereeID int64, reward decimal.Decimal, refereePackage string, paid bool) (*model.Referral, error) {
	const query = `
		INSERT INTO referrals (referrer_id, referee_id, reward_earned, referee_package, is_paid)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + referralColumns

	ref, err := scanReferral(r.db.QueryRow(ctx, query, referrerID, refereeID, reward, refereePackage, paid))
	if err != nil {
		return nil, wrapErr("create referral", err)
	}
	return ref, nil
}

// GetByReferee retrieves the referral that brought in refereeID.
func (r *ReferralRepository) GetByReferee(ctx context.Context, refereeID int64) (*model.Referral, error) {
	query := `SELECT ` + referralColumns + ` FROM referrals WHERE referee_id = $1`

	ref, err := scanReferral(r.db.QueryRow(ctx, query, refereeID))
	if err != nil {
		return nil, notFound("get referral", err, ErrReferralNotFound)
	}
	return ref, nil
}

// ListByReferrer returns a referrer's referrals, newest first.
func (r *ReferralRepository) ListByReferrer(ctx context.Context, referrerID int64) ([]*model.Referral, error) {
	query := `
		SELECT ` + referralColumns + `
		FROM referrals
		WHERE referrer_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, referrerID)
	if err != nil {
		return nil, wrapErr("list referrals", err)
	}
	defer rows.Close()

	var refs []*model.Referral
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, wrapErr("scan referral", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate referrals", err)
	}
	return refs, nil
}

// Stats aggregates a referrer's referrals.
func (r *ReferralRepository) Stats(ctx context.Context, referrerID int64) (*model.ReferralStats, error) {
	const query = `
		SELECT
			COUNT(*),
			COALESCE(SUM(reward_earned) FILTER (WHERE is_paid), 0),
			COALESCE(SUM(reward_earned) FILTER (WHERE NOT is_paid), 0)
		FROM referrals
		WHERE referrer_id = $1
	`

	var s model.ReferralStats
	if err := r.db.QueryRow(ctx, query, referrerID).Scan(&s.TotalReferrals, &s.TotalEarned, &s.PendingEarnings); err != nil {
		return nil, wrapErr("get referral stats", err)
	}
	return &s, nil
}
