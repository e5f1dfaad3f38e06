package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"rewards-ledger/internal/model"
)

const packageColumns = `
	id, name, package_type, price, description, features,
	referral_bonus, daily_login_bonus, daily_game_bonus, withdrawal_priority`

// PackageRepository handles package catalog persistence.
type PackageRepository struct {
	db Querier
}

// NewPackageRepository creates a new PackageRepository instance.
func NewPackageRepository(db Querier) *PackageRepository {
	return &PackageRepository{db: db}
}

func scanPackage(row pgx.Row) (*model.Package, error) {
	var p model.Package
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Type,
		&p.Price,
		&p.Description,
		&p.Features,
		&p.ReferralBonus,
		&p.DailyLoginBonus,
		&p.DailyGameBonus,
		&p.WithdrawalPriority,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert inserts a package or, if its package_type exists, returns the stored one unchanged.
// The second result reports whether a row was created.
func (r *PackageRepository) Upsert(ctx context.Context, p *model.Package) (*model.Package, bool, error) {
	const query = `
		INSERT INTO packages (name, package_type, price, description, features,
			referral_bonus, daily_login_bonus, daily_game_bonus, withdrawal_priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (package_type) DO NOTHING
		RETURNING ` + packageColumns

	features := p.Features
	if features == nil {
		features = []string{}
	}
	created, err := scanPackage(r.db.QueryRow(ctx, query,
		p.Name, p.Type, p.Price, p.Description, features,
		p.ReferralBonus, p.DailyLoginBonus, p.DailyGameBonus, p.WithdrawalPriority))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, wrapErr("create package", err)
	}

	existing, err := r.GetByType(ctx, p.Type)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByID retrieves a package by ID.
func (r *PackageRepository) GetByID(ctx context.Context, id int64) (*model.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE id = $1`

	p, err := scanPackage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound("get package", err, ErrPackageNotFound)
	}
	return p, nil
}

// GetByType retrieves a package by its tier key.
func (r *PackageRepository) GetByType(ctx context.Context, packageType string) (*model.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE package_type = $1`

	p, err := scanPackage(r.db.QueryRow(ctx, query, packageType))
	if err != nil {
		return nil, notFound("get package by type", err, ErrPackageNotFound)
	}
	return p, nil
}

// List returns all packages ordered by withdrawal priority.
func (r *PackageRepository) List(ctx context.Context) ([]*model.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages ORDER BY withdrawal_priority, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, wrapErr("list packages", err)
	}
	defer rows.Close()

	var pkgs []*model.Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, wrapErr("scan package", err)
		}
		pkgs = append(pkgs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate packages", err)
	}
	return pkgs, nil
}
