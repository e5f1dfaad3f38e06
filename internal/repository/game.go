package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"rewards-ledger/internal/model"
)

const participationColumns = `id, account_id, game_type, play_date, reward_earned, game_data, created_at`

// GameRepository handles game participation persistence.
type GameRepository struct {
	db Querier
}

// NewGameRepository creates a new GameRepository instance.
func NewGameRepository(db Querier) *GameRepository {
	return &GameRepository{db: db}
}

func scanParticipation(row pgx.Row) (*model.GameParticipation, error) {
	var p model.GameParticipation
	err := row.Scan(
		&p.ID,
		&p.AccountID,
		&p.GameType,
		&p.PlayDate,
		&p.RewardEarned,
		&p.GameData,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create records a participation. A second record for the same account, game type
// and date fails with ErrDuplicate on ConstraintGamePerDay.
func (r *GameRepository) Create(ctx context.Context, p *model.GameParticipation) (*model.GameParticipation, error) {
	const query = `
		INSERT INTO game_participations (account_id, game_type, play_date, reward_earned, game_data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + participationColumns

	data := p.GameData
	if data == nil {
		data = map[string]any{}
	}
	created, err := scanParticipation(r.db.QueryRow(ctx, query, p.AccountID, p.GameType, p.PlayDate, p.RewardEarned, data))
	if err != nil {
		return nil, wrapErr("create game participation", err)
	}
	return created, nil
}

// PlayedOn checks if an account has a participation for gameType on date.
func (r *GameRepository) PlayedOn(ctx context.Context, accountID int64, gameType string, date time.Time) (bool, error) {
	const query = `
		SELECT EXISTS(
			SELECT 1 FROM game_participations
			WHERE account_id = $1 AND game_type = $2 AND play_date = $3
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, accountID, gameType, date).Scan(&exists); err != nil {
		return false, wrapErr("check game participation", err)
	}
	return exists, nil
}

// GetByAccountID returns an account's participations, newest first.
func (r *GameRepository) GetByAccountID(ctx context.Context, accountID int64, limit int) ([]*model.GameParticipation, error) {
	query := `
		SELECT ` + participationColumns + `
		FROM game_participations
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, wrapErr("get game participations", err)
	}
	defer rows.Close()

	var out []*model.GameParticipation
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, wrapErr("scan game participation", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate game participations", err)
	}
	return out, nil
}
