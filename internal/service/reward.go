package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"rewards-ledger/internal/game"
	"rewards-ledger/internal/ledger"
	"rewards-ledger/internal/metrics"
	"rewards-ledger/internal/model"
	"rewards-ledger/internal/pkg/lock"
	"rewards-ledger/internal/repository"
	"rewards-ledger/internal/rules"
)

// Claim outcomes reported to metrics.
const (
	outcomeGranted  = "granted"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// ClaimResult is a granted daily login bonus.
type ClaimResult struct {
	Transaction *model.Transaction
	Streak      int
}

// GameResult is a granted game reward.
type GameResult struct {
	Transaction   *model.Transaction
	Participation *model.GameParticipation
}

// RewardService grants daily login bonuses, game rewards and direct rewards.
type RewardService struct {
	store   *repository.Store
	ledger  *ledger.Ledger
	rules   *rules.Engine
	games   *game.Registry
	locks   *lock.AccountLock
	metrics *metrics.Metrics
	retry   retrier
}

// NewRewardService creates a new RewardService instance.
func NewRewardService(store *repository.Store, l *ledger.Ledger, engine *rules.Engine, games *game.Registry, locks *lock.AccountLock, conflictRetries int) *RewardService {
	return &RewardService{
		store:   store,
		ledger:  l,
		rules:   engine,
		games:   games,
		locks:   locks,
		metrics: l.Metrics(),
		retry:   retrier{attempts: conflictRetries, metrics: l.Metrics()},
	}
}

// Games lists the playable games.
func (s *RewardService) Games() []game.Game {
	return s.games.List()
}

// loadPackage returns the account's package, or nil without one.
func loadPackage(ctx context.Context, tx *repository.Tx, acc *model.Account) (*model.Package, error) {
	if acc.PackageID == nil {
		return nil, nil
	}
	return tx.Packages.GetByID(ctx, *acc.PackageID)
}

func (s *RewardService) record(kind string, err error) {
	switch {
	case err == nil:
		s.metrics.Claim(kind, outcomeGranted)
	case errors.Is(err, ErrDailyAlreadyClaimed), errors.Is(err, ErrGameAlreadyPlayed):
		s.metrics.Claim(kind, outcomeRejected)
	default:
		s.metrics.Claim(kind, outcomeFailed)
	}
}

// ClaimDailyLogin grants today's login bonus. Eligibility is decided under the
// account row lock, so concurrent claims grant at most one bonus per day.
func (s *RewardService) ClaimDailyLogin(ctx context.Context, accountID int64) (*ClaimResult, error) {
	var res *ClaimResult
	err := withAccountLock(ctx, s.locks, accountID, func() error {
		return s.retry.do(ctx, "claim_daily_login", func() error {
			var err error
			res, err = s.claimDailyLogin(ctx, accountID)
			return err
		})
	})
	s.record(model.CategoryDailyLogin, err)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("account_id", accountID).
		Str("amount", res.Transaction.Amount.StringFixed(2)).
		Int("streak", res.Streak).
		Msg("Daily login bonus claimed")
	return res, nil
}

func (s *RewardService) claimDailyLogin(ctx context.Context, accountID int64) (*ClaimResult, error) {
	res := &ClaimResult{}
	err := s.store.RunInTx(ctx, func(tx *repository.Tx) error {
		acc, err := tx.Accounts.GetForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		pkg, err := loadPackage(ctx, tx, acc)
		if err != nil {
			return err
		}

		dec := s.rules.DailyLogin(acc, pkg)
		if !dec.Allowed {
			return ErrDailyAlreadyClaimed
		}

		_, err = tx.Games.Create(ctx, &model.GameParticipation{
			AccountID:    acc.ID,
			GameType:     model.GameTypeDailyLogin,
			PlayDate:     dec.Date,
			RewardEarned: dec.Amount,
			GameData:     map[string]any{"streak": dec.Streak},
		})
		if repository.IsUniqueViolation(err, repository.ConstraintGamePerDay) {
			return ErrDailyAlreadyClaimed
		}
		if err != nil {
			return err
		}

		if err := tx.Accounts.UpdateDailyLogin(ctx, acc.ID, s.rules.Clock.Now(), dec.Streak); err != nil {
			return err
		}

		res.Streak = dec.Streak
		res.Transaction, err = s.ledger.ApplyDelta(ctx, tx, ledger.Entry{
			AccountID:   acc.ID,
			Amount:      dec.Amount,
			Category:    model.CategoryDailyLogin,
			Description: fmt.Sprintf("Daily login bonus (day %d streak)", dec.Streak),
			RefID:       refID(model.CategoryDailyLogin, fmt.Sprint(acc.ID), dec.Date.Format("2006-01-02")),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// PlayGame grants today's reward for a game type.
func (s *RewardService) PlayGame(ctx context.Context, accountID int64, gameType string) (*GameResult, error) {
	g, ok := s.games.Get(gameType)
	if !ok {
		return nil, ErrUnknownGame.Withf("unknown game type %q", gameType)
	}

	var res *GameResult
	err := withAccountLock(ctx, s.locks, accountID, func() error {
		return s.retry.do(ctx, "play_game", func() error {
			var err error
			res, err = s.playGame(ctx, accountID, g)
			return err
		})
	})
	s.record(model.CategoryGame, err)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("account_id", accountID).
		Str("game", g.Type()).
		Str("amount", res.Transaction.Amount.StringFixed(2)).
		Msg("Game reward granted")
	return res, nil
}

func (s *RewardService) playGame(ctx context.Context, accountID int64, g game.Game) (*GameResult, error) {
	res := &GameResult{}
	err := s.store.RunInTx(ctx, func(tx *repository.Tx) error {
		acc, err := tx.Accounts.GetForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		pkg, err := loadPackage(ctx, tx, acc)
		if err != nil {
			return err
		}

		dec := s.rules.GameReward(acc, pkg, g)
		if !dec.Allowed {
			return ErrGameAlreadyPlayed
		}

		res.Participation, err = tx.Games.Create(ctx, &model.GameParticipation{
			AccountID:    acc.ID,
			GameType:     g.Type(),
			PlayDate:     dec.Date,
			RewardEarned: dec.Amount,
			GameData: map[string]any{
				"base_reward": dec.Base.StringFixed(2),
				"multiplier":  dec.Multiplier.String(),
				"factor":      dec.Factor,
			},
		})
		if repository.IsUniqueViolation(err, repository.ConstraintGamePerDay) {
			return ErrGameAlreadyPlayed
		}
		if err != nil {
			return err
		}

		if err := tx.Accounts.SetLastGame(ctx, acc.ID, g.Type(), s.rules.Clock.Now()); err != nil {
			return err
		}

		res.Transaction, err = s.ledger.ApplyDelta(ctx, tx, ledger.Entry{
			AccountID:   acc.ID,
			Amount:      dec.Amount,
			Category:    model.CategoryGame,
			Description: fmt.Sprintf("%s reward", g.Name()),
			RefID:       refID(model.CategoryGame, fmt.Sprint(acc.ID), g.Type(), dec.Date.Format("2006-01-02")),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ApplyReward credits an earning category directly. Used by admins and integrations.
func (s *RewardService) ApplyReward(ctx context.Context, accountID int64, category string, amount decimal.Decimal, description string) (*model.Transaction, error) {
	if !model.IsEarningCategory(category) {
		return nil, ErrNotEarningCategory.Withf("category %q cannot be used for rewards", category)
	}
	if !amount.Round(2).IsPositive() {
		return nil, ErrInvalidAmount
	}

	var created *model.Transaction
	err := withAccountLock(ctx, s.locks, accountID, func() error {
		return s.retry.do(ctx, "apply_reward", func() error {
			var err error
			created, err = s.ledger.Apply(ctx, ledger.Entry{
				AccountID:   accountID,
				Amount:      amount,
				Category:    category,
				Description: description,
			})
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("account_id", accountID).
		Str("category", category).
		Str("amount", created.Amount.StringFixed(2)).
		Msg("Reward applied")
	return created, nil
}

// GameHistory returns the account's most recent participations, daily login audits included.
func (s *RewardService) GameHistory(ctx context.Context, accountID int64, limit int) ([]*model.GameParticipation, error) {
	if _, err := s.store.Accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.store.Games.GetByAccountID(ctx, accountID, pageSize(limit))
}
