package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"rewards-ledger/internal/game"
	"rewards-ledger/internal/model"
	"rewards-ledger/internal/service"
)

// Rewards is what GameHandler needs from the reward service.
type Rewards interface {
	Games() []game.Game
	ClaimDailyLogin(ctx context.Context, accountID int64) (*service.ClaimResult, error)
	PlayGame(ctx context.Context, accountID int64, gameType string) (*service.GameResult, error)
	GameHistory(ctx context.Context, accountID int64, limit int) ([]*model.GameParticipation, error)
}

// GameHandler handles daily login claims and mini-games.
type GameHandler struct {
	rewards Rewards
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(rewards Rewards) *GameHandler {
	return &GameHandler{rewards: rewards}
}

// GameInfo describes a playable game.
type GameInfo struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	BaseReward  string `json:"base_reward"`
}

// List handles GET /v1/games.
func (h *GameHandler) List(c echo.Context) error {
	games := h.rewards.Games()
	out := make([]GameInfo, 0, len(games))
	for _, g := range games {
		out = append(out, GameInfo{
			Type:        g.Type(),
			Name:        g.Name(),
			Description: g.Description(),
			BaseReward:  g.BaseReward().StringFixed(2),
		})
	}
	return list(c, out)
}

// ClaimResponse is the reply to a granted daily login bonus.
type ClaimResponse struct {
	Transaction *model.Transaction `json:"transaction"`
	Streak      int                `json:"streak"`
}

// DailyLogin handles POST /v1/rewards/daily-login.
func (h *GameHandler) DailyLogin(c echo.Context) error {
	id, err := AccountID(c)
	if err != nil {
		return err
	}
	res, err := h.rewards.ClaimDailyLogin(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ClaimResponse{Transaction: res.Transaction, Streak: res.Streak})
}

// PlayResponse is the reply to a granted game reward.
type PlayResponse struct {
	Transaction   *model.Transaction       `json:"transaction"`
	Participation *model.GameParticipation `json:"participation"`
}

// Play handles POST /v1/games/:type/play.
func (h *GameHandler) Play(c echo.Context) error {
	id, err := AccountID(c)
	if err != nil {
		return err
	}
	res, err := h.rewards.PlayGame(c.Request().Context(), id, c.Param("type"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, PlayResponse{Transaction: res.Transaction, Participation: res.Participation})
}

// History handles GET /v1/games/history.
func (h *GameHandler) History(c echo.Context) error {
	id, err := AccountID(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	ps, err := h.rewards.GameHistory(c.Request().Context(), id, limit)
	if err != nil {
		return err
	}
	return list(c, ps)
}
