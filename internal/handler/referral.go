package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"rewards-ledger/internal/model"
)

// Referrals is what ReferralHandler needs from the referral service.
type Referrals interface {
	Stats(ctx context.Context, accountID int64) (*model.ReferralStats, error)
	List(ctx context.Context, accountID int64) ([]*model.Referral, error)
}

// ReferralHandler serves referral queries.
type ReferralHandler struct {
	referrals Referrals
}

// NewReferralHandler creates a new ReferralHandler.
func NewReferralHandler(referrals Referrals) *ReferralHandler {
	return &ReferralHandler{referrals: referrals}
}

// Stats handles GET /v1/referrals/stats.
func (h *ReferralHandler) Stats(c echo.Context) error {
	id, err := AccountID(c)
	if err != nil {
		return err
	}
	s, err := h.referrals.Stats(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

// List handles GET /v1/referrals.
func (h *ReferralHandler) List(c echo.Context) error {
	id, err := AccountID(c)
	if err != nil {
		return err
	}
	refs, err := h.referrals.List(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return list(c, refs)
}
