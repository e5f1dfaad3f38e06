package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"rewards-ledger/internal/model"
	"rewards-ledger/internal/service"
)

// Coupons is what CatalogHandler needs from the coupon service.
type Coupons interface {
	Packages(ctx context.Context) ([]*model.Package, error)
	Validate(ctx context.Context, code string) (*service.CouponInfo, error)
}

// CatalogHandler serves the public package catalog and coupon checks.
type CatalogHandler struct {
	coupons Coupons
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(coupons Coupons) *CatalogHandler {
	return &CatalogHandler{coupons: coupons}
}

// Packages handles GET /v1/packages.
func (h *CatalogHandler) Packages(c echo.Context) error {
	pkgs, err := h.coupons.Packages(c.Request().Context())
	if err != nil {
		return err
	}
	return list(c, pkgs)
}

// CouponResponse describes a redeemable coupon without exposing redemption details.
type CouponResponse struct {
	Code    string         `json:"code"`
	Valid   bool           `json:"valid"`
	Package *model.Package `json:"package"`
}

// ValidateCoupon handles GET /v1/coupons/:code.
func (h *CatalogHandler) ValidateCoupon(c echo.Context) error {
	info, err := h.coupons.Validate(c.Request().Context(), c.Param("code"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, CouponResponse{Code: info.Coupon.Code, Valid: true, Package: info.Package})
}
