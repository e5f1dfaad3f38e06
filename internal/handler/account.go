package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"rewards-ledger/internal/model"
	"rewards-ledger/internal/service"
)

// Accounts is what AccountHandler needs from the account service.
type Accounts interface {
	SignUp(ctx context.Context, in service.SignUpInput) (*service.SignUpResult, error)
	Wallet(ctx context.Context, accountID int64) (*service.Wallet, error)
	History(ctx context.Context, accountID int64, limit, offset int) ([]*model.Transaction, error)
	Profile(ctx context.Context, accountID int64) (*service.Profile, error)
	EarningsBreakdown(ctx context.Context, accountID int64) (model.EarningsBreakdown, error)
}

// AccountHandler handles signup and wallet queries.
type AccountHandler struct {
	accounts Accounts
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts Accounts) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// SignUpRequest is the body of POST /v1/signup.
type SignUpRequest struct {
	Username     string `json:"username" validate:"required,min=3,max=150"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8,max=128"`
	PhoneNumber  string `json:"phone_number" validate:"omitempty,max=20"`
	CouponCode   string `json:"coupon_code" validate:"required,max=20"`
	ReferralCode string `json:"referral_code" validate:"omitempty,max=20"`
}

// SignUpResponse is the reply to a successful signup.
type SignUpResponse struct {
	Account  *model.Account  `json:"account"`
	Package  *model.Package  `json:"package"`
	Referral *model.Referral `json:"referral,omitempty"`
}

// SignUp handles POST /v1/signup.
func (h *AccountHandler) SignUp(c echo.Context) error {
	var req SignUpRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.accounts.SignUp(c.Request().Context(), service.SignUpInput{
		Username:     req.Username,
		Email:        req.Email,
		Password:     req.Password,
		PhoneNumber:  req.PhoneNumber,
		CouponCode:   req.CouponCode,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, SignUpResponse{Account: res.Account, Package: res.Package, Referral: res.Referral})
}

// WalletResponse is the reply of GET /v1/wallet.
type WalletResponse struct {
	Balance       string `json:"balance"`
	TotalEarnings string `json:"total_earnings"`
}

// Wallet handles GET /v1/wallet.
func (h *AccountHandler) Wallet(c echo.Context) error {
	id, err := AccountID(c)
	if err != nil {
		return err
	}
	w, err := h.accounts.Wallet(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, WalletResponse{
		Balance:       w.Balance.StringFixed(2),
		TotalEarnings: w.TotalEarnings.StringFixed(2),
	})
}

// History handles GET /v1/wallet/transactions?limit=&offset=.
func (h *AccountHandler) History(c echo.Context) error {
	id, err := AccountID(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		return err
	}

	txs, err := h.accounts.History(c.Request().Context(), id, limit, offset)
	if err != nil {
		return err
	}
	return list(c, txs)
}

// ProfileResponse is the reply of GET /v1/me.
type ProfileResponse struct {
	Account *model.Account `json:"account"`
	Package *model.Package `json:"package"`
}

// Profile handles GET /v1/me.
func (h *AccountHandler) Profile(c echo.Context) error {
	id, err := AccountID(c)
	if err != nil {
		return err
	}
	p, err := h.accounts.Profile(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ProfileResponse{Account: p.Account, Package: p.Package})
}

// Earnings handles GET /v1/wallet/earnings.
func (h *AccountHandler) Earnings(c echo.Context) error {
	id, err := AccountID(c)
	if err != nil {
		return err
	}
	b, err := h.accounts.EarningsBreakdown(c.Request().Context(), id)
	if err != nil {
		return err
	}

	out := make(map[string]string, len(b))
	for category, amount := range b {
		out[category] = amount.StringFixed(2)
	}
	return c.JSON(http.StatusOK, out)
}
