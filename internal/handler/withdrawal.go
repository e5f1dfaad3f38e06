package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"rewards-ledger/internal/model"
)

// Withdrawals is what WithdrawalHandler needs from the withdrawal service.
type Withdrawals interface {
	Request(ctx context.Context, accountID int64, amount decimal.Decimal, bank model.BankDetails, password string) (*model.WithdrawalRequest, error)
	List(ctx context.Context, accountID int64) ([]*model.WithdrawalRequest, error)
}

// WithdrawalHandler handles withdrawal requests by account owners.
type WithdrawalHandler struct {
	withdrawals Withdrawals
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(withdrawals Withdrawals) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals}
}

// WithdrawalRequest is the body of POST /v1/withdrawals.
// Amount accepts a JSON string or number.
type WithdrawalRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	BankName      string          `json:"bank_name" validate:"required,max=100"`
	AccountNumber string          `json:"account_number" validate:"required,max=20"`
	AccountName   string          `json:"account_name" validate:"required,max=100"`
	Password      string          `json:"password" validate:"required"`
}

// Request handles POST /v1/withdrawals.
func (h *WithdrawalHandler) Request(c echo.Context) error {
	id, err := AccountID(c)
	if err != nil {
		return err
	}
	var req WithdrawalRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	w, err := h.withdrawals.Request(c.Request().Context(), id, req.Amount, model.BankDetails{
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
	}, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, w)
}

// List handles GET /v1/withdrawals.
func (h *WithdrawalHandler) List(c echo.Context) error {
	id, err := AccountID(c)
	if err != nil {
		return err
	}
	ws, err := h.withdrawals.List(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return list(c, ws)
}
