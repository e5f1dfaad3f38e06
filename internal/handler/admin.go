package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"rewards-ledger/internal/model"
	"rewards-ledger/internal/service"
)

// AdminAccounts is the admin subset of the account service.
type AdminAccounts interface {
	AssignPackage(ctx context.Context, accountID, packageID int64) (*service.Profile, error)
	Reconcile(ctx context.Context, accountID int64) (*service.Reconciliation, error)
}

// AdminCoupons is the admin subset of the coupon service.
type AdminCoupons interface {
	Generate(ctx context.Context, packageID int64, count int, pricePaid decimal.Decimal) ([]*model.Coupon, error)
	ListUnused(ctx context.Context, packageID int64, limit int) ([]*model.Coupon, error)
}

// AdminRewards is the admin subset of the reward service.
type AdminRewards interface {
	ApplyReward(ctx context.Context, accountID int64, category string, amount decimal.Decimal, description string) (*model.Transaction, error)
}

// AdminSubmissions is the review subset of the submission service.
type AdminSubmissions interface {
	Approve(ctx context.Context, id int64, notes string) (*model.ContentSubmission, error)
	Pay(ctx context.Context, id int64) (*model.ContentSubmission, *model.Transaction, error)
	Reject(ctx context.Context, id int64, notes string) (*model.ContentSubmission, error)
	Pending(ctx context.Context, limit int) ([]*model.ContentSubmission, error)
}

// AdminWithdrawals is the operator subset of the withdrawal service.
type AdminWithdrawals interface {
	Queue(ctx context.Context, limit int) ([]*model.WithdrawalRequest, error)
	MarkProcessing(ctx context.Context, id int64) (*model.WithdrawalRequest, error)
	Complete(ctx context.Context, id int64) (*model.WithdrawalRequest, error)
	Fail(ctx context.Context, id int64, reason string) (*model.WithdrawalRequest, *model.Transaction, error)
}

// AdminDeps groups the services behind the admin routes.
type AdminDeps struct {
	Accounts    AdminAccounts
	Coupons     AdminCoupons
	Rewards     AdminRewards
	Submissions AdminSubmissions
	Withdrawals AdminWithdrawals
}

// AdminHandler handles admin-only commands.
type AdminHandler struct {
	deps AdminDeps
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(deps AdminDeps) *AdminHandler {
	return &AdminHandler{deps: deps}
}

func audit(c echo.Context, action string) *zerolog.Event {
	admin, _ := AccountID(c)
	return log.Info().Int64("admin_id", admin).Str("action", action)
}

// GenerateCouponsRequest is the body of POST /v1/admin/coupons.
type GenerateCouponsRequest struct {
	PackageID int64           `json:"package_id" validate:"required,gt=0"`
	Count     int             `json:"count" validate:"required,gt=0,lte=1000"`
	PricePaid decimal.Decimal `json:"price_paid"`
}

// GenerateCoupons handles POST /v1/admin/coupons.
func (h *AdminHandler) GenerateCoupons(c echo.Context) error {
	var req GenerateCouponsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	coupons, err := h.deps.Coupons.Generate(c.Request().Context(), req.PackageID, req.Count, req.PricePaid)
	if err != nil {
		return err
	}

	audit(c, "generate_coupons").Int64("package_id", req.PackageID).Int("count", len(coupons)).Msg("Admin generated coupons")
	return c.JSON(http.StatusCreated, listResponse[*model.Coupon]{Data: coupons})
}

// UnusedCoupons handles GET /v1/admin/packages/:id/coupons.
func (h *AdminHandler) UnusedCoupons(c echo.Context) error {
	packageID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	coupons, err := h.deps.Coupons.ListUnused(c.Request().Context(), packageID, limit)
	if err != nil {
		return err
	}
	return list(c, coupons)
}

// AssignPackageRequest is the body of PUT /v1/admin/accounts/:id/package.
type AssignPackageRequest struct {
	PackageID int64 `json:"package_id" validate:"required,gt=0"`
}

// AssignPackage handles PUT /v1/admin/accounts/:id/package.
func (h *AdminHandler) AssignPackage(c echo.Context) error {
	accountID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req AssignPackageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := h.deps.Accounts.AssignPackage(c.Request().Context(), accountID, req.PackageID)
	if err != nil {
		return err
	}

	audit(c, "assign_package").Int64("account_id", accountID).Int64("package_id", req.PackageID).Msg("Admin assigned package")
	return c.JSON(http.StatusOK, ProfileResponse{Account: p.Account, Package: p.Package})
}

// ApplyRewardRequest is the body of POST /v1/admin/accounts/:id/rewards.
type ApplyRewardRequest struct {
	Category    string          `json:"category" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=500"`
}

// ApplyReward handles POST /v1/admin/accounts/:id/rewards.
func (h *AdminHandler) ApplyReward(c echo.Context) error {
	accountID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ApplyRewardRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	tx, err := h.deps.Rewards.ApplyReward(c.Request().Context(), accountID, req.Category, req.Amount, req.Description)
	if err != nil {
		return err
	}

	audit(c, "apply_reward").Int64("account_id", accountID).Str("amount", tx.Amount.StringFixed(2)).Msg("Admin applied reward")
	return c.JSON(http.StatusCreated, tx)
}

// Reconcile handles GET /v1/admin/accounts/:id/reconcile.
func (h *AdminHandler) Reconcile(c echo.Context) error {
	accountID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	r, err := h.deps.Accounts.Reconcile(c.Request().Context(), accountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"wallet":          r.Wallet.StringFixed(2),
		"transaction_sum": r.TransactionSum.StringFixed(2),
		"balanced":        r.Balanced,
	})
}

// PendingSubmissions handles GET /v1/admin/submissions/pending.
func (h *AdminHandler) PendingSubmissions(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	subs, err := h.deps.Submissions.Pending(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return list(c, subs)
}

// ReviewRequest is the optional body of approve and reject.
type ReviewRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// ApproveSubmission handles POST /v1/admin/submissions/:id/approve.
func (h *AdminHandler) ApproveSubmission(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ReviewRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	sub, err := h.deps.Submissions.Approve(c.Request().Context(), id, req.Notes)
	if err != nil {
		return err
	}

	audit(c, "approve_submission").Int64("submission_id", id).Msg("Admin approved submission")
	return c.JSON(http.StatusOK, sub)
}

// PayResponse is the reply to a paid submission.
type PayResponse struct {
	Submission  *model.ContentSubmission `json:"submission"`
	Transaction *model.Transaction       `json:"transaction"`
}

// PaySubmission handles POST /v1/admin/submissions/:id/pay.
func (h *AdminHandler) PaySubmission(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	sub, tx, err := h.deps.Submissions.Pay(c.Request().Context(), id)
	if err != nil {
		return err
	}

	audit(c, "pay_submission").Int64("submission_id", id).Msg("Admin paid submission")
	return c.JSON(http.StatusOK, PayResponse{Submission: sub, Transaction: tx})
}

// RejectSubmission handles POST /v1/admin/submissions/:id/reject.
func (h *AdminHandler) RejectSubmission(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ReviewRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	sub, err := h.deps.Submissions.Reject(c.Request().Context(), id, req.Notes)
	if err != nil {
		return err
	}

	audit(c, "reject_submission").Int64("submission_id", id).Msg("Admin rejected submission")
	return c.JSON(http.StatusOK, sub)
}

// WithdrawalQueue handles GET /v1/admin/withdrawals/queue.
func (h *AdminHandler) WithdrawalQueue(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	ws, err := h.deps.Withdrawals.Queue(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return list(c, ws)
}

// ProcessWithdrawal handles POST /v1/admin/withdrawals/:id/processing.
func (h *AdminHandler) ProcessWithdrawal(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	w, err := h.deps.Withdrawals.MarkProcessing(c.Request().Context(), id)
	if err != nil {
		return err
	}

	audit(c, "process_withdrawal").Int64("withdrawal_id", id).Msg("Admin started withdrawal")
	return c.JSON(http.StatusOK, w)
}

// CompleteWithdrawal handles POST /v1/admin/withdrawals/:id/complete.
func (h *AdminHandler) CompleteWithdrawal(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	w, err := h.deps.Withdrawals.Complete(c.Request().Context(), id)
	if err != nil {
		return err
	}

	audit(c, "complete_withdrawal").Int64("withdrawal_id", id).Msg("Admin completed withdrawal")
	return c.JSON(http.StatusOK, w)
}

// FailWithdrawalRequest is the body of POST /v1/admin/withdrawals/:id/fail.
type FailWithdrawalRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// FailResponse is the reply to a failed withdrawal.
type FailResponse struct {
	Withdrawal *model.WithdrawalRequest `json:"withdrawal"`
	Reversal   *model.Transaction       `json:"reversal"`
}

// FailWithdrawal handles POST /v1/admin/withdrawals/:id/fail.
func (h *AdminHandler) FailWithdrawal(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req FailWithdrawalRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	w, tx, err := h.deps.Withdrawals.Fail(c.Request().Context(), id, req.Reason)
	if err != nil {
		return err
	}

	audit(c, "fail_withdrawal").Int64("withdrawal_id", id).Str("reason", req.Reason).Msg("Admin failed withdrawal")
	return c.JSON(http.StatusOK, FailResponse{Withdrawal: w, Reversal: tx})
}
