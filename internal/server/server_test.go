package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewards-ledger/internal/apperr"
	"rewards-ledger/internal/config"
	"rewards-ledger/internal/game"
	"rewards-ledger/internal/handler"
	"rewards-ledger/internal/metrics"
	"rewards-ledger/internal/model"
	"rewards-ledger/internal/service"
)

const (
	testSecret = "test-secret"
	userID     = int64(42)
	adminID    = int64(7)
)

type fakeAccounts struct {
	signUpIn  service.SignUpInput
	signUpErr error
}

func (f *fakeAccounts) SignUp(_ context.Context, in service.SignUpInput) (*service.SignUpResult, error) {
	f.signUpIn = in
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &service.SignUpResult{
		Account: &model.Account{ID: 1, Username: in.Username, PasswordHash: "secret-hash"},
		Package: &model.Package{ID: 2, Type: "pro"},
	}, nil
}

func (f *fakeAccounts) Wallet(_ context.Context, id int64) (*service.Wallet, error) {
	if id != userID && id != adminID {
		return nil, service.ErrAccountNotFound
	}
	return &service.Wallet{Balance: decimal.NewFromInt(1000), TotalEarnings: decimal.NewFromInt(2500)}, nil
}

func (f *fakeAccounts) History(context.Context, int64, int, int) ([]*model.Transaction, error) {
	return nil, nil
}

func (f *fakeAccounts) Profile(_ context.Context, id int64) (*service.Profile, error) {
	return &service.Profile{Account: &model.Account{ID: id}}, nil
}

func (f *fakeAccounts) EarningsBreakdown(context.Context, int64) (model.EarningsBreakdown, error) {
	return model.EarningsBreakdown{model.CategoryGame: decimal.RequireFromString("862.5")}, nil
}

func (f *fakeAccounts) AssignPackage(_ context.Context, accountID, packageID int64) (*service.Profile, error) {
	return &service.Profile{Account: &model.Account{ID: accountID, PackageID: &packageID}}, nil
}

func (f *fakeAccounts) Reconcile(context.Context, int64) (*service.Reconciliation, error) {
	return &service.Reconciliation{Balanced: true}, nil
}

type fakeCoupons struct{}

func (fakeCoupons) Packages(context.Context) ([]*model.Package, error) {
	return []*model.Package{{ID: 1, Type: "pro"}}, nil
}

func (fakeCoupons) Validate(_ context.Context, code string) (*service.CouponInfo, error) {
	if code != "META1234" {
		return nil, service.ErrCouponNotFound
	}
	return &service.CouponInfo{Coupon: &model.Coupon{Code: code}, Package: &model.Package{Type: "silver"}}, nil
}

func (fakeCoupons) Generate(_ context.Context, packageID int64, count int, _ decimal.Decimal) ([]*model.Coupon, error) {
	out := make([]*model.Coupon, count)
	for i := range out {
		out[i] = &model.Coupon{Code: fmt.Sprintf("META%06d", i), PackageID: packageID}
	}
	return out, nil
}

func (fakeCoupons) ListUnused(context.Context, int64, int) ([]*model.Coupon, error) {
	return nil, nil
}

type fakeRewards struct {
	claimErr error
}

func (f *fakeRewards) Games() []game.Game { return game.Defaults(nil) }

func (f *fakeRewards) ClaimDailyLogin(_ context.Context, id int64) (*service.ClaimResult, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	return &service.ClaimResult{Transaction: &model.Transaction{AccountID: id, Amount: decimal.NewFromInt(1000)}, Streak: 1}, nil
}

func (f *fakeRewards) PlayGame(_ context.Context, id int64, gameType string) (*service.GameResult, error) {
	if gameType != game.TypeDailySpin {
		return nil, service.ErrUnknownGame
	}
	return &service.GameResult{Transaction: &model.Transaction{AccountID: id}, Participation: &model.GameParticipation{GameType: gameType}}, nil
}

func (f *fakeRewards) GameHistory(context.Context, int64, int) ([]*model.GameParticipation, error) {
	return nil, nil
}

func (f *fakeRewards) ApplyReward(_ context.Context, id int64, category string, amount decimal.Decimal, _ string) (*model.Transaction, error) {
	return &model.Transaction{AccountID: id, Category: category, Amount: amount}, nil
}

type fakeReferrals struct{}

func (fakeReferrals) Stats(context.Context, int64) (*model.ReferralStats, error) {
	return &model.ReferralStats{TotalReferrals: 2, TotalEarned: decimal.NewFromInt(7000)}, nil
}

func (fakeReferrals) List(context.Context, int64) ([]*model.Referral, error) { return nil, nil }

type fakeSubmissions struct{}

func (fakeSubmissions) Submit(_ context.Context, id int64, platform, videoURL, _ string) (*model.ContentSubmission, error) {
	return &model.ContentSubmission{AccountID: id, Platform: platform, VideoURL: videoURL, Status: model.SubmissionPending}, nil
}

func (fakeSubmissions) List(context.Context, int64) ([]*model.ContentSubmission, error) {
	return nil, nil
}

func (fakeSubmissions) Approve(_ context.Context, id int64, _ string) (*model.ContentSubmission, error) {
	return &model.ContentSubmission{ID: id, Status: model.SubmissionApproved}, nil
}

func (fakeSubmissions) Pay(_ context.Context, id int64) (*model.ContentSubmission, *model.Transaction, error) {
	return nil, nil, apperr.ErrInvalidTransition
}

func (fakeSubmissions) Reject(_ context.Context, id int64, _ string) (*model.ContentSubmission, error) {
	return &model.ContentSubmission{ID: id, Status: model.SubmissionRejected}, nil
}

func (fakeSubmissions) Pending(context.Context, int) ([]*model.ContentSubmission, error) {
	return nil, nil
}

type fakeWithdrawals struct {
	requestErr error
	amount     decimal.Decimal
}

func (f *fakeWithdrawals) Request(_ context.Context, id int64, amount decimal.Decimal, bank model.BankDetails, _ string) (*model.WithdrawalRequest, error) {
	f.amount = amount
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	return &model.WithdrawalRequest{ID: 9, AccountID: id, Amount: amount, Bank: bank, Status: model.WithdrawalPending}, nil
}

func (f *fakeWithdrawals) List(context.Context, int64) ([]*model.WithdrawalRequest, error) {
	return nil, nil
}

func (f *fakeWithdrawals) Queue(context.Context, int) ([]*model.WithdrawalRequest, error) {
	return []*model.WithdrawalRequest{{ID: 9}}, nil
}

func (f *fakeWithdrawals) MarkProcessing(_ context.Context, id int64) (*model.WithdrawalRequest, error) {
	return &model.WithdrawalRequest{ID: id, Status: model.WithdrawalProcessing}, nil
}

func (f *fakeWithdrawals) Complete(_ context.Context, id int64) (*model.WithdrawalRequest, error) {
	return &model.WithdrawalRequest{ID: id, Status: model.WithdrawalCompleted}, nil
}

func (f *fakeWithdrawals) Fail(_ context.Context, id int64, reason string) (*model.WithdrawalRequest, *model.Transaction, error) {
	return &model.WithdrawalRequest{ID: id, Status: model.WithdrawalFailed, FailureReason: reason},
		&model.Transaction{Category: model.CategoryPayout}, nil
}

type fixture struct {
	server      *Server
	accounts    *fakeAccounts
	rewards     *fakeRewards
	withdrawals *fakeWithdrawals
	metrics     *metrics.Metrics
	healthErr   error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		accounts:    &fakeAccounts{},
		rewards:     &fakeRewards{},
		withdrawals: &fakeWithdrawals{},
		metrics:     metrics.New(),
	}
	cfg := &config.Config{
		Server: config.ServerConfig{Addr: ":0"},
		Auth:   config.AuthConfig{JWTSecret: testSecret},
		Admin:  config.AdminConfig{IDs: []int64{adminID}},
	}
	s, err := New(&Dependencies{
		Config:      cfg,
		Metrics:     f.metrics,
		Health:      func(context.Context) error { return f.healthErr },
		Accounts:    f.accounts,
		Coupons:     fakeCoupons{},
		Rewards:     f.rewards,
		Referrals:   fakeReferrals{},
		Submissions: fakeSubmissions{},
		Withdrawals: f.withdrawals,
		Admin: handler.AdminDeps{
			Accounts:    f.accounts,
			Coupons:     fakeCoupons{},
			Rewards:     f.rewards,
			Submissions: fakeSubmissions{},
			Withdrawals: f.withdrawals,
		},
	})
	require.NoError(t, err)
	f.server = s
	return f
}

func token(t *testing.T, sub any, secret string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func (f *fixture) do(t *testing.T, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(&Dependencies{Config: &config.Config{}})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "", "").Code)

	f.healthErr = errors.New("db down")
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/health", "", "").Code)
}

func TestSignUp(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/signup",
		`{"username":"bob","email":"bob@example.com","password":"secret123","coupon_code":"META1234","referral_code":"REFABC123"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "META1234", f.accounts.signUpIn.CouponCode)
	assert.Equal(t, "REFABC123", f.accounts.signUpIn.ReferralCode)
	assert.NotContains(t, rec.Body.String(), "secret-hash")

	rec = f.do(t, http.MethodPost, "/v1/signup", `{"username":"bob","password":"secret123","coupon_code":"META1234"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", decodeError(t, rec).Error)

	f.accounts.signUpErr = service.ErrCouponAlreadyUsed
	rec = f.do(t, http.MethodPost, "/v1/signup",
		`{"username":"bob","email":"bob@example.com","password":"secret123","coupon_code":"META1234"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "coupon_already_used", decodeError(t, rec).Error)
}

func TestPublicCatalog(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/packages", "", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/coupons/META1234", "", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/v1/coupons/NOPE", "", "").Code)

	rec := f.do(t, http.MethodGet, "/v1/games", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), game.TypeDailySpin)
}

func TestWalletRequiresValidToken(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/v1/wallet", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/v1/wallet", "", token(t, userID, "other-secret")).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/v1/wallet", "", token(t, "not-a-number", testSecret)).Code)

	for _, sub := range []any{userID, fmt.Sprint(userID)} {
		rec := f.do(t, http.MethodGet, "/v1/wallet", "", token(t, sub, testSecret))
		require.Equal(t, http.StatusOK, rec.Code)

		var w handler.WalletResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &w))
		assert.Equal(t, "1000.00", w.Balance)
		assert.Equal(t, "2500.00", w.TotalEarnings)
	}
}

func TestEarningsAreFixedPoint(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/wallet/earnings", "", token(t, userID, testSecret))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"game":"862.50"`)
}

func TestDailyLoginErrors(t *testing.T) {
	f := newFixture(t)
	tok := token(t, userID, testSecret)

	assert.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/rewards/daily-login", "", tok).Code)

	f.rewards.claimErr = service.ErrDailyAlreadyClaimed
	rec := f.do(t, http.MethodPost, "/v1/rewards/daily-login", "", tok)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "daily_already_claimed", decodeError(t, rec).Error)

	rec = f.do(t, http.MethodPost, "/v1/games/roulette/play", "", tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_game", decodeError(t, rec).Error)
}

func TestWithdrawalErrorMapping(t *testing.T) {
	const body = `{"amount":"1000.00","bank_name":"GTBank","account_number":"0123456789","account_name":"Bob","password":"secret123"}`

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"created", nil, http.StatusCreated, ""},
		{"insufficient balance", service.ErrInsufficientBalance, http.StatusUnprocessableEntity, "insufficient_balance"},
		{"bad password", service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{"below minimum", service.ErrBelowMinimum, http.StatusBadRequest, "below_minimum"},
		{"conflict", apperr.ErrConcurrencyConflict.Wrap(errors.New("lock")), http.StatusConflict, "concurrency_conflict"},
		{"storage failure", errors.New("connection refused"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.withdrawals.requestErr = tt.err

			rec := f.do(t, http.MethodPost, "/v1/withdrawals", body, token(t, userID, testSecret))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, "1000", f.withdrawals.amount.String())
			if tt.wantCode != "" {
				resp := decodeError(t, rec)
				assert.Equal(t, tt.wantCode, resp.Error)
				assert.NotContains(t, resp.Message, "connection refused")
			}
			if tt.wantStatus == http.StatusConflict {
				assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestWithdrawalValidation(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/withdrawals", `{"amount":1000,"bank_name":"GTBank"}`, token(t, userID, testSecret))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/withdrawals", `{not json`, token(t, userID, testSecret))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	f := newFixture(t)
	userTok := token(t, userID, testSecret)
	adminTok := token(t, adminID, testSecret)

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/v1/admin/withdrawals/queue", "", userTok).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/v1/admin/withdrawals/queue", "", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/admin/withdrawals/queue", "", adminTok).Code)

	rec := f.do(t, http.MethodPost, "/v1/admin/withdrawals/9/fail", `{"reason":"bank rejected"}`, adminTok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"reversal"`)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/v1/admin/withdrawals/9/fail", `{}`, adminTok).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/v1/admin/withdrawals/abc/complete", "", adminTok).Code)

	rec = f.do(t, http.MethodPost, "/v1/admin/submissions/3/pay", "", adminTok)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decodeError(t, rec).Error)

	rec = f.do(t, http.MethodPost, "/v1/admin/coupons", `{"package_id":1,"count":3}`, adminTok)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 3, strings.Count(rec.Body.String(), "META"))

	rec = f.do(t, http.MethodPost, "/v1/admin/accounts/42/rewards", `{"category":"content","amount":"250"}`, adminTok)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/v1/wallet", "", token(t, userID, testSecret))

	rec := f.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rewards_ledger_http_requests_total")
}
