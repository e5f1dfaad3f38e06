// Package server wires the HTTP API: echo instance, middleware and routes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"rewards-ledger/internal/config"
	"rewards-ledger/internal/handler"
	"rewards-ledger/internal/metrics"
)

// HealthFunc reports whether dependencies such as the database are reachable.
type HealthFunc func(ctx context.Context) error

// Dependencies holds everything the routes call into.
type Dependencies struct {
	Config      *config.Config
	Metrics     *metrics.Metrics
	Health      HealthFunc
	Accounts    handler.Accounts
	Coupons     handler.Coupons
	Rewards     handler.Rewards
	Referrals   handler.Referrals
	Submissions handler.Submissions
	Withdrawals handler.Withdrawals
	Admin       handler.AdminDeps
}

// Server wraps the echo instance with its handlers.
type Server struct {
	echo *echo.Echo
	cfg  *config.Config
	deps *Dependencies

	accountHandler    *handler.AccountHandler
	catalogHandler    *handler.CatalogHandler
	gameHandler       *handler.GameHandler
	referralHandler   *handler.ReferralHandler
	contentHandler    *handler.ContentHandler
	withdrawalHandler *handler.WithdrawalHandler
	adminHandler      *handler.AdminHandler
}

// New creates a Server with middleware and routes registered.
func New(deps *Dependencies) (*Server, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	if deps.Config.Auth.JWTSecret == "" {
		return nil, errors.New("jwt secret is required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Server.ReadTimeout = deps.Config.Server.ReadTimeout
	e.Server.WriteTimeout = deps.Config.Server.WriteTimeout

	s := &Server{
		echo:              e,
		cfg:               deps.Config,
		deps:              deps,
		accountHandler:    handler.NewAccountHandler(deps.Accounts),
		catalogHandler:    handler.NewCatalogHandler(deps.Coupons),
		gameHandler:       handler.NewGameHandler(deps.Rewards),
		referralHandler:   handler.NewReferralHandler(deps.Referrals),
		contentHandler:    handler.NewContentHandler(deps.Submissions),
		withdrawalHandler: handler.NewWithdrawalHandler(deps.Withdrawals),
		adminHandler:      handler.NewAdminHandler(deps.Admin),
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerMiddleware() {
	s.echo.Use(RecoveryMiddleware())
	s.echo.Use(RequestIDMiddleware())
	s.echo.Use(LoggingMiddleware())
	s.echo.Use(MetricsMiddleware(s.deps.Metrics))
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
	}

	// Public
	pub := s.echo.Group("/v1")
	pub.POST("/signup", s.accountHandler.SignUp)
	pub.GET("/packages", s.catalogHandler.Packages)
	pub.GET("/coupons/:code", s.catalogHandler.ValidateCoupon)
	pub.GET("/games", s.gameHandler.List)

	// Authenticated
	auth := s.echo.Group("/v1", AuthMiddleware(s.cfg.Auth.JWTSecret))
	auth.GET("/me", s.accountHandler.Profile)
	auth.GET("/wallet", s.accountHandler.Wallet)
	auth.GET("/wallet/transactions", s.accountHandler.History)
	auth.GET("/wallet/earnings", s.accountHandler.Earnings)

	auth.POST("/rewards/daily-login", s.gameHandler.DailyLogin)
	auth.POST("/games/:type/play", s.gameHandler.Play)
	auth.GET("/games/history", s.gameHandler.History)

	auth.GET("/referrals", s.referralHandler.List)
	auth.GET("/referrals/stats", s.referralHandler.Stats)

	auth.POST("/submissions", s.contentHandler.Submit)
	auth.GET("/submissions", s.contentHandler.List)

	auth.POST("/withdrawals", s.withdrawalHandler.Request)
	auth.GET("/withdrawals", s.withdrawalHandler.List)

	// Admin
	admin := auth.Group("/admin", AdminMiddleware(s.cfg))
	admin.POST("/coupons", s.adminHandler.GenerateCoupons)
	admin.GET("/packages/:id/coupons", s.adminHandler.UnusedCoupons)
	admin.PUT("/accounts/:id/package", s.adminHandler.AssignPackage)
	admin.POST("/accounts/:id/rewards", s.adminHandler.ApplyReward)
	admin.GET("/accounts/:id/reconcile", s.adminHandler.Reconcile)
	admin.GET("/submissions/pending", s.adminHandler.PendingSubmissions)
	admin.POST("/submissions/:id/approve", s.adminHandler.ApproveSubmission)
	admin.POST("/submissions/:id/pay", s.adminHandler.PaySubmission)
	admin.POST("/submissions/:id/reject", s.adminHandler.RejectSubmission)
	admin.GET("/withdrawals/queue", s.adminHandler.WithdrawalQueue)
	admin.POST("/withdrawals/:id/processing", s.adminHandler.ProcessWithdrawal)
	admin.POST("/withdrawals/:id/complete", s.adminHandler.CompleteWithdrawal)
	admin.POST("/withdrawals/:id/fail", s.adminHandler.FailWithdrawal)
}

func (s *Server) handleHealth(c echo.Context) error {
	if s.deps.Health != nil {
		if err := s.deps.Health(c.Request().Context()); err != nil {
			log.Error().Err(err).Msg("Health check failed")
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.cfg.Server.Addr).Msg("Starting HTTP server...")
	if err := s.echo.Start(s.cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping HTTP server...")
	return s.echo.Shutdown(ctx)
}
