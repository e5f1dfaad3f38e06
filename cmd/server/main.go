// Package main is the entry point for the rewards ledger API server.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"rewards-ledger/internal/config"
	"rewards-ledger/internal/game"
	"rewards-ledger/internal/handler"
	"rewards-ledger/internal/ledger"
	"rewards-ledger/internal/metrics"
	"rewards-ledger/internal/pkg/codegen"
	"rewards-ledger/internal/pkg/db"
	"rewards-ledger/internal/pkg/lock"
	"rewards-ledger/internal/repository"
	"rewards-ledger/internal/rules"
	"rewards-ledger/internal/server"
	"rewards-ledger/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(cfg.Log)

	log.Info().Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid timezone")
	}
	schedule, err := rules.ScheduleFromConfig(cfg.Rewards)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid reward schedule")
	}
	baseRewards, err := rules.ParseAmounts(cfg.Rewards.GameBaseRewards)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid game base rewards")
	}
	minimum, err := decimal.NewFromString(cfg.Withdrawal.Minimum)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid withdrawal minimum")
	}

	m := metrics.New()
	store := repository.NewStore(dbPool.Pool, cfg.Database.LockTimeout, cfg.Withdrawal.DefaultPriority)
	book := ledger.New(store, m)
	engine := rules.NewEngine(rules.SystemClock, loc, rules.NewSource(cfg.Rewards.RandomSeed), schedule)
	codes := codegen.New(cfg.Codes.MaxAttempts)
	locks := lock.New(cfg.Ledger.LockWait)

	games, err := game.NewRegistry(game.Defaults(baseRewards)...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register games")
	}

	accountService := service.NewAccountService(store, book, engine, codes, service.AccountOptions{
		ReferralPrefix:  cfg.Codes.ReferralPrefix,
		BcryptCost:      cfg.Auth.BcryptCost,
		ConflictRetries: cfg.Ledger.ConflictRetries,
	})
	couponService := service.NewCouponService(store, codes, cfg.Codes.CouponPrefix)
	referralService := service.NewReferralService(store)
	rewardService := service.NewRewardService(store, book, engine, games, locks, cfg.Ledger.ConflictRetries)
	submissionService := service.NewSubmissionService(store, book, engine, locks, cfg.Ledger.ConflictRetries)
	withdrawalService := service.NewWithdrawalService(store, book, locks, service.WithdrawalOptions{
		Minimum:         minimum,
		ConflictRetries: cfg.Ledger.ConflictRetries,
	})

	log.Info().
		Strs("games", games.Types()).
		Str("timezone", loc.String()).
		Str("withdrawal_minimum", minimum.StringFixed(2)).
		Msg("Services initialized")

	srv, err := server.New(&server.Dependencies{
		Config:      cfg,
		Metrics:     m,
		Health:      dbPool.HealthCheck,
		Accounts:    accountService,
		Coupons:     couponService,
		Rewards:     rewardService,
		Referrals:   referralService,
		Submissions: submissionService,
		Withdrawals: withdrawalService,
		Admin: handler.AdminDeps{
			Accounts:    accountService,
			Coupons:     couponService,
			Rewards:     rewardService,
			Submissions: submissionService,
			Withdrawals: withdrawalService,
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("Server stopped unexpectedly")
		}
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}

func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
