package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Execer runs a statement.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{"packages table", `
		CREATE TABLE IF NOT EXISTS packages (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			package_type VARCHAR(20) NOT NULL UNIQUE,
			price NUMERIC(10, 2) NOT NULL CHECK (price >= 0),
			description TEXT NOT NULL DEFAULT '',
			features JSONB NOT NULL DEFAULT '[]',
			referral_bonus NUMERIC(10, 2) NOT NULL DEFAULT 0,
			daily_login_bonus NUMERIC(10, 2) NOT NULL DEFAULT 0,
			daily_game_bonus NUMERIC(10, 2) NOT NULL DEFAULT 0,
			withdrawal_priority INT NOT NULL DEFAULT 2,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`},
	{"accounts table", `
		CREATE TABLE IF NOT EXISTS accounts (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(150) NOT NULL UNIQUE,
			email VARCHAR(254) NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			phone_number VARCHAR(20) NOT NULL DEFAULT '',
			package_id BIGINT REFERENCES packages(id),
			referral_code VARCHAR(32) NOT NULL UNIQUE,
			referred_by BIGINT REFERENCES accounts(id),
			wallet_balance NUMERIC(15, 2) NOT NULL DEFAULT 0 CHECK (wallet_balance >= 0),
			total_earnings NUMERIC(15, 2) NOT NULL DEFAULT 0 CHECK (total_earnings >= 0),
			last_daily_login TIMESTAMPTZ,
			login_streak INT NOT NULL DEFAULT 0 CHECK (login_streak >= 0),
			last_daily_game JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_accounts_referred_by ON accounts(referred_by);
	`},
	{"coupons table", `
		CREATE TABLE IF NOT EXISTS coupons (
			id BIGSERIAL PRIMARY KEY,
			code VARCHAR(50) NOT NULL UNIQUE,
			package_id BIGINT NOT NULL REFERENCES packages(id),
			price_paid NUMERIC(10, 2) NOT NULL,
			used_by BIGINT REFERENCES accounts(id),
			used_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK ((used_by IS NULL) = (used_at IS NULL))
		);
	`},
	{"transactions table", `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
			amount NUMERIC(15, 2) NOT NULL CHECK (amount <> 0),
			category VARCHAR(20) NOT NULL CHECK (category IN
				('content', 'referral', 'game', 'daily_login', 'payout', 'package_purchase')),
			description TEXT NOT NULL DEFAULT '',
			ref_id UUID NOT NULL UNIQUE,
			balance_after NUMERIC(15, 2) NOT NULL CHECK (balance_after >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_account_time ON transactions(account_id, created_at DESC, id DESC);
	`},
	{"content_submissions table", `
		CREATE TABLE IF NOT EXISTS content_submissions (
			id BIGSERIAL PRIMARY KEY,
			account_id BIGINT NOT NULL REFERENCES accounts(id),
			platform VARCHAR(20) NOT NULL,
			video_url TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'paid', 'rejected')),
			earnings NUMERIC(10, 2) NOT NULL DEFAULT 0,
			review_notes TEXT NOT NULL DEFAULT '',
			submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			reviewed_at TIMESTAMPTZ,
			paid_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_content_submissions_account ON content_submissions(account_id, submitted_at DESC);
	`},
	{"referrals table", `
		CREATE TABLE IF NOT EXISTS referrals (
			id BIGSERIAL PRIMARY KEY,
			referrer_id BIGINT NOT NULL REFERENCES accounts(id),
			referee_id BIGINT NOT NULL REFERENCES accounts(id),
			reward_earned NUMERIC(10, 2) NOT NULL,
			referee_package VARCHAR(20) NOT NULL DEFAULT '',
			is_paid BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT referrals_once_per_referee UNIQUE (referee_id),
			UNIQUE (referrer_id, referee_id),
			CHECK (referrer_id <> referee_id)
		);
	`},
	{"game_participations table", `
		CREATE TABLE IF NOT EXISTS game_participations (
			id BIGSERIAL PRIMARY KEY,
			account_id BIGINT NOT NULL REFERENCES accounts(id),
			game_type VARCHAR(50) NOT NULL,
			play_date DATE NOT NULL,
			reward_earned NUMERIC(10, 2) NOT NULL DEFAULT 0,
			game_data JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT game_participations_once_per_day UNIQUE (account_id, game_type, play_date)
		);
		CREATE INDEX IF NOT EXISTS idx_game_participations_account ON game_participations(account_id, created_at DESC);
	`},
	{"withdrawal_requests table", `
		CREATE TABLE IF NOT EXISTS withdrawal_requests (
			id BIGSERIAL PRIMARY KEY,
			account_id BIGINT NOT NULL REFERENCES accounts(id),
			amount NUMERIC(10, 2) NOT NULL CHECK (amount > 0),
			bank_name VARCHAR(100) NOT NULL,
			account_number VARCHAR(20) NOT NULL,
			account_name VARCHAR(100) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'processing', 'completed', 'failed')),
			failure_reason TEXT NOT NULL DEFAULT '',
			debit_ref_id UUID NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			processed_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_status ON withdrawal_requests(status, created_at);
		CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_account ON withdrawal_requests(account_id, created_at DESC);
	`},
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db Execer) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := db.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", i+1, m.name, err)
		}
		log.Info().Int("migration", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
