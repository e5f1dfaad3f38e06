// Package config provides configuration management using viper.
// It supports loading from YAML files, an optional .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Log        LogConfig        `mapstructure:"log"`
	Timezone   string           `mapstructure:"timezone"`
	Rewards    RewardsConfig    `mapstructure:"rewards"`
	Withdrawal WithdrawalConfig `mapstructure:"withdrawal"`
	Codes      CodesConfig      `mapstructure:"codes"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
}

// ServerConfig holds HTTP listener configuration.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	LockTimeout     time.Duration `mapstructure:"lock_timeout"`
}

// AuthConfig holds token verification and password hashing settings.
// Tokens are issued by the identity service; this service only verifies them.
type AuthConfig struct {
	JWTSecret  string `mapstructure:"jwt_secret"`
	BcryptCost int    `mapstructure:"bcrypt_cost"`
}

// AdminConfig holds admin account configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// LogConfig holds zerolog settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// RewardsConfig holds the reward schedules.
// Amounts are strings so fractional values survive YAML and env parsing unchanged.
type RewardsConfig struct {
	DefaultDailyLogin    string            `mapstructure:"default_daily_login"`
	DefaultReferralBonus string            `mapstructure:"default_referral_bonus"`
	TierReferralBonus    map[string]string `mapstructure:"tier_referral_bonus"`
	GameMultipliers      map[string]string `mapstructure:"game_multipliers"`
	GameFactorMin        float64           `mapstructure:"game_factor_min"`
	GameFactorMax        float64           `mapstructure:"game_factor_max"`
	GameBaseRewards      map[string]string `mapstructure:"game_base_rewards"`
	ContentEarnings      map[string]string `mapstructure:"content_earnings"`
	DefaultContent       string            `mapstructure:"default_content"`
	RandomSeed           uint64            `mapstructure:"random_seed"`
}

// WithdrawalConfig holds withdrawal rules.
type WithdrawalConfig struct {
	Minimum         string `mapstructure:"minimum"`
	DefaultPriority int    `mapstructure:"default_priority"`
}

// CodesConfig holds coupon and referral code generation settings.
type CodesConfig struct {
	CouponPrefix   string `mapstructure:"coupon_prefix"`
	ReferralPrefix string `mapstructure:"referral_prefix"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
}

// LedgerConfig holds concurrency settings for balance mutations.
type LedgerConfig struct {
	ConflictRetries int           `mapstructure:"conflict_retries"`
	LockWait        time.Duration `mapstructure:"lock_wait"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode,
	)
}

// Location resolves the configured timezone. "Today" for daily claims is evaluated in it.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	// A missing .env is fine; values may come from the real environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. DATABASE_HOST, AUTH_JWT_SECRET, WITHDRAWAL_MINIMUM
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Rewards.GameFactorMin <= 0 || c.Rewards.GameFactorMax < c.Rewards.GameFactorMin {
		return fmt.Errorf("invalid game factor range [%v, %v]", c.Rewards.GameFactorMin, c.Rewards.GameFactorMax)
	}
	for name, raw := range map[string]string{
		"rewards.default_daily_login":    c.Rewards.DefaultDailyLogin,
		"rewards.default_referral_bonus": c.Rewards.DefaultReferralBonus,
		"rewards.default_content":        c.Rewards.DefaultContent,
		"withdrawal.minimum":             c.Withdrawal.Minimum,
	} {
		if _, err := decimal.NewFromString(raw); err != nil {
			return fmt.Errorf("invalid amount for %s: %w", name, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "rewards")
	v.SetDefault("database.name", "rewards")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.lock_timeout", "3s")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("timezone", "Local")

	v.SetDefault("rewards.default_daily_login", "500")
	v.SetDefault("rewards.default_referral_bonus", "2000")
	v.SetDefault("rewards.tier_referral_bonus", map[string]string{"pro": "4000", "silver": "3000"})
	v.SetDefault("rewards.game_multipliers", map[string]string{"pro": "1.5", "silver": "1.2"})
	v.SetDefault("rewards.game_factor_min", 0.8)
	v.SetDefault("rewards.game_factor_max", 1.5)
	v.SetDefault("rewards.game_base_rewards", map[string]string{
		"daily_spin":   "500",
		"scratch_card": "300",
		"quiz":         "200",
	})
	v.SetDefault("rewards.content_earnings", map[string]string{
		"tiktok":    "500",
		"instagram": "400",
		"facebook":  "300",
		"twitter":   "350",
	})
	v.SetDefault("rewards.default_content", "200")
	v.SetDefault("rewards.random_seed", 0)

	v.SetDefault("withdrawal.minimum", "1000")
	v.SetDefault("withdrawal.default_priority", 2)

	v.SetDefault("codes.coupon_prefix", "META")
	v.SetDefault("codes.referral_prefix", "REF")
	v.SetDefault("codes.max_attempts", 10)

	v.SetDefault("ledger.conflict_retries", 3)
	v.SetDefault("ledger.lock_wait", "5s")
}

// IsAdmin checks if an account ID is in the admin list.
func (c *Config) IsAdmin(accountID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == accountID {
			return true
		}
	}
	return false
}
