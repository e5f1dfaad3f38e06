package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("WITHDRAWAL_MINIMUM", "1500")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "1500", cfg.Withdrawal.Minimum)
	assert.Equal(t, 2, cfg.Withdrawal.DefaultPriority)
	assert.Equal(t, "META", cfg.Codes.CouponPrefix)
	assert.Equal(t, "1.5", cfg.Rewards.GameMultipliers["pro"])
	assert.Equal(t, 3*time.Second, cfg.Database.LockTimeout)
	assert.Equal(t, "postgres://rewards:@localhost:5432/rewards?sslmode=disable", cfg.Database.DSN())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
auth:
  jwt_secret: file-secret
timezone: UTC
admin:
  ids: [7, 9]
rewards:
  default_daily_login: "650"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "650", cfg.Rewards.DefaultDailyLogin)
	assert.True(t, cfg.IsAdmin(9))
	assert.False(t, cfg.IsAdmin(8))

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestValidateRejectsMissingSecret(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "jwt_secret")
}

func TestValidateRejectsBadAmount(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "x")
	t.Setenv("WITHDRAWAL_MINIMUM", "lots")

	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "withdrawal.minimum")
}
