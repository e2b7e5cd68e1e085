package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess_Defaults(t *testing.T) {
	cfg, err := process(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "0123456789abcdef",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 168*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ConfirmTTL)
	assert.Equal(t, time.Hour, cfg.JWT.ResetTTL)
	assert.Equal(t, "user_service", cfg.Mongo.Database)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Empty(t, cfg.SMTP.Host)
	assert.Equal(t, 4, cfg.Mail.Workers)
	assert.Equal(t, 5.0, cfg.Rate.AuthLimit)
	assert.False(t, cfg.IsProduction())
}

func TestProcess_Overrides(t *testing.T) {
	cfg, err := process(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":      "0123456789abcdef",
		"ENV":             "production",
		"JWT_ACCESS_TTL":  "5m",
		"REDIS_DB":        "3",
		"SMTP_HOST":       "smtp.example.com",
		"AUTH_RATE_LIMIT": "0.5",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	assert.Equal(t, 0.5, cfg.Rate.AuthLimit)
}

func TestProcess_RequiresSecret(t *testing.T) {
	_, err := process(context.Background(), envconfig.MapLookuper(map[string]string{}))
	assert.Error(t, err)

	_, err = process(context.Background(), envconfig.MapLookuper(map[string]string{"JWT_SECRET": "short"}))
	assert.Error(t, err)
}

func TestProcess_RejectsBadDuration(t *testing.T) {
	_, err := process(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":     "0123456789abcdef",
		"JWT_ACCESS_TTL": "soon",
	}))
	assert.Error(t, err)
}
