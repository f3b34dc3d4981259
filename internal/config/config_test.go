package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost:8080", cfg.Addr())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("COACH_API_PORT", "9191")
	t.Setenv("COACH_DEV", "true")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("TRAINING_TTL", "45m")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9191, cfg.APIPort)
	assert.True(t, cfg.Dev)
	assert.Equal(t, "redis://localhost:6379/1", cfg.RedisURL)
	assert.Equal(t, 45*time.Minute, cfg.TrainingTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DefaultPaymentLink, cfg.PaymentLink, "unset variables keep defaults")
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("COACH_API_PORT", "not-a-number")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.APIPort = 0 }},
		{"pid lock without path", func(c *Config) { c.PIDLock = true }},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }},
		{"webhook url", func(c *Config) { c.CoachWebhookURL = "not a url" }},
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"log format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateFillsZeroValues(t *testing.T) {
	cfg := Config{APIPort: 80}
	require.NoError(t, cfg.Validate())

	def := DefaultConfig()
	assert.Equal(t, def.LichessURL, cfg.LichessURL)
	assert.Equal(t, def.CoachWorkers, cfg.CoachWorkers)
	assert.Equal(t, def.TrainingTTL, cfg.TrainingTTL)
	assert.Equal(t, "text", cfg.LogFormat)
}
