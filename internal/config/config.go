package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultPaymentLink = "https://buy.stripe.com/test_eVq14odSN3eN15y0CIcfK00"
	DefaultLichessURL  = "https://lichess.org"
)

// Config holds all server configuration. Environment variables override
// DefaultConfig; command-line flags in main override both.
type Config struct {
	APIHost     string `env:"COACH_API_HOST"`
	APIPort     int    `env:"COACH_API_PORT"`
	Dev         bool   `env:"COACH_DEV"`
	StoragePath string `env:"COACH_STORAGE_PATH"`
	PIDPath     string `env:"COACH_PID"`
	PIDLock     bool   `env:"COACH_PID_LOCK"`
	JWTSecret   string `env:"COACH_JWT_SECRET"`

	// Puzzle source
	LichessURL   string        `env:"LICHESS_URL"`
	LichessToken string        `env:"LICHESS_TOKEN"`
	FetchTimeout time.Duration `env:"LICHESS_TIMEOUT"`

	// Coach webhook
	CoachWebhookURL string        `env:"COACH_WEBHOOK_URL"`
	CoachTimeout    time.Duration `env:"COACH_WEBHOOK_TIMEOUT"`
	CoachWorkers    int           `env:"COACH_WEBHOOK_WORKERS"`
	NotifyMoves     bool          `env:"COACH_NOTIFY_MOVES"`

	// Billing
	PaymentLink string `env:"PAYMENT_LINK"`

	// Optional backends
	DatabaseURL string        `env:"DATABASE_URL"`
	RedisURL    string        `env:"REDIS_URL"`
	AttemptTTL  time.Duration `env:"ATTEMPT_KEY_TTL"`
	NATSServers string        `env:"NATS_SERVERS"`

	// Trainings
	TrainingTTL     time.Duration `env:"TRAINING_TTL"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL"`
	MaxTrainings    int           `env:"MAX_TRAININGS"`

	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`
}

func DefaultConfig() Config {
	return Config{
		APIHost:         "localhost",
		APIPort:         8080,
		LichessURL:      DefaultLichessURL,
		FetchTimeout:    10 * time.Second,
		CoachTimeout:    30 * time.Second,
		CoachWorkers:    2,
		NotifyMoves:     true,
		PaymentLink:     DefaultPaymentLink,
		AttemptTTL:      7 * 24 * time.Hour,
		TrainingTTL:     2 * time.Hour,
		CleanupInterval: 10 * time.Minute,
		MaxTrainings:    1000,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load reads the environment on top of the defaults
func Load() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Validate rejects impossible values and fills zero values with defaults
func (c *Config) Validate() error {
	def := DefaultConfig()

	if c.APIPort < 1 || c.APIPort > 65535 {
		return fmt.Errorf("invalid API port %d", c.APIPort)
	}
	if c.PIDLock && c.PIDPath == "" {
		return fmt.Errorf("pid lock requires a pid path")
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	if c.LichessURL == "" {
		c.LichessURL = def.LichessURL
	}
	if err := checkURL("lichess URL", c.LichessURL); err != nil {
		return err
	}
	if c.CoachWebhookURL != "" {
		if err := checkURL("coach webhook URL", c.CoachWebhookURL); err != nil {
			return err
		}
	}
	if c.PaymentLink == "" {
		c.PaymentLink = def.PaymentLink
	}
	if err := checkURL("payment link", c.PaymentLink); err != nil {
		return err
	}

	if c.FetchTimeout <= 0 {
		c.FetchTimeout = def.FetchTimeout
	}
	if c.CoachTimeout <= 0 {
		c.CoachTimeout = def.CoachTimeout
	}
	if c.CoachWorkers <= 0 {
		c.CoachWorkers = def.CoachWorkers
	}
	if c.AttemptTTL <= 0 {
		c.AttemptTTL = def.AttemptTTL
	}
	if c.TrainingTTL <= 0 {
		c.TrainingTTL = def.TrainingTTL
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = def.CleanupInterval
	}
	if c.MaxTrainings <= 0 {
		c.MaxTrainings = def.MaxTrainings
	}

	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	if c.LogFormat == "" {
		c.LogFormat = def.LogFormat
	}
	return nil
}

// SetupLogging applies level and format to the global logger
func (c Config) SetupLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	if c.Dev && level < log.DebugLevel {
		level = log.DebugLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)

	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}

func checkURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid %s %q", name, raw)
	}
	return nil
}
