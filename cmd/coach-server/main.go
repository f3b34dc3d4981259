// Command coach-server runs the puzzle coaching API. The words db, migrate
// and events switch to maintenance subcommands instead.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chesscoach/cmd/coach-server/cli"
	"chesscoach/internal/coach"
	"chesscoach/internal/config"
	"chesscoach/internal/provider"
	"chesscoach/internal/server/http"
	"chesscoach/internal/server/processor"
	"chesscoach/internal/server/service"

	log "github.com/sirupsen/logrus"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
	devJWTSecret            = "dev-secret-minimum-32-characters-long"
)

func main() {
	if len(os.Args) > 1 && cli.Commands[os.Args[1]] {
		if err := cli.Run(os.Args[1:]); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	flag.StringVar(&cfg.APIHost, "api-host", cfg.APIHost, "API server host")
	flag.IntVar(&cfg.APIPort, "api-port", cfg.APIPort, "API server port")
	flag.BoolVar(&cfg.Dev, "dev", cfg.Dev, "Development mode (relaxed rate limits, fixed JWT secret)")
	flag.StringVar(&cfg.StoragePath, "storage-path", cfg.StoragePath, "Path to SQLite database file (disables accounts if empty)")
	flag.StringVar(&cfg.PIDPath, "pid", cfg.PIDPath, "Optional path to write PID file")
	flag.BoolVar(&cfg.PIDLock, "pid-lock", cfg.PIDLock, "Lock PID file to allow only one instance (requires -pid)")
	flag.StringVar(&cfg.CoachWebhookURL, "coach-url", cfg.CoachWebhookURL, "Coach webhook URL")
	flag.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Postgres URL for attempt history")
	flag.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL for attempt idempotency keys")
	flag.StringVar(&cfg.NATSServers, "nats", cfg.NATSServers, "NATS servers for attempt events")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	cfg.SetupLogging()

	if err := serve(cfg); err != nil {
		log.Fatal(err)
	}
}

// serve runs the API until SIGINT or SIGTERM. Errors are returned rather
// than fatal so deferred cleanup of the PID file and backends always runs.
func serve(cfg config.Config) error {
	if cfg.PIDPath != "" {
		cleanup, err := managePIDFile(cfg.PIDPath, cfg.PIDLock)
		if err != nil {
			return fmt.Errorf("failed to manage PID file: %w", err)
		}
		defer cleanup()
		log.WithFields(log.Fields{"path": cfg.PIDPath, "lock": cfg.PIDLock}).Info("PID file created")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := service.Options{
		Source:       provider.NewLichessSource(cfg.LichessURL, cfg.LichessToken, cfg.FetchTimeout),
		Coach:        coach.NewClient(cfg.CoachWebhookURL, cfg.CoachTimeout),
		JWTSecret:    jwtSecret(cfg),
		TrainingTTL:  cfg.TrainingTTL,
		MaxTrainings: cfg.MaxTrainings,
		PaymentLink:  cfg.PaymentLink,
	}
	release, err := openBackends(ctx, cfg, &opts)
	if err != nil {
		return err
	}
	defer release()

	svc := service.New(opts)
	go svc.RunCleanupJob(ctx, cfg.CleanupInterval)

	proc := processor.New(svc, processor.Options{
		NotifyMoves: cfg.NotifyMoves,
		Workers:     cfg.CoachWorkers,
		Timeout:     cfg.CoachTimeout,
	})

	app := http.NewFiberApp(proc, svc, cfg.Dev)
	addr := cfg.Addr()

	go func() {
		log.WithFields(log.Fields{
			"addr":    "http://" + addr,
			"dev":     cfg.Dev,
			"storage": svc.GetStorageHealth(),
			"coach":   cfg.CoachWebhookURL != "",
		}).Info("Coach API server starting")
		if err := app.Listen(addr); err != nil {
			log.WithError(err).Error("API server listen error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.WithError(err).Warn("Server forced to shutdown")
	}
	if err := proc.Close(); err != nil {
		log.WithError(err).Warn("Processor close error")
	}
	cancel()
	if err := svc.Shutdown(gracefulShutdownTimeout); err != nil {
		log.WithError(err).Warn("Service shutdown error")
	}

	log.Info("Server exited")
	return nil
}

// jwtSecret prefers the configured secret, then the fixed dev secret, then
// a random one that invalidates tokens on restart
func jwtSecret(cfg config.Config) []byte {
	switch {
	case cfg.JWTSecret != "":
		return []byte(cfg.JWTSecret)
	case cfg.Dev:
		log.Info("Using fixed JWT secret (dev mode)")
		return []byte(devJWTSecret)
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Fatalf("Failed to generate JWT secret: %v", err)
	}
	log.Info("JWT secret generated (sessions valid until restart)")
	return secret
}
