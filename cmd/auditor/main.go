// Command auditor consumes audit events from RabbitMQ and appends them to a
// log file.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/iliyamo/cloud-asset-api/internal/config"
	"github.com/iliyamo/cloud-asset-api/internal/logging"
	"github.com/iliyamo/cloud-asset-api/internal/queue"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envFile := flag.String("env-file", ".env", "dotenv file to load before reading the environment")
	logPath := flag.String("log-path", "", "audit log file (overrides AUDIT_LOG_PATH)")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		return err
	}
	cfg := config.LoadAuditConfig()
	if *logPath != "" {
		cfg.LogPath = *logPath
	}

	zl, err := logging.New(os.Getenv("APP_ENV"))
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()
	log := zl.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("auditor starting", "queue", queue.AuditQueueName, "log_path", cfg.LogPath)
	err = queue.NewConsumer(cfg.AMQPURL, cfg.LogPath, log).Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("auditor stopped")
		return nil
	}
	return err
}
