package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/iliyamo/cloud-asset-api/internal/config"
	"github.com/iliyamo/cloud-asset-api/internal/database"
	"github.com/iliyamo/cloud-asset-api/internal/handler"
	"github.com/iliyamo/cloud-asset-api/internal/logging"
	"github.com/iliyamo/cloud-asset-api/internal/metrics"
	"github.com/iliyamo/cloud-asset-api/internal/middleware"
	"github.com/iliyamo/cloud-asset-api/internal/queue"
	"github.com/iliyamo/cloud-asset-api/internal/repository"
	"github.com/iliyamo/cloud-asset-api/internal/router"
	"github.com/iliyamo/cloud-asset-api/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envFile := flag.String("env-file", ".env", "dotenv file to load before reading the environment")
	ci := flag.Bool("ci", false, "use dummy secrets and in-memory stores (never in production)")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		return err
	}
	ciMode := *ci || envTrue("CI_MODE") || envTrue("GITHUB_ACTIONS")

	cfg, err := config.Load(ciMode)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	zl, err := logging.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()
	log := zl.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, assets, closeDB, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	m := metrics.New()

	var events queue.Publisher = queue.NopPublisher{}
	if cfg.AuditEnabled {
		events = queue.NewAMQPPublisher(cfg.AMQPURL)
		log.Infow("audit events enabled", "queue", queue.AuditQueueName)
	}

	identity, err := service.NewIdentityValidator(cfg, users,
		service.WithPublisher(events),
		service.WithMetrics(m),
		service.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("identity: %w", err)
	}
	assetSvc := service.NewAssetService(assets, events, m, log)

	var limiter *middleware.RateLimiter
	if rlCfg := config.LoadRateLimitConfig(); rlCfg.Enabled && !cfg.CIMode {
		rdb := config.NewRedisClient(ctx, config.LoadRedisConfig())
		if rdb == nil {
			log.Warn("redis unreachable, auth rate limiting disabled")
		} else {
			defer func() { _ = rdb.Close() }()
			limiter = middleware.NewRateLimiter(rlCfg, rdb, log)
		}
	}

	e := router.New(router.Deps{
		Auth:     handler.NewAuthHandler(identity, log),
		Assets:   handler.NewAssetHandler(assetSvc, log),
		Resolver: identity,
		Limiter:  limiter,
		Metrics:  m,
		Log:      log,
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Infow("listening", "addr", addr, "env", cfg.Env, "ci", cfg.CIMode)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openStores returns MySQL-backed stores, or in-memory ones in CI mode.
func openStores(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (service.CredentialStore, service.AssetStore, func(), error) {
	if cfg.CIMode {
		log.Warn("CI mode: using in-memory stores and dummy secrets")
		return repository.NewMemoryUserRepo(), repository.NewMemoryAssetRepo(), func() {}, nil
	}

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	log.Infow("database ready", "host", cfg.DBHost, "name", cfg.DBName)
	return repository.NewUserRepo(db), repository.NewAssetRepo(db), func() { _ = db.Close() }, nil
}

func envTrue(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
