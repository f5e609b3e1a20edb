package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/scoutlabs/mailscout/config"
	"github.com/scoutlabs/mailscout/internal/health"
	"github.com/scoutlabs/mailscout/internal/infrastructure/postgres"
	"github.com/scoutlabs/mailscout/internal/infrastructure/redisstore"
	ctxlog "github.com/scoutlabs/mailscout/internal/log"
	"github.com/scoutlabs/mailscout/internal/metrics"
	"github.com/scoutlabs/mailscout/internal/mx"
	httptransport "github.com/scoutlabs/mailscout/internal/transport/http"
	"github.com/scoutlabs/mailscout/internal/transport/http/handler"
	"github.com/scoutlabs/mailscout/internal/usage"
	"github.com/scoutlabs/mailscout/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	healthDeps := map[string]health.Pinger{"postgres": pool}

	// Usage ledger: redis when configured (shared across replicas),
	// postgres otherwise.
	var usageStore usage.Store = postgres.NewUsageStore(pool)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			stop()
			log.Fatalf("redis: %v", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		usageStore = redisstore.NewUsageStore(rdb)
		healthDeps["redis"] = redisPinger{rdb}
	}

	ledger := usage.NewLedger(usageStore, cfg.Quotas(), cfg.UsagePeriod())

	resolver := mx.NewResolver(mx.Config{
		Servers:     cfg.DNSServers,
		Timeout:     cfg.DNSTimeout(),
		CacheTTL:    cfg.MXCacheTTL(),
		QueriesPerS: cfg.DNSQueriesPerSec,
	}, logger)

	keyRepo := postgres.NewAPIKeyRepository(pool)

	finderUsecase := usecase.NewFinderUsecase(resolver)
	finderHandler := handler.NewFinderHandler(finderUsecase, logger)
	usageHandler := handler.NewUsageHandler(ledger, logger)

	metrics.Register()
	checker := health.NewChecker(healthDeps, logger, prometheus.DefaultRegisterer)

	// Periodic maintenance: bound the MX cache.
	maintenance := cron.New()
	if _, err := maintenance.AddFunc("@every 10m", func() {
		if removed := resolver.Cache().Purge(); removed > 0 {
			logger.Debug("mx cache purged", "removed", removed)
		}
	}); err != nil {
		stop()
		log.Fatalf("maintenance schedule: %v", err)
	}
	maintenance.Start()
	defer maintenance.Stop()

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, finderHandler, usageHandler, keyRepo, ledger),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

// redisPinger adapts *redis.Client to the health.Pinger signature.
type redisPinger struct {
	rdb *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
