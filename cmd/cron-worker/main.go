package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nightshift/inventory-backend/internal/cron"
	"github.com/nightshift/inventory-backend/internal/customers"
	"github.com/nightshift/inventory-backend/internal/ledger"
	"github.com/nightshift/inventory-backend/internal/orders"
	"github.com/nightshift/inventory-backend/internal/organizations"
	"github.com/nightshift/inventory-backend/internal/reconcile"
	"github.com/nightshift/inventory-backend/internal/sequence"
	"github.com/nightshift/inventory-backend/internal/vendors"
	"github.com/nightshift/inventory-backend/pkg/config"
	"github.com/nightshift/inventory-backend/pkg/db"
	"github.com/nightshift/inventory-backend/pkg/env"
	"github.com/nightshift/inventory-backend/pkg/instance"
	"github.com/nightshift/inventory-backend/pkg/lock"
	"github.com/nightshift/inventory-backend/pkg/logger"
	"github.com/nightshift/inventory-backend/pkg/metrics"
	"github.com/nightshift/inventory-backend/pkg/migrate"
	"github.com/nightshift/inventory-backend/pkg/redis"
)


func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if loaded, err := env.Load(); err != nil {
		logg.Error(context.Background(), "failed to read .env file", err)
		os.Exit(1)
	} else if !loaded {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	reconciler, err := buildReconciler(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire reconcile service", err)
		os.Exit(1)
	}
	reconcileJob, err := cron.NewMirrorReconcileJob(cron.MirrorReconcileJobParams{
		Logger:     logg,
		Reconciler: reconciler,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile job", err)
		os.Exit(1)
	}

	var locker lock.Locker
	if cfg.FeatureFlags.InProcessLocks {
		locker = lock.NewMemoryLocker(lock.RetryPolicy{Attempts: 1})
	} else {
		locker, err = lock.NewRedisLocker(redisClient.Raw(), lock.RetryPolicy{Attempts: 1})
		if err != nil {
			logg.Error(context.Background(), "failed to create redis locker", err)
			os.Exit(1)
		}
	}
	cronLock, err := cron.NewLockerLock(locker, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(reconcileJob)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       cronLock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(),
	})

	if *once {
		logg.Info(ctx, "running cron jobs once")
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron run failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildReconciler(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (reconcile.Service, error) {
	conn := dbClient.DB()
	sequences, err := sequence.NewService(sequence.ServiceParams{
		Repo:     sequence.NewRepository(conn),
		Attempts: cfg.Ledger.SequenceRetry,
	})
	if err != nil {
		return nil, fmt.Errorf("sequence: %w", err)
	}
	return reconcile.NewService(reconcile.ServiceParams{
		DB:            dbClient,
		Repo:          reconcile.NewRepository(conn),
		Organizations: organizations.NewRepository(conn),
		Customers:     customers.NewRepository(conn),
		Vendors:       vendors.NewRepository(conn),
		Orders:        orders.NewRepository(conn),
		Ledger:        ledger.NewRepository(conn),
		Sequence:      sequences,
		Logger:        logg,
		Parallelism:   cfg.Cron.ReconcileLimit,
	})
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return redis.LockKey("cron-worker", env)
}
