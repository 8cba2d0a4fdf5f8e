package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nightshift/inventory-backend/api/routes"
	"github.com/nightshift/inventory-backend/internal/auth"
	"github.com/nightshift/inventory-backend/internal/customers"
	"github.com/nightshift/inventory-backend/internal/employees"
	"github.com/nightshift/inventory-backend/internal/items"
	"github.com/nightshift/inventory-backend/internal/ledger"
	"github.com/nightshift/inventory-backend/internal/orders"
	"github.com/nightshift/inventory-backend/internal/organizations"
	"github.com/nightshift/inventory-backend/internal/reconcile"
	"github.com/nightshift/inventory-backend/internal/reviews"
	"github.com/nightshift/inventory-backend/internal/sequence"
	"github.com/nightshift/inventory-backend/internal/vendors"
	"github.com/nightshift/inventory-backend/pkg/config"
	"github.com/nightshift/inventory-backend/pkg/db"
	"github.com/nightshift/inventory-backend/pkg/lock"
	"github.com/nightshift/inventory-backend/pkg/logger"
	"github.com/nightshift/inventory-backend/pkg/metrics"
	"github.com/nightshift/inventory-backend/pkg/redis"
)

func newLocker(cfg *config.Config, redisClient *redis.Client) (lock.Locker, error) {
	policy := lock.RetryPolicy{
		Attempts: cfg.Ledger.LockAttempts,
		Backoff:  cfg.Ledger.LockBackoff,
	}
	if cfg.FeatureFlags.InProcessLocks {
		return lock.NewMemoryLocker(policy), nil
	}
	return lock.NewRedisLocker(redisClient.Raw(), policy)
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, locker lock.Locker, reg prometheus.Registerer) (routes.Services, error) {
	conn := dbClient.DB()

	orgRepo := organizations.NewRepository(conn)
	orgService, err := organizations.NewService(orgRepo)
	if err != nil {
		return routes.Services{}, fmt.Errorf("organizations: %w", err)
	}

	sequences, err := sequence.NewService(sequence.ServiceParams{
		Repo:     sequence.NewRepository(conn),
		Attempts: cfg.Ledger.SequenceRetry,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("sequence: %w", err)
	}

	vendorRepo := vendors.NewRepository(conn)
	vendorService, err := vendors.NewService(vendors.ServiceParams{
		Repo:     vendorRepo,
		DB:       dbClient,
		Sequence: sequences,
		Refs:     orgService,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("vendors: %w", err)
	}

	ledgerRepo := ledger.NewRepository(conn)
	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repo:           ledgerRepo,
		DB:             dbClient,
		Locker:         locker,
		Restocks:       vendorService,
		Metrics:        metrics.NewLedgerMetrics(reg),
		Logger:         logg,
		LockTTL:        cfg.Ledger.LockTTL,
		VersionRetries: cfg.Ledger.VersionRetry,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("ledger: %w", err)
	}

	itemService, err := items.NewService(items.ServiceParams{
		Repo:     items.NewRepository(conn),
		DB:       dbClient,
		Ledger:   ledgerService,
		Vendors:  vendorService,
		Sequence: sequences,
		Refs:     orgService,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("items: %w", err)
	}

	customerRepo := customers.NewRepository(conn)
	customerService, err := customers.NewService(customers.ServiceParams{
		Repo:     customerRepo,
		DB:       dbClient,
		Sequence: sequences,
		Refs:     orgService,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("customers: %w", err)
	}

	orderRepo := orders.NewRepository(conn)
	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:              orderRepo,
		DB:                dbClient,
		Ledger:            ledgerService,
		Customers:         customerService,
		Sequence:          sequences,
		Refs:              orgService,
		Logger:            logg,
		Locker:            locker,
		LockTTL:           cfg.Orders.LockTTL,
		StrictTransitions: cfg.Orders.StrictTransitions,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("orders: %w", err)
	}

	employeeService, err := employees.NewService(employees.ServiceParams{
		Repo:     employees.NewRepository(conn),
		Sequence: sequences,
		Refs:     orgService,
		Logger:   logg,
		Password: cfg.Password,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("employees: %w", err)
	}

	reviewService, err := reviews.NewService(reviews.ServiceParams{
		Repo:   reviews.NewRepository(conn),
		DB:     dbClient,
		Locker: locker,
		Logger: logg,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("reviews: %w", err)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		DB:            dbClient,
		Organizations: orgRepo,
		Refs:          orgService,
		Employees:     employeeService,
		JWTConfig:     cfg.JWT,
		Logger:        logg,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("auth: %w", err)
	}

	reconcileService, err := reconcile.NewService(reconcile.ServiceParams{
		DB:            dbClient,
		Repo:          reconcile.NewRepository(conn),
		Organizations: orgRepo,
		Customers:     customerRepo,
		Vendors:       vendorRepo,
		Orders:        orderRepo,
		Ledger:        ledgerRepo,
		Sequence:      sequences,
		Logger:        logg,
		Parallelism:   cfg.Cron.ReconcileLimit,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("reconcile: %w", err)
	}

	return routes.Services{
		Auth:          authService,
		Organizations: orgService,
		Items:         itemService,
		Vendors:       vendorService,
		Customers:     customerService,
		Orders:        orderService,
		Employees:     employeeService,
		Reviews:       reviewService,
		Reconcile:     reconcileService,
	}, nil
}
