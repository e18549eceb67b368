// Package app wires the domain services, storage and background workers into
// one application.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/petrolink/fuelhub/internal/app/auth"
	"github.com/petrolink/fuelhub/internal/app/services/coupons"
	"github.com/petrolink/fuelhub/internal/app/services/dashboard"
	"github.com/petrolink/fuelhub/internal/app/services/ledger"
	"github.com/petrolink/fuelhub/internal/app/services/merchants"
	"github.com/petrolink/fuelhub/internal/app/services/transactions"
	"github.com/petrolink/fuelhub/internal/app/services/users"
	"github.com/petrolink/fuelhub/internal/app/services/vehicles"
	"github.com/petrolink/fuelhub/internal/app/storage"
	"github.com/petrolink/fuelhub/internal/app/storage/memory"
	"github.com/petrolink/fuelhub/internal/app/system"
	"github.com/petrolink/fuelhub/internal/platform/cache"
	"github.com/petrolink/fuelhub/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users        storage.UserStore
	Balances     storage.BalanceStore
	Coupons      storage.CouponStore
	Transactions storage.TransactionStore
	Vehicles     storage.VehicleStore
	Merchants    storage.MerchantStore
	Stats        storage.StatsStore
}

// Options carries optional application dependencies.
type Options struct {
	Auth          *auth.Manager
	Cache         *cache.Cache
	SweepSchedule string
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Auth         *auth.Manager
	Users        *users.Service
	Ledger       *ledger.Service
	Coupons      *coupons.Service
	Transactions *transactions.Service
	Vehicles     *vehicles.Service
	Merchants    *merchants.Service
	Dashboard    *dashboard.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Balances == nil {
		stores.Balances = mem
	}
	if stores.Coupons == nil {
		stores.Coupons = mem
	}
	if stores.Transactions == nil {
		stores.Transactions = mem
	}
	if stores.Vehicles == nil {
		stores.Vehicles = mem
	}
	if stores.Merchants == nil {
		stores.Merchants = mem
	}
	if stores.Stats == nil {
		stores.Stats = mem
	}

	authManager := opts.Auth
	if authManager == nil {
		authManager = auth.NewManager("insecure-dev-secret", 24*time.Hour)
		log.Warn("no auth manager configured; using insecure development secret")
	}

	userService := users.New(stores.Users, log)
	ledgerService := ledger.New(stores.Balances, log)
	couponService := coupons.New(stores.Coupons, log)
	txnService := transactions.New(stores.Transactions, stores.Balances, stores.Merchants, log)
	vehicleService := vehicles.New(stores.Vehicles, log)
	merchantService := merchants.New(stores.Merchants, log)
	dashboardService := dashboard.New(stores.Stats, opts.Cache, log)

	manager := system.NewManager()
	sweeper := coupons.NewSweeper(couponService, opts.SweepSchedule, log)
	if err := manager.Register(sweeper); err != nil {
		return nil, fmt.Errorf("register %s: %w", sweeper.Name(), err)
	}

	return &Application{
		manager:      manager,
		log:          log,
		Auth:         authManager,
		Users:        userService,
		Ledger:       ledgerService,
		Coupons:      couponService,
		Transactions: txnService,
		Vehicles:     vehicleService,
		Merchants:    merchantService,
		Dashboard:    dashboardService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered background services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all background services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
