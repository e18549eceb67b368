// Package runtime wires configuration, storage, services and the HTTP server
// into a runnable process.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/petrolink/fuelhub/internal/app"
	"github.com/petrolink/fuelhub/internal/app/auth"
	"github.com/petrolink/fuelhub/internal/app/domain/user"
	"github.com/petrolink/fuelhub/internal/app/httpapi"
	"github.com/petrolink/fuelhub/internal/app/storage/postgres"
	"github.com/petrolink/fuelhub/internal/config"
	"github.com/petrolink/fuelhub/internal/middleware"
	"github.com/petrolink/fuelhub/internal/platform/cache"
	"github.com/petrolink/fuelhub/internal/platform/database"
	"github.com/petrolink/fuelhub/internal/platform/migrations"
	"github.com/petrolink/fuelhub/pkg/logger"
)

// Application owns the process-level dependencies and the HTTP listener.
type Application struct {
	cfg         *config.Config
	log         *logger.Logger
	app         *app.Application
	httpServer  *http.Server
	db          *sql.DB
	rateLimiter *middleware.RateLimiter
}

// NewApplication loads configuration and builds the full service graph. When
// the database is not configured the application falls back to in-memory
// stores, which suits local development.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewApplicationWithConfig(cfg)
}

// NewApplicationWithConfig builds the service graph from an already loaded
// configuration.
func NewApplicationWithConfig(cfg *config.Config) (*Application, error) {
	log := logger.New(cfg.Logging)

	ctx := context.Background()

	var stores app.Stores
	var db *sql.DB
	if cfg.Database.DSN != "" {
		openedDB, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := migrations.Apply(ctx, openedDB); err != nil {
			openedDB.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		store := postgres.New(openedDB)
		stores = app.Stores{
			Users:        store,
			Balances:     store,
			Coupons:      store,
			Transactions: store,
			Vehicles:     store,
			Merchants:    store,
			Stats:        store,
		}
		db = openedDB
	} else {
		log.Warn("no database configured, using in-memory stores")
	}

	cacheClient, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		log.WithError(err).Warn("cache unavailable, continuing without it")
	}

	var authMgr *auth.Manager
	if cfg.Auth.JWTSecret != "" {
		authMgr = auth.NewManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTL)*time.Minute)
	}

	application, err := app.New(stores, app.Options{
		Auth:  authMgr,
		Cache: cacheClient,
	}, log)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("build application: %w", err)
	}

	if err := seedAdmin(ctx, application, cfg.Auth); err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}

	var auditSink httpapi.AuditSink
	if db != nil {
		auditSink = httpapi.NewPostgresAuditSink(db)
	}
	handler := httpapi.NewHandler(application, httpapi.Config{AuditSink: auditSink}, log)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	rateLimiter.StartCleanup(5 * time.Minute)
	cors := middleware.NewCORSMiddleware(nil)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      cors.Handler(rateLimiter.Handler(handler)),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return &Application{
		cfg:         cfg,
		log:         log,
		app:         application,
		httpServer:  httpServer,
		db:          db,
		rateLimiter: rateLimiter,
	}, nil
}

// App exposes the wired application, mainly for tests.
func (a *Application) App() *app.Application {
	return a.app
}

// Run starts the background services and the HTTP server, blocking until the
// context is cancelled or the listener fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the listener, the background services and the database.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(a.cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("http server shutdown")
	}
	a.rateLimiter.StopCleanup()
	if err := a.app.Stop(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("service shutdown")
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	return nil
}

// seedAdmin creates the bootstrap administrator when credentials are
// configured. An existing account is left untouched.
func seedAdmin(ctx context.Context, application *app.Application, cfg config.AuthConfig) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	_, err := application.Users.Ensure(ctx, cfg.AdminEmail, "Administrator", cfg.AdminPassword, user.RoleAdmin)
	if err != nil {
		return fmt.Errorf("seed admin account: %w", err)
	}
	return nil
}
