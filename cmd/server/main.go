package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subdesk/subdesk/internal/api"
	v1 "github.com/subdesk/subdesk/internal/api/v1"
	"github.com/subdesk/subdesk/internal/cache"
	"github.com/subdesk/subdesk/internal/clock"
	"github.com/subdesk/subdesk/internal/config"
	"github.com/subdesk/subdesk/internal/logger"
	"github.com/subdesk/subdesk/internal/metrics"
	"github.com/subdesk/subdesk/internal/migration"
	"github.com/subdesk/subdesk/internal/postgres"
	"github.com/subdesk/subdesk/internal/repository"
	"github.com/subdesk/subdesk/internal/sentry"
	"github.com/subdesk/subdesk/internal/service"
	"github.com/subdesk/subdesk/internal/validator"
	"go.uber.org/fx"
)

// @title Subdesk API
// @version 1.0
// @description Subscription billing back office
// @BasePath /v1
// @schemes http https

func init() {
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			validator.NewValidator,
			config.NewConfig,
			logger.NewLogger,
			metrics.NewRegistry,

			// Cache
			cache.NewInMemoryCache,
			cache.NewCache,

			// Postgres
			postgres.NewDB,
			provideTxClient,

			// Repositories
			repository.NewCustomerRepository,
			repository.NewPlanRepository,
			repository.NewSubscriptionRepository,
			repository.NewInvoiceRepository,
		),
		clock.Module,
		sentry.Module(),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewCustomerService,
			service.NewPlanService,
			service.NewSubscriptionService,
			service.NewBillingService,
			service.NewInvoiceService,
			service.NewDashboardService,
			service.NewDebugService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHealthHandler,
			v1.NewCustomerHandler,
			v1.NewPlanHandler,
			v1.NewSubscriptionHandler,
			v1.NewBillingHandler,
			v1.NewDashboardHandler,
			v1.NewDebugHandler,
			api.NewHandlers,
			api.NewRouter,
		),
		fx.Invoke(
			runMigrations,
			startAPIServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideTxClient(db *postgres.DB) postgres.IClient {
	return db
}

func provideHealthHandler(db *postgres.DB, log *logger.Logger) *v1.HealthHandler {
	return v1.NewHealthHandler(db.DB, log)
}

// runMigrations applies pending migrations before the server starts when
// postgres.auto_migrate is set
func runMigrations(lc fx.Lifecycle, cfg *config.Configuration, db *postgres.DB, log *logger.Logger) {
	if !cfg.Postgres.AutoMigrate {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			applied, err := migration.NewRunner(db.DB, log).Up(ctx)
			if err != nil {
				return err
			}
			log.Infow("migrations applied", "count", applied)
			return nil
		},
	})
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	db *postgres.DB,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server")
			err := srv.Shutdown(ctx)
			db.Close()
			return err
		},
	})
}
