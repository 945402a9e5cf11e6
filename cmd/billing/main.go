// Command billing runs one billing cycle and exits. It is meant to be
// scheduled by an external cron.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/subdesk/subdesk/internal/api/dto"
	"github.com/subdesk/subdesk/internal/cache"
	"github.com/subdesk/subdesk/internal/clock"
	"github.com/subdesk/subdesk/internal/config"
	"github.com/subdesk/subdesk/internal/logger"
	"github.com/subdesk/subdesk/internal/metrics"
	"github.com/subdesk/subdesk/internal/postgres"
	"github.com/subdesk/subdesk/internal/repository"
	"github.com/subdesk/subdesk/internal/sentry"
	"github.com/subdesk/subdesk/internal/service"
	"github.com/subdesk/subdesk/internal/types"
	"go.uber.org/fx"
)

func main() {
	timeout := flag.Duration("timeout", 10*time.Minute, "Abort the run after this long")
	flag.Parse()

	resp, err := run(*timeout)
	if err != nil {
		log.Fatalf("Billing run failed: %v", err)
	}

	if err := json.NewEncoder(os.Stdout).Encode(resp); err != nil {
		log.Fatalf("Failed to write summary: %v", err)
	}
}

func run(timeout time.Duration) (*dto.GenerateInvoicesResponse, error) {
	var (
		billing service.BillingService
		db      *postgres.DB
		zlog    *logger.Logger
	)

	app := fx.New(
		fx.NopLogger,
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			metrics.NewRegistry,
			cache.NewInMemoryCache,
			cache.NewCache,
			postgres.NewDB,
			func(db *postgres.DB) postgres.IClient { return db },
			repository.NewCustomerRepository,
			repository.NewPlanRepository,
			repository.NewSubscriptionRepository,
			repository.NewInvoiceRepository,
			service.NewServiceParams,
			service.NewBillingService,
		),
		clock.Module,
		sentry.Module(),
		fx.Populate(&billing, &db, &zlog),
	)
	if err := app.Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return nil, err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := app.Stop(stopCtx); err != nil {
			zlog.Errorw("failed to stop cleanly", "error", err)
		}
		db.Close()
	}()

	resp, err := billing.GenerateDueInvoices(types.SetBillingTrigger(ctx, types.BillingTriggerCLI))
	if err != nil {
		return nil, err
	}

	zlog.Infow("billing run finished",
		"generated", resp.GeneratedCount,
		"failed", resp.FailedCount,
		"skipped", resp.SkippedCount,
	)
	return resp, nil
}
