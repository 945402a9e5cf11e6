package service

import (
	"time"

	"github.com/subdesk/subdesk/internal/cache"
	"github.com/subdesk/subdesk/internal/clock"
	"github.com/subdesk/subdesk/internal/config"
	"github.com/subdesk/subdesk/internal/domain/customer"
	"github.com/subdesk/subdesk/internal/domain/invoice"
	"github.com/subdesk/subdesk/internal/domain/plan"
	"github.com/subdesk/subdesk/internal/domain/subscription"
	"github.com/subdesk/subdesk/internal/logger"
	"github.com/subdesk/subdesk/internal/metrics"
	"github.com/subdesk/subdesk/internal/postgres"
	"github.com/subdesk/subdesk/internal/sentry"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger  *logger.Logger
	Config  *config.Configuration
	DB      postgres.IClient
	Clock   clock.Clock
	Cache   cache.Cache
	Metrics *metrics.Registry
	Sentry  *sentry.Service

	// Repositories
	CustomerRepo customer.Repository
	PlanRepo     plan.Repository
	SubRepo      subscription.Repository
	InvoiceRepo  invoice.Repository
}

// NewServiceParams creates a new ServiceParams instance
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	clock clock.Clock,
	cache cache.Cache,
	metrics *metrics.Registry,
	sentry *sentry.Service,
	customerRepo customer.Repository,
	planRepo plan.Repository,
	subRepo subscription.Repository,
	invoiceRepo invoice.Repository,
) ServiceParams {
	return ServiceParams{
		Logger:       logger,
		Config:       config,
		DB:           db,
		Clock:        clock,
		Cache:        cache,
		Metrics:      metrics,
		Sentry:       sentry,
		CustomerRepo: customerRepo,
		PlanRepo:     planRepo,
		SubRepo:      subRepo,
		InvoiceRepo:  invoiceRepo,
	}
}

// now returns the clock reading in the configured billing location
func (p ServiceParams) now() time.Time {
	return p.Clock.Now().In(p.location())
}

func (p ServiceParams) location() *time.Location {
	if p.Config == nil {
		return time.UTC
	}
	return p.Config.Billing.Location()
}
