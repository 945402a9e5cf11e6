package repository

import (
	"github.com/subdesk/subdesk/internal/domain/customer"
	"github.com/subdesk/subdesk/internal/domain/invoice"
	"github.com/subdesk/subdesk/internal/domain/plan"
	"github.com/subdesk/subdesk/internal/domain/subscription"
	"github.com/subdesk/subdesk/internal/logger"
	"github.com/subdesk/subdesk/internal/postgres"
	postgresRepo "github.com/subdesk/subdesk/internal/repository/postgres"
)

func NewCustomerRepository(db *postgres.DB, logger *logger.Logger) customer.Repository {
	return postgresRepo.NewCustomerRepository(db, logger)
}

func NewPlanRepository(db *postgres.DB, logger *logger.Logger) plan.Repository {
	return postgresRepo.NewPlanRepository(db, logger)
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(db, logger)
}
