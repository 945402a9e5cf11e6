package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"github.com/subdesk/subdesk/internal/api/dto"
	"github.com/subdesk/subdesk/internal/types"
)

type DashboardService interface {
	// GetStats recomputes every figure from the stores on each call
	GetStats(ctx context.Context) (*dto.DashboardStatsResponse, error)
}

type dashboardService struct {
	ServiceParams
}

func NewDashboardService(params ServiceParams) DashboardService {
	return &dashboardService{
		ServiceParams: params,
	}
}

func (s *dashboardService) GetStats(ctx context.Context) (*dto.DashboardStatsResponse, error) {
	now := s.now()
	monthStart := types.StartOfMonth(now)
	nextMonthStart := types.StartOfNextMonth(now)

	var (
		byStatus       map[types.SubscriptionStatus]int
		customers      dto.CustomerStats
		monthlyRevenue decimal.Decimal
		actualRevenue  decimal.Decimal
	)

	// each task writes only its own variable
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		byStatus, err = s.SubRepo.CountByStatus(ctx)
		return err
	})
	p.Go(func(ctx context.Context) error {
		stats, err := NewCustomerService(s.ServiceParams).GetCustomerStats(ctx)
		if err != nil {
			return err
		}
		customers = dto.CustomerStats{
			Total:        stats.TotalCustomers,
			Active:       stats.ActiveCustomers,
			NewThisMonth: stats.NewCustomersThisMonth,
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var err error
		monthlyRevenue, err = s.SubRepo.SumActivePlanPrices(ctx)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		actualRevenue, err = s.InvoiceRepo.SumPaid(ctx, monthStart, nextMonthStart)
		return err
	})
	if err := p.Wait(); err != nil {
		s.Logger.Errorw("failed to compute dashboard stats", "error", err)
		return nil, err
	}

	subs := dto.SubscriptionStats{
		Active:   byStatus[types.SubscriptionStatusActive],
		Waiting:  byStatus[types.SubscriptionStatusWaiting],
		Inactive: byStatus[types.SubscriptionStatusInactive],
	}
	for _, n := range byStatus {
		subs.Total += n
	}

	return &dto.DashboardStatsResponse{
		Subscriptions:  subs,
		Customers:      customers,
		MonthlyRevenue: monthlyRevenue,
		ActualRevenue:  actualRevenue,
	}, nil
}
