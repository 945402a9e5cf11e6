package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/subdesk/subdesk/internal/domain/invoice"
	"github.com/subdesk/subdesk/internal/testutil"
	"github.com/subdesk/subdesk/internal/types"
)

type DashboardServiceSuite struct {
	testutil.BaseServiceTestSuite
	service DashboardService
}

func TestDashboardService(t *testing.T) {
	suite.Run(t, new(DashboardServiceSuite))
}

func (s *DashboardServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewDashboardService(newTestServiceParams(&s.BaseServiceTestSuite))
}

func (s *DashboardServiceSuite) addInvoice(subscriptionID string, amount int64) *invoice.Invoice {
	inv := &invoice.Invoice{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		SubscriptionID: subscriptionID,
		AmountPaid:     decimal.NewFromInt(amount),
		Currency:       types.DefaultCurrency,
		PaymentStatus:  types.PaymentStatusPaid,
		BillingDate:    s.GetNow(),
		CreatedAt:      s.GetNow(),
	}
	s.Require().NoError(s.GetStores().InvoiceRepo.Create(s.GetContext(), inv))
	return inv
}

func (s *DashboardServiceSuite) TestEmpty() {
	resp, err := s.service.GetStats(s.GetContext())
	s.Require().NoError(err)
	s.Equal(0, resp.Subscriptions.Total)
	s.Equal(0, resp.Customers.Total)
	s.True(resp.MonthlyRevenue.IsZero())
	s.True(resp.ActualRevenue.IsZero())
}

func (s *DashboardServiceSuite) TestStats() {
	now := s.GetNow()
	kim := s.CreateTestCustomer("Kim", "kim@example.com")
	lee := s.CreateTestCustomer("Lee", "lee@example.com")
	lee.Status = types.CustomerStatusInactive
	lee.CreatedAt = now.AddDate(0, -2, 0)
	s.Require().NoError(s.GetStores().CustomerRepo.Update(s.GetContext(), lee))

	basic := s.CreateTestPlan("Basic", 9900, types.BillingCycleMonthly)
	pro := s.CreateTestPlan("Pro", 99000, types.BillingCycleAnnual)
	a := s.CreateTestSubscription(kim.ID, basic.ID, types.SubscriptionStatusActive, now)
	b := s.CreateTestSubscription(kim.ID, pro.ID, types.SubscriptionStatusActive, now)
	s.CreateTestSubscription(kim.ID, basic.ID, types.SubscriptionStatusWaiting, now)
	s.CreateTestSubscription(lee.ID, pro.ID, types.SubscriptionStatusInactive, now)

	s.addInvoice(a.ID, 9900)
	s.addInvoice(b.ID, 99000)
	lastMonth := s.addInvoice(a.ID, 9900)
	lastMonth.BillingDate = types.StartOfMonth(now).Add(-1)
	s.Require().NoError(s.GetStores().InvoiceRepo.Update(s.GetContext(), lastMonth.ID, lastMonth))

	resp, err := s.service.GetStats(s.GetContext())
	s.Require().NoError(err)

	s.Equal(4, resp.Subscriptions.Total)
	s.Equal(2, resp.Subscriptions.Active)
	s.Equal(1, resp.Subscriptions.Waiting)
	s.Equal(1, resp.Subscriptions.Inactive)

	s.Equal(2, resp.Customers.Total)
	s.Equal(1, resp.Customers.Active)
	s.Equal(1, resp.Customers.NewThisMonth)

	s.True(decimal.NewFromInt(108900).Equal(resp.MonthlyRevenue), "got %s", resp.MonthlyRevenue)
	s.True(decimal.NewFromInt(108900).Equal(resp.ActualRevenue), "got %s", resp.ActualRevenue)
}
