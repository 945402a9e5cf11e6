package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	ierr "github.com/subdesk/subdesk/internal/errors"
	"github.com/subdesk/subdesk/internal/testutil"
	"github.com/subdesk/subdesk/internal/types"
)

type DebugServiceSuite struct {
	testutil.BaseServiceTestSuite
	service DebugService
	billing BillingService
}

func TestDebugService(t *testing.T) {
	suite.Run(t, new(DebugServiceSuite))
}

func (s *DebugServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewDebugService(params)
	s.billing = NewBillingService(params)
}

func (s *DebugServiceSuite) TestResetInvoices() {
	c := s.CreateTestCustomer("Kim", "kim@example.com")
	p := s.CreateTestPlan("Basic", 9900, types.BillingCycleMonthly)
	sub := s.CreateTestSubscription(c.ID, p.ID, types.SubscriptionStatusWaiting, s.GetNow())
	s.CreateTestSubscription(c.ID, p.ID, types.SubscriptionStatusActive, s.GetNow())

	_, err := s.billing.GenerateDueInvoices(s.GetContext())
	s.Require().NoError(err)

	resp, err := s.service.ResetInvoices(s.GetContext())
	s.Require().NoError(err)
	s.Equal(2, resp.DeletedCount)
	s.Equal("Deleted 2 invoices", resp.Message)
	s.Empty(s.GetStores().InvoiceRepo.ListBySubscription(s.GetContext(), sub.ID))

	// schedules keep their advanced dates
	stored, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.True(stored.NextBillingDate.Equal(s.GetNow().AddDate(0, 1, 0)))

	resp, err = s.service.ResetInvoices(s.GetContext())
	s.Require().NoError(err)
	s.Equal(0, resp.DeletedCount)
}

func (s *DebugServiceSuite) TestSetDueToday() {
	c := s.CreateTestCustomer("Kim", "kim@example.com")
	p := s.CreateTestPlan("Basic", 9900, types.BillingCycleMonthly)
	today := types.StartOfDay(s.GetNow())

	s.Run("no candidates", func() {
		s.CreateTestSubscription(c.ID, p.ID, types.SubscriptionStatusWaiting, s.GetNow().AddDate(0, 1, 0))
		s.CreateTestSubscription(c.ID, p.ID, types.SubscriptionStatusActive, today)

		_, err := s.service.SetDueToday(s.GetContext())
		s.Error(err)
		s.True(ierr.IsNotFound(err))
	})

	s.Run("moves an active subscription", func() {
		sub := s.CreateTestSubscription(c.ID, p.ID, types.SubscriptionStatusActive, s.GetNow().AddDate(0, 1, 0))

		resp, err := s.service.SetDueToday(s.GetContext())
		s.Require().NoError(err)
		s.Equal(sub.ID, resp.Subscription.ID)
		s.True(resp.Subscription.NextBillingDate.Equal(today))
		s.Contains(resp.Message, sub.ID)

		stored, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
		s.Require().NoError(err)
		s.True(stored.NextBillingDate.Equal(today))

		// due now, so the next run bills it
		s.GetClock().Advance(time.Minute)
		run, err := s.billing.GenerateDueInvoices(s.GetContext())
		s.Require().NoError(err)
		s.Equal(2, run.GeneratedCount)
	})
}
