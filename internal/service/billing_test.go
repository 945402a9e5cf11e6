package service

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/subdesk/subdesk/internal/api/dto"
	"github.com/subdesk/subdesk/internal/domain/customer"
	"github.com/subdesk/subdesk/internal/domain/invoice"
	"github.com/subdesk/subdesk/internal/domain/subscription"
	ierr "github.com/subdesk/subdesk/internal/errors"
	"github.com/subdesk/subdesk/internal/testutil"
	"github.com/subdesk/subdesk/internal/types"
)

type BillingServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  BillingService
	customer *customer.Customer
}

func TestBillingService(t *testing.T) {
	suite.Run(t, new(BillingServiceSuite))
}

func (s *BillingServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewBillingService(newTestServiceParams(&s.BaseServiceTestSuite))
	s.customer = s.CreateTestCustomer("Kim Minji", "minji@example.com")
}

func (s *BillingServiceSuite) invoicesOf(subscriptionID string) []*invoice.Invoice {
	return s.GetStores().InvoiceRepo.ListBySubscription(s.GetContext(), subscriptionID)
}

func (s *BillingServiceSuite) reload(id string) *subscription.Subscription {
	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), id)
	s.Require().NoError(err)
	return sub
}

func (s *BillingServiceSuite) TestMonthlyWaitingSubscription() {
	now := s.GetNow()
	p := s.CreateTestPlan("Basic", 9900, types.BillingCycleMonthly)
	sub := s.CreateTestSubscription(s.customer.ID, p.ID, types.SubscriptionStatusWaiting, now)

	resp, err := s.service.GenerateDueInvoices(s.GetContext())
	s.Require().NoError(err)
	s.Equal("Generated 1 invoices", resp.Message)
	s.Equal(1, resp.GeneratedCount)
	s.Equal(0, resp.FailedCount)
	s.Equal(0, resp.SkippedCount)
	s.Require().Len(resp.Items, 1)
	s.Equal(dto.BillingItemStatusGenerated, resp.Items[0].Status)
	s.Equal(types.SubscriptionStatusWaiting, resp.Items[0].PreviousStatus)
	s.Equal(types.SubscriptionStatusActive, resp.Items[0].NewStatus)

	invoices := s.invoicesOf(sub.ID)
	s.Require().Len(invoices, 1)
	s.True(decimal.NewFromInt(9900).Equal(invoices[0].AmountPaid))
	s.Equal(types.DefaultCurrency, invoices[0].Currency)
	s.Equal(types.PaymentStatusPaid, invoices[0].PaymentStatus)
	s.True(invoices[0].BillingDate.Equal(now))

	updated := s.reload(sub.ID)
	s.Equal(types.SubscriptionStatusActive, updated.Status)
	s.True(updated.NextBillingDate.Equal(now.AddDate(0, 1, 0)), "got %s", updated.NextBillingDate)

	s.Equal(1, s.GetDB().TxCount)
}

func (s *BillingServiceSuite) TestAnnualSubscriptionDueYesterday() {
	now := s.GetNow()
	yesterday := now.AddDate(0, 0, -1)
	p := s.CreateTestPlan("Pro Annual", 99000, types.BillingCycleAnnual)
	sub := s.CreateTestSubscription(s.customer.ID, p.ID, types.SubscriptionStatusActive, yesterday)

	resp, err := s.service.GenerateDueInvoices(s.GetContext())
	s.Require().NoError(err)
	s.Equal(1, resp.GeneratedCount)

	invoices := s.invoicesOf(sub.ID)
	s.Require().Len(invoices, 1)
	s.True(decimal.NewFromInt(99000).Equal(invoices[0].AmountPaid))

	updated := s.reload(sub.ID)
	s.Equal(types.SubscriptionStatusActive, updated.Status)
	// advanced from the scheduled date, not from now
	s.True(updated.NextBillingDate.Equal(yesterday.AddDate(1, 0, 0)), "got %s", updated.NextBillingDate)
}

func (s *BillingServiceSuite) TestNotDueSubscriptionsUntouched() {
	now := s.GetNow()
	p := s.CreateTestPlan("Basic", 9900, types.BillingCycleMonthly)
	inactive := s.CreateTestSubscription(s.customer.ID, p.ID, types.SubscriptionStatusInactive, now.AddDate(0, -1, 0))
	future := s.CreateTestSubscription(s.customer.ID, p.ID, types.SubscriptionStatusActive, now.Add(time.Minute))

	resp, err := s.service.GenerateDueInvoices(s.GetContext())
	s.Require().NoError(err)
	s.Equal("Generated 0 invoices", resp.Message)
	s.Equal(0, resp.GeneratedCount)
	s.Empty(resp.Items)

	for _, sub := range []*subscription.Subscription{inactive, future} {
		s.Empty(s.invoicesOf(sub.ID))
		updated := s.reload(sub.ID)
		s.Equal(sub.Status, updated.Status)
		s.True(sub.NextBillingDate.Equal(updated.NextBillingDate))
	}
	s.Equal(0, s.GetDB().TxCount)
}

func (s *BillingServiceSuite) TestUsesCurrentPlanPrice() {
	now := s.GetNow()
	p := s.CreateTestPlan("Basic", 9900, types.BillingCycleMonthly)
	sub := s.CreateTestSubscription(s.customer.ID, p.ID, types.SubscriptionStatusActive, now)

	p.Price = decimal.NewFromInt(12900)
	s.Require().NoError(s.GetStores().PlanRepo.Update(s.GetContext(), p))

	_, err := s.service.GenerateDueInvoices(s.GetContext())
	s.Require().NoError(err)

	invoices := s.invoicesOf(sub.ID)
	s.Require().Len(invoices, 1)
	s.True(decimal.NewFromInt(12900).Equal(invoices[0].AmountPaid))
}

func (s *BillingServiceSuite) TestImmediateRerunBillsOverdueAgain() {
	now := s.GetNow()
	p := s.CreateTestPlan("Basic", 9900, types.BillingCycleMonthly)
	overdue := s.CreateTestSubscription(s.customer.ID, p.ID, types.SubscriptionStatusActive, now.AddDate(0, -3, 0))
	current := s.CreateTestSubscription(s.customer.ID, p.ID, types.SubscriptionStatusWaiting, now)

	first, err := s.service.GenerateDueInvoices(s.GetContext())
	s.Require().NoError(err)
	s.Equal(2, first.GeneratedCount)

	second, err := s.service.GenerateDueInvoices(s.GetContext())
	s.Require().NoError(err)
	s.Equal(1, second.GeneratedCount)
	s.Equal(overdue.ID, second.Items[0].SubscriptionID)

	s.Len(s.invoicesOf(overdue.ID), 2)
	s.Len(s.invoicesOf(current.ID), 1)
	s.True(s.reload(overdue.ID).NextBillingDate.Equal(now.AddDate(0, -1, 0)))
	s.True(s.reload(current.ID).NextBillingDate.Equal(now.AddDate(0, 1, 0)))
}

func (s *BillingServiceSuite) TestMonthEndClamping() {
	tests := []struct {
		name      string
		scheduled time.Time
		cycle     types.BillingCycle
		want      time.Time
	}{
		{
			name:      "jan 31 to leap feb 29",
			scheduled: time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
			cycle:     types.BillingCycleMonthly,
			want:      time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "jan 31 to feb 28",
			scheduled: time.Date(2023, time.January, 31, 0, 0, 0, 0, time.UTC),
			cycle:     types.BillingCycleMonthly,
			want:      time.Date(2023, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "leap day to feb 28 next year",
			scheduled: time.Date(2024, time.February, 29, 12, 0, 0, 0, time.UTC),
			cycle:     types.BillingCycleAnnual,
			want:      time.Date(2025, time.February, 28, 12, 0, 0, 0, time.UTC),
		},
		{
			name:      "december rolls into january",
			scheduled: time.Date(2023, time.December, 15, 0, 0, 0, 0, time.UTC),
			cycle:     types.BillingCycleMonthly,
			want:      time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			p := s.CreateTestPlan(tt.name, 1000, tt.cycle)
			sub := s.CreateTestSubscription(s.customer.ID, p.ID, types.SubscriptionStatusActive, tt.scheduled)

			_, err := s.service.GenerateDueInvoicesAt(s.GetContext(), tt.scheduled.Add(time.Hour))
			s.Require().NoError(err)

			updated := s.reload(sub.ID)
			s.True(updated.NextBillingDate.Equal(tt.want), "got %s", updated.NextBillingDate)

			// keep later cases from billing this one again
			updated.Status = types.SubscriptionStatusInactive
			s.Require().NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), updated))
		})
	}
}

func (s *BillingServiceSuite) TestCalendarMathUsesBillingTimezone() {
	cfg := s.GetConfig()
	original := cfg.Billing.Timezone
	cfg.Billing.Timezone = "Asia/Seoul"
	defer func() { cfg.Billing.Timezone = original }()

	seoul, err := time.LoadLocation("Asia/Seoul")
	s.Require().NoError(err)

	// Jan 31 00:00 in Seoul is still Jan 30 in UTC
	scheduled := time.Date(2024, time.January, 31, 0, 0, 0, 0, seoul)
	p := s.CreateTestPlan("Basic", 9900, types.BillingCycleMonthly)
	sub := s.CreateTestSubscription(s.customer.ID, p.ID, types.SubscriptionStatusActive, scheduled.UTC())

	_, err = s.service.GenerateDueInvoicesAt(s.GetContext(), scheduled.Add(time.Hour))
	s.Require().NoError(err)

	want := time.Date(2024, time.February, 29, 0, 0, 0, 0, seoul)
	s.True(s.reload(sub.ID).NextBillingDate.Equal(want), "got %s", s.reload(sub.ID).NextBillingDate)
}

func (s *BillingServiceSuite) TestFailureIsIsolated() {
	now := s.GetNow()
	p := s.CreateTestPlan("Basic", 9900, types.BillingCycleMonthly)
	broken := s.CreateTestSubscription(s.customer.ID, p.ID, types.SubscriptionStatusWaiting, now.Add(-time.Hour))
	healthy := s.CreateTestSubscription(s.customer.ID, p.ID, types.SubscriptionStatusWaiting, now)

	params := newTestServiceParams(&s.BaseServiceTestSuite)
	params.InvoiceRepo = &failingInvoiceRepo{
		Repository: s.GetStores().InvoiceRepo,
		failFor:    broken.ID,
	}
	svc := NewBillingService(params)

	resp, err := svc.GenerateDueInvoices(s.GetContext())
	s.Require().NoError(err)
	s.Equal(1, resp.GeneratedCount)
	s.Equal(1, resp.FailedCount)
	s.Equal("Generated 1 invoices", resp.Message)

	s.Require().Len(resp.Items, 2)
	s.Equal(broken.ID, resp.Items[0].SubscriptionID)
	s.Equal(dto.BillingItemStatusFailed, resp.Items[0].Status)
	s.NotEmpty(resp.Items[0].Error)
	s.Equal(dto.BillingItemStatusGenerated, resp.Items[1].Status)

	s.Empty(s.invoicesOf(broken.ID))
	s.Equal(types.SubscriptionStatusWaiting, s.reload(broken.ID).Status)
	s.Len(s.invoicesOf(healthy.ID), 1)
	s.Equal(types.SubscriptionStatusActive, s.reload(healthy.ID).Status)

	s.Equal(float64(1), promtest.ToFloat64(s.GetMetrics().BillingFailures))
	s.Equal(float64(1), promtest.ToFloat64(
		s.GetMetrics().BillingInvoicesGenerated.WithLabelValues(types.DefaultCurrency, string(types.BillingCycleMonthly)),
	))
}

func (s *BillingServiceSuite) TestPanicIsIsolated() {
	now := s.GetNow()
	p := s.CreateTestPlan("Basic", 9900, types.BillingCycleMonthly)
	broken := s.CreateTestSubscription(s.customer.ID, p.ID, types.SubscriptionStatusActive, now.Add(-time.Hour))
	healthy := s.CreateTestSubscription(s.customer.ID, p.ID, types.SubscriptionStatusActive, now)

	params := newTestServiceParams(&s.BaseServiceTestSuite)
	params.SubRepo = &hookedSubscriptionRepo{
		Repository: s.GetStores().SubscriptionRepo,
		beforeLock: func(id string) {
			if id == broken.ID {
				panic("lost connection")
			}
		},
	}
	svc := NewBillingService(params)

	resp, err := svc.GenerateDueInvoices(s.GetContext())
	s.Require().NoError(err)
	s.Equal(1, resp.GeneratedCount)
	s.Equal(1, resp.FailedCount)
	s.Contains(resp.Items[0].Error, "lost connection")
	s.Len(s.invoicesOf(healthy.ID), 1)
	s.Empty(s.invoicesOf(broken.ID))
}

func (s *BillingServiceSuite) TestSkipsSubscriptionAdvancedConcurrently() {
	now := s.GetNow()
	p := s.CreateTestPlan("Basic", 9900, types.BillingCycleMonthly)
	sub := s.CreateTestSubscription(s.customer.ID, p.ID, types.SubscriptionStatusActive, now)

	store := s.GetStores().SubscriptionRepo
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	params.SubRepo = &hookedSubscriptionRepo{
		Repository: store,
		beforeLock: func(id string) {
			// another run billed it between the scan and the lock
			err := store.UpdateBilling(context.Background(), id, subscription.BillingUpdate{
				NextBillingDate: now.AddDate(0, 1, 0),
				Status:          types.SubscriptionStatusActive,
				UpdatedAt:       now,
			})
			s.Require().NoError(err)
		},
	}
	svc := NewBillingService(params)

	resp, err := svc.GenerateDueInvoices(s.GetContext())
	s.Require().NoError(err)
	s.Equal(0, resp.GeneratedCount)
	s.Equal(1, resp.SkippedCount)
	s.Equal(dto.BillingItemStatusSkipped, resp.Items[0].Status)
	s.Empty(s.invoicesOf(sub.ID))
}

func (s *BillingServiceSuite) TestListFailureAbortsRun() {
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	params.SubRepo = &hookedSubscriptionRepo{
		Repository: s.GetStores().SubscriptionRepo,
		listErr:    ierr.NewError("connection refused").Mark(ierr.ErrDatabase),
	}
	svc := NewBillingService(params)

	resp, err := svc.GenerateDueInvoices(s.GetContext())
	s.Error(err)
	s.True(ierr.IsDatabase(err))
	s.Nil(resp)
}

func (s *BillingServiceSuite) TestRunMetricsByTrigger() {
	ctx := types.SetBillingTrigger(s.GetContext(), types.BillingTriggerCLI)
	_, err := s.service.GenerateDueInvoices(ctx)
	s.Require().NoError(err)

	s.Equal(float64(1), promtest.ToFloat64(s.GetMetrics().BillingRuns.WithLabelValues(types.BillingTriggerCLI)))
	s.Equal(float64(0), promtest.ToFloat64(s.GetMetrics().BillingRuns.WithLabelValues(types.BillingTriggerAPI)))
}

// failingInvoiceRepo refuses to store invoices for one subscription
type failingInvoiceRepo struct {
	invoice.Repository
	failFor string
}

func (r *failingInvoiceRepo) Create(ctx context.Context, inv *invoice.Invoice) error {
	if inv.SubscriptionID == r.failFor {
		return ierr.NewError("disk full").Mark(ierr.ErrDatabase)
	}
	return r.Repository.Create(ctx, inv)
}

// hookedSubscriptionRepo runs beforeLock ahead of every row lock
type hookedSubscriptionRepo struct {
	subscription.Repository
	beforeLock func(id string)
	listErr    error
}

func (r *hookedSubscriptionRepo) ListDue(ctx context.Context, now time.Time) ([]*subscription.DueSubscription, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.Repository.ListDue(ctx, now)
}

func (r *hookedSubscriptionRepo) GetDueForUpdate(ctx context.Context, id string, now time.Time) (*subscription.DueSubscription, error) {
	if r.beforeLock != nil {
		r.beforeLock(id)
	}
	return r.Repository.GetDueForUpdate(ctx, id, now)
}
