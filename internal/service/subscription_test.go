package service

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
	"github.com/subdesk/subdesk/internal/api/dto"
	"github.com/subdesk/subdesk/internal/domain/customer"
	"github.com/subdesk/subdesk/internal/domain/invoice"
	"github.com/subdesk/subdesk/internal/domain/plan"
	ierr "github.com/subdesk/subdesk/internal/errors"
	"github.com/subdesk/subdesk/internal/testutil"
	"github.com/subdesk/subdesk/internal/types"
)

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  SubscriptionService
	customer *customer.Customer
	plan     *plan.Plan
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewSubscriptionService(newTestServiceParams(&s.BaseServiceTestSuite))
	s.customer = s.CreateTestCustomer("Kim Minji", "minji@example.com")
	s.plan = s.CreateTestPlan("Basic", 9900, types.BillingCycleMonthly)
}

func (s *SubscriptionServiceSuite) TestCreateSubscription() {
	resp, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		CustomerID: s.customer.ID,
		PlanID:     s.plan.ID,
	})
	s.Require().NoError(err)

	s.Equal(types.SubscriptionStatusWaiting, resp.Status)
	s.Equal(types.PaymentTypeRecurring, resp.PaymentType)
	s.Equal("tok_recurring_visa", lo.FromPtr(resp.PaymentMethodToken))
	s.True(resp.NextBillingDate.Equal(s.GetNow()))
	s.True(resp.StartDate.Equal(s.GetNow()))
	s.Nil(resp.EndDate)
	s.Equal(s.customer.ID, resp.Customer.ID)
	s.Equal(s.plan.ID, resp.Plan.ID)

	stored, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	s.True(stored.IsDue(s.GetNow()))
}

func (s *SubscriptionServiceSuite) TestCreateSubscriptionRejected() {
	inactive := s.CreateTestPlan("Retired", 100, types.BillingCycleMonthly)
	inactive.IsActive = false
	s.Require().NoError(s.GetStores().PlanRepo.Update(s.GetContext(), inactive))

	tests := []struct {
		name    string
		req     dto.CreateSubscriptionRequest
		wantErr func(error) bool
	}{
		{
			name:    "missing customer",
			req:     dto.CreateSubscriptionRequest{CustomerID: "cust_missing", PlanID: s.plan.ID},
			wantErr: ierr.IsNotFound,
		},
		{
			name:    "missing plan",
			req:     dto.CreateSubscriptionRequest{CustomerID: s.customer.ID, PlanID: "plan_missing"},
			wantErr: ierr.IsNotFound,
		},
		{
			name:    "inactive plan",
			req:     dto.CreateSubscriptionRequest{CustomerID: s.customer.ID, PlanID: inactive.ID},
			wantErr: ierr.IsInvalidOperation,
		},
		{
			name: "unknown payment type",
			req: dto.CreateSubscriptionRequest{
				CustomerID:  s.customer.ID,
				PlanID:      s.plan.ID,
				PaymentType: types.PaymentType("CRYPTO"),
			},
			wantErr: ierr.IsValidation,
		},
		{
			name:    "missing ids",
			req:     dto.CreateSubscriptionRequest{},
			wantErr: ierr.IsValidation,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.CreateSubscription(s.GetContext(), tt.req)
			s.Error(err)
			s.True(tt.wantErr(err), "unexpected error: %v", err)
		})
	}
}

func (s *SubscriptionServiceSuite) TestActivatingSubscriptionActivatesCustomer() {
	s.customer.Status = types.CustomerStatusInactive
	s.Require().NoError(s.GetStores().CustomerRepo.Update(s.GetContext(), s.customer))
	sub := s.CreateTestSubscription(s.customer.ID, s.plan.ID, types.SubscriptionStatusInactive, s.GetNow())

	resp, err := s.service.UpdateSubscription(s.GetContext(), sub.ID, dto.UpdateSubscriptionRequest{
		Status: lo.ToPtr(types.SubscriptionStatusActive),
	})
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, resp.Status)
	s.Equal(types.CustomerStatusActive, resp.Customer.Status)
	s.Equal(1, s.GetDB().TxCount)

	c, err := s.GetStores().CustomerRepo.Get(s.GetContext(), s.customer.ID)
	s.Require().NoError(err)
	s.Equal(types.CustomerStatusActive, c.Status)
}

func (s *SubscriptionServiceSuite) TestDeactivatingLeavesCustomer() {
	sub := s.CreateTestSubscription(s.customer.ID, s.plan.ID, types.SubscriptionStatusActive, s.GetNow())

	resp, err := s.service.UpdateSubscription(s.GetContext(), sub.ID, dto.UpdateSubscriptionRequest{
		Status: lo.ToPtr(types.SubscriptionStatusInactive),
	})
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusInactive, resp.Status)
	s.Equal(types.CustomerStatusActive, resp.Customer.Status)
}

func (s *SubscriptionServiceSuite) TestChangePaymentTypeResetsToken() {
	sub := s.CreateTestSubscription(s.customer.ID, s.plan.ID, types.SubscriptionStatusActive, s.GetNow())

	resp, err := s.service.UpdateSubscription(s.GetContext(), sub.ID, dto.UpdateSubscriptionRequest{
		PaymentType: lo.ToPtr(types.PaymentTypeOneTime),
	})
	s.Require().NoError(err)
	s.Equal(types.PaymentTypeOneTime, resp.PaymentType)
	s.Equal("tok_onetime_card", lo.FromPtr(resp.PaymentMethodToken))
}

func (s *SubscriptionServiceSuite) TestChangePlan() {
	sub := s.CreateTestSubscription(s.customer.ID, s.plan.ID, types.SubscriptionStatusActive, s.GetNow())
	premium := s.CreateTestPlan("Premium", 29900, types.BillingCycleMonthly)
	retired := s.CreateTestPlan("Retired", 100, types.BillingCycleMonthly)
	retired.IsActive = false
	s.Require().NoError(s.GetStores().PlanRepo.Update(s.GetContext(), retired))

	resp, err := s.service.UpdateSubscription(s.GetContext(), sub.ID, dto.UpdateSubscriptionRequest{
		PlanID: lo.ToPtr(premium.ID),
	})
	s.Require().NoError(err)
	s.Equal(premium.ID, resp.PlanID)
	s.Equal("Premium", resp.Plan.Name)

	_, err = s.service.UpdateSubscription(s.GetContext(), sub.ID, dto.UpdateSubscriptionRequest{
		PlanID: lo.ToPtr(retired.ID),
	})
	s.True(ierr.IsInvalidOperation(err))

	_, err = s.service.UpdateSubscription(s.GetContext(), "subs_missing", dto.UpdateSubscriptionRequest{
		PlanID: lo.ToPtr(premium.ID),
	})
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionServiceSuite) TestGetSubscriptions() {
	other := s.CreateTestCustomer("Lee Jiwoo", "jiwoo@example.com")
	s.CreateTestSubscription(s.customer.ID, s.plan.ID, types.SubscriptionStatusActive, s.GetNow())
	s.CreateTestSubscription(s.customer.ID, s.plan.ID, types.SubscriptionStatusInactive, s.GetNow())
	s.CreateTestSubscription(other.ID, s.plan.ID, types.SubscriptionStatusWaiting, s.GetNow())

	resp, err := s.service.GetSubscriptions(s.GetContext(), types.NewSubscriptionFilter())
	s.Require().NoError(err)
	s.Len(resp.Items, 3)
	for _, item := range resp.Items {
		s.NotNil(item.Customer)
		s.NotNil(item.Plan)
	}

	filter := types.NewSubscriptionFilter()
	filter.Search = "jiwoo"
	resp, err = s.service.GetSubscriptions(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Require().Len(resp.Items, 1)
	s.Equal(other.ID, resp.Items[0].CustomerID)

	filter = types.NewSubscriptionFilter()
	filter.CustomerID = s.customer.ID
	filter.SubscriptionStatus = []types.SubscriptionStatus{types.SubscriptionStatusActive}
	resp, err = s.service.GetSubscriptions(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Len(resp.Items, 1)
	s.Equal(1, resp.Pagination.Total)
}

func (s *SubscriptionServiceSuite) TestDeleteSubscriptionCascadesInvoices() {
	sub := s.CreateTestSubscription(s.customer.ID, s.plan.ID, types.SubscriptionStatusActive, s.GetNow())
	invoices := s.GetStores().InvoiceRepo
	s.Require().NoError(invoices.Create(s.GetContext(), &invoice.Invoice{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		SubscriptionID: sub.ID,
		AmountPaid:     s.plan.Price,
		Currency:       s.plan.Currency,
		PaymentStatus:  types.PaymentStatusPaid,
		BillingDate:    s.GetNow(),
		CreatedAt:      s.GetNow(),
	}))

	s.Require().NoError(s.service.DeleteSubscription(s.GetContext(), sub.ID))

	_, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.True(ierr.IsNotFound(err))
	s.Empty(invoices.ListBySubscription(s.GetContext(), sub.ID))

	s.True(ierr.IsNotFound(s.service.DeleteSubscription(s.GetContext(), sub.ID)))
}
