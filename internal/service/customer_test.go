package service

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
	"github.com/subdesk/subdesk/internal/api/dto"
	"github.com/subdesk/subdesk/internal/domain/invoice"
	ierr "github.com/subdesk/subdesk/internal/errors"
	"github.com/subdesk/subdesk/internal/testutil"
	"github.com/subdesk/subdesk/internal/types"
)

type CustomerServiceSuite struct {
	testutil.BaseServiceTestSuite
	service CustomerService
}

func TestCustomerService(t *testing.T) {
	suite.Run(t, new(CustomerServiceSuite))
}

func (s *CustomerServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewCustomerService(newTestServiceParams(&s.BaseServiceTestSuite))
}

func (s *CustomerServiceSuite) TestCreateCustomer() {
	tests := []struct {
		name       string
		req        dto.CreateCustomerRequest
		wantStatus types.CustomerStatus
		wantErr    func(error) bool
	}{
		{
			name:       "defaults to active",
			req:        dto.CreateCustomerRequest{Name: " Lee Jiwoo ", Email: "jiwoo@example.com"},
			wantStatus: types.CustomerStatusActive,
		},
		{
			name: "explicit waiting status",
			req: dto.CreateCustomerRequest{
				Name:   "Park Seo",
				Email:  "seo@example.com",
				Status: lo.ToPtr(types.CustomerStatusWaiting),
			},
			wantStatus: types.CustomerStatusWaiting,
		},
		{
			name:    "invalid email",
			req:     dto.CreateCustomerRequest{Name: "Bad", Email: "not-an-email"},
			wantErr: ierr.IsValidation,
		},
		{
			name:    "missing name",
			req:     dto.CreateCustomerRequest{Email: "noname@example.com"},
			wantErr: ierr.IsValidation,
		},
		{
			name: "unknown status",
			req: dto.CreateCustomerRequest{
				Name:   "Choi",
				Email:  "choi@example.com",
				Status: lo.ToPtr(types.CustomerStatus("DELETED")),
			},
			wantErr: ierr.IsValidation,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			resp, err := s.service.CreateCustomer(s.GetContext(), tt.req)
			if tt.wantErr != nil {
				s.Error(err)
				s.True(tt.wantErr(err), "unexpected error: %v", err)
				return
			}
			s.Require().NoError(err)
			s.Equal(tt.wantStatus, resp.Status)
			s.Contains(resp.ID, types.UUID_PREFIX_CUSTOMER+"_")
			s.Equal(0, resp.SubscriptionCount)
		})
	}
}

func (s *CustomerServiceSuite) TestCreateCustomerDuplicateEmail() {
	s.CreateTestCustomer("First", "same@example.com")

	_, err := s.service.CreateCustomer(s.GetContext(), dto.CreateCustomerRequest{
		Name:  "Second",
		Email: "same@example.com",
	})
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *CustomerServiceSuite) TestGetCustomerIncludesSubscriptionCount() {
	c := s.CreateTestCustomer("Kim", "kim@example.com")
	p := s.CreateTestPlan("Basic", 9900, types.BillingCycleMonthly)
	s.CreateTestSubscription(c.ID, p.ID, types.SubscriptionStatusActive, s.GetNow())
	s.CreateTestSubscription(c.ID, p.ID, types.SubscriptionStatusWaiting, s.GetNow())

	resp, err := s.service.GetCustomer(s.GetContext(), c.ID)
	s.Require().NoError(err)
	s.Equal(2, resp.SubscriptionCount)

	_, err = s.service.GetCustomer(s.GetContext(), "cust_missing")
	s.True(ierr.IsNotFound(err))

	_, err = s.service.GetCustomer(s.GetContext(), "")
	s.True(ierr.IsValidation(err))
}

func (s *CustomerServiceSuite) TestGetCustomersWithStats() {
	lastMonth := s.GetNow().AddDate(0, -1, 0)
	old := s.CreateTestCustomer("Old Timer", "old@example.com")
	old.CreatedAt = lastMonth
	s.Require().NoError(s.GetStores().CustomerRepo.Update(s.GetContext(), old))

	s.CreateTestCustomer("Han River", "han@example.com")
	inactive := s.CreateTestCustomer("Inactive Han", "inactive@example.com")
	inactive.Status = types.CustomerStatusInactive
	s.Require().NoError(s.GetStores().CustomerRepo.Update(s.GetContext(), inactive))

	filter := types.NewCustomerFilter()
	filter.Search = "han"
	resp, err := s.service.GetCustomers(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Len(resp.Items, 2)
	s.Equal(2, resp.Pagination.Total)

	s.Equal(3, resp.Stats.TotalCustomers)
	s.Equal(2, resp.Stats.ActiveCustomers)
	s.Equal(2, resp.Stats.NewCustomersThisMonth)

	filter = types.NewCustomerFilter()
	filter.Status = lo.ToPtr(types.CustomerStatusInactive)
	resp, err = s.service.GetCustomers(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Require().Len(resp.Items, 1)
	s.Equal(inactive.ID, resp.Items[0].ID)
}

func (s *CustomerServiceSuite) TestDeactivateCascadesToSubscriptions() {
	c := s.CreateTestCustomer("Kim", "kim@example.com")
	other := s.CreateTestCustomer("Lee", "lee@example.com")
	p := s.CreateTestPlan("Basic", 9900, types.BillingCycleMonthly)
	active := s.CreateTestSubscription(c.ID, p.ID, types.SubscriptionStatusActive, s.GetNow())
	waiting := s.CreateTestSubscription(c.ID, p.ID, types.SubscriptionStatusWaiting, s.GetNow())
	untouched := s.CreateTestSubscription(other.ID, p.ID, types.SubscriptionStatusActive, s.GetNow())

	resp, err := s.service.UpdateCustomer(s.GetContext(), c.ID, dto.UpdateCustomerRequest{
		Status: lo.ToPtr(types.CustomerStatusInactive),
	})
	s.Require().NoError(err)
	s.Equal(types.CustomerStatusInactive, resp.Status)
	s.Equal(2, resp.SubscriptionCount)
	s.Equal(1, s.GetDB().TxCount)

	for _, id := range []string{active.ID, waiting.ID} {
		sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), id)
		s.Require().NoError(err)
		s.Equal(types.SubscriptionStatusInactive, sub.Status)
	}
	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), untouched.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.Status)
}

func (s *CustomerServiceSuite) TestUpdateCustomer() {
	c := s.CreateTestCustomer("Kim", "kim@example.com")
	s.CreateTestCustomer("Taken", "taken@example.com")

	s.Run("rename", func() {
		s.GetClock().Advance(time.Hour)
		resp, err := s.service.UpdateCustomer(s.GetContext(), c.ID, dto.UpdateCustomerRequest{
			Name: lo.ToPtr("Kim Minji"),
		})
		s.Require().NoError(err)
		s.Equal("Kim Minji", resp.Name)
		s.Equal("kim@example.com", resp.Email)
		s.True(resp.UpdatedAt.Equal(s.GetNow()))
	})

	s.Run("email already used", func() {
		_, err := s.service.UpdateCustomer(s.GetContext(), c.ID, dto.UpdateCustomerRequest{
			Email: lo.ToPtr("taken@example.com"),
		})
		s.True(ierr.IsAlreadyExists(err))
	})

	s.Run("missing customer", func() {
		_, err := s.service.UpdateCustomer(s.GetContext(), "cust_missing", dto.UpdateCustomerRequest{
			Name: lo.ToPtr("Nobody"),
		})
		s.True(ierr.IsNotFound(err))
	})
}

func (s *CustomerServiceSuite) TestDeleteCustomerCascades() {
	c := s.CreateTestCustomer("Kim", "kim@example.com")
	other := s.CreateTestCustomer("Lee", "lee@example.com")
	p := s.CreateTestPlan("Basic", 9900, types.BillingCycleMonthly)
	sub := s.CreateTestSubscription(c.ID, p.ID, types.SubscriptionStatusActive, s.GetNow())
	kept := s.CreateTestSubscription(other.ID, p.ID, types.SubscriptionStatusActive, s.GetNow())

	invoices := s.GetStores().InvoiceRepo
	for _, subID := range []string{sub.ID, kept.ID} {
		s.Require().NoError(invoices.Create(s.GetContext(), &invoice.Invoice{
			ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
			SubscriptionID: subID,
			AmountPaid:     p.Price,
			Currency:       p.Currency,
			PaymentStatus:  types.PaymentStatusPaid,
			BillingDate:    s.GetNow(),
			CreatedAt:      s.GetNow(),
		}))
	}

	s.Require().NoError(s.service.DeleteCustomer(s.GetContext(), c.ID))

	_, err := s.GetStores().CustomerRepo.Get(s.GetContext(), c.ID)
	s.True(ierr.IsNotFound(err))
	_, err = s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.True(ierr.IsNotFound(err))
	s.Empty(invoices.ListBySubscription(s.GetContext(), sub.ID))
	s.Len(invoices.ListBySubscription(s.GetContext(), kept.ID), 1)

	s.True(ierr.IsNotFound(s.service.DeleteCustomer(s.GetContext(), c.ID)))
}
