package service

import (
	"context"

	"github.com/samber/lo"
	"github.com/subdesk/subdesk/internal/api/dto"
	"github.com/subdesk/subdesk/internal/domain/customer"
	ierr "github.com/subdesk/subdesk/internal/errors"
	"github.com/subdesk/subdesk/internal/types"
)

type CustomerService interface {
	CreateCustomer(ctx context.Context, req dto.CreateCustomerRequest) (*dto.CustomerResponse, error)
	GetCustomer(ctx context.Context, id string) (*dto.CustomerResponse, error)
	GetCustomers(ctx context.Context, filter *types.CustomerFilter) (*dto.ListCustomersResponse, error)
	// UpdateCustomer setting status INACTIVE deactivates all of the
	// customer's subscriptions in the same transaction
	UpdateCustomer(ctx context.Context, id string, req dto.UpdateCustomerRequest) (*dto.CustomerResponse, error)
	// DeleteCustomer removes the customer, its subscriptions and their invoices
	DeleteCustomer(ctx context.Context, id string) error
	GetCustomerStats(ctx context.Context) (*customer.Stats, error)
}

type customerService struct {
	ServiceParams
}

func NewCustomerService(params ServiceParams) CustomerService {
	return &customerService{
		ServiceParams: params,
	}
}

func (s *customerService) CreateCustomer(ctx context.Context, req dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.ensureEmailAvailable(ctx, req.Email, ""); err != nil {
		return nil, err
	}

	cust := req.ToCustomer(s.now())
	if err := s.CustomerRepo.Create(ctx, cust); err != nil {
		return nil, err
	}

	s.Logger.Infow("customer created", "customer_id", cust.ID, "status", cust.Status)
	return &dto.CustomerResponse{Customer: cust}, nil
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (*dto.CustomerResponse, error) {
	if id == "" {
		return nil, ierr.NewError("customer_id is required").
			WithHint("Customer ID is required").
			Mark(ierr.ErrValidation)
	}

	cust, err := s.CustomerRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	counts, err := s.SubRepo.CountByCustomers(ctx, []string{id})
	if err != nil {
		return nil, err
	}

	return &dto.CustomerResponse{Customer: cust, SubscriptionCount: counts[id]}, nil
}

func (s *customerService) GetCustomers(ctx context.Context, filter *types.CustomerFilter) (*dto.ListCustomersResponse, error) {
	if filter == nil {
		filter = types.NewCustomerFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	customers, err := s.CustomerRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.CustomerRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	counts, err := s.SubRepo.CountByCustomers(ctx, lo.Map(customers, func(c *customer.Customer, _ int) string {
		return c.ID
	}))
	if err != nil {
		return nil, err
	}

	stats, err := s.GetCustomerStats(ctx)
	if err != nil {
		return nil, err
	}

	items := lo.Map(customers, func(c *customer.Customer, _ int) *dto.CustomerResponse {
		return &dto.CustomerResponse{Customer: c, SubscriptionCount: counts[c.ID]}
	})

	return &dto.ListCustomersResponse{
		ListResponse: types.NewListResponse(items, total, filter.GetLimit(), filter.GetOffset()),
		Stats:        *stats,
	}, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id string, req dto.UpdateCustomerRequest) (*dto.CustomerResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *customer.Customer
	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		cust, err := s.CustomerRepo.Get(txCtx, id)
		if err != nil {
			return err
		}

		if req.Name != nil {
			cust.Name = *req.Name
		}
		if req.Email != nil && *req.Email != cust.Email {
			if err := s.ensureEmailAvailable(txCtx, *req.Email, cust.ID); err != nil {
				return err
			}
			cust.Email = *req.Email
		}
		if req.Status != nil {
			cust.Status = *req.Status
		}
		cust.UpdatedAt = s.now().UTC()

		if err := s.CustomerRepo.Update(txCtx, cust); err != nil {
			return err
		}

		if req.Status != nil && *req.Status == types.CustomerStatusInactive {
			n, err := s.SubRepo.SetStatusByCustomer(txCtx, cust.ID, types.SubscriptionStatusInactive, cust.UpdatedAt)
			if err != nil {
				return err
			}
			s.Logger.Infow("deactivated customer subscriptions", "customer_id", cust.ID, "count", n)
		}

		updated = cust
		return nil
	})
	if err != nil {
		return nil, err
	}

	counts, err := s.SubRepo.CountByCustomers(ctx, []string{updated.ID})
	if err != nil {
		return nil, err
	}
	return &dto.CustomerResponse{Customer: updated, SubscriptionCount: counts[updated.ID]}, nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, id string) error {
	return s.DB.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.CustomerRepo.Get(txCtx, id); err != nil {
			return err
		}

		subscriptionIDs, err := s.SubRepo.ListIDsByCustomer(txCtx, id)
		if err != nil {
			return err
		}

		invoices, err := s.InvoiceRepo.DeleteBySubscriptions(txCtx, subscriptionIDs)
		if err != nil {
			return err
		}

		subs, err := s.SubRepo.DeleteByCustomer(txCtx, id)
		if err != nil {
			return err
		}

		if err := s.CustomerRepo.Delete(txCtx, id); err != nil {
			return err
		}

		s.Logger.Infow("customer deleted",
			"customer_id", id,
			"deleted_subscriptions", subs,
			"deleted_invoices", invoices,
		)
		return nil
	})
}

func (s *customerService) GetCustomerStats(ctx context.Context) (*customer.Stats, error) {
	total, err := s.CustomerRepo.Count(ctx, &types.CustomerFilter{})
	if err != nil {
		return nil, err
	}

	active, err := s.CustomerRepo.Count(ctx, &types.CustomerFilter{
		Status: lo.ToPtr(types.CustomerStatusActive),
	})
	if err != nil {
		return nil, err
	}

	newThisMonth, err := s.CustomerRepo.CountCreatedSince(ctx, types.StartOfMonth(s.now()))
	if err != nil {
		return nil, err
	}

	return &customer.Stats{
		TotalCustomers:        total,
		ActiveCustomers:       active,
		NewCustomersThisMonth: newThisMonth,
	}, nil
}

// ensureEmailAvailable fails with ErrAlreadyExists when another customer
// than exceptID uses email
func (s *customerService) ensureEmailAvailable(ctx context.Context, email, exceptID string) error {
	existing, err := s.CustomerRepo.GetByEmail(ctx, email)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID == exceptID {
		return nil
	}
	return ierr.NewError("customer email already in use").
		WithHint("A customer with this email already exists").
		WithReportableDetails(map[string]any{"email": email}).
		Mark(ierr.ErrAlreadyExists)
}
