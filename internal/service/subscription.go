package service

import (
	"context"

	"github.com/samber/lo"
	"github.com/subdesk/subdesk/internal/api/dto"
	"github.com/subdesk/subdesk/internal/domain/customer"
	"github.com/subdesk/subdesk/internal/domain/plan"
	"github.com/subdesk/subdesk/internal/domain/subscription"
	ierr "github.com/subdesk/subdesk/internal/errors"
	"github.com/subdesk/subdesk/internal/types"
)

type SubscriptionService interface {
	// CreateSubscription starts a WAITING subscription that is due at once
	CreateSubscription(ctx context.Context, req dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	GetSubscriptions(ctx context.Context, filter *types.SubscriptionFilter) (*dto.ListSubscriptionsResponse, error)
	// UpdateSubscription setting status ACTIVE also activates the owning customer
	UpdateSubscription(ctx context.Context, id string, req dto.UpdateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	// DeleteSubscription removes the subscription and its invoices
	DeleteSubscription(ctx context.Context, id string) error
}

type subscriptionService struct {
	ServiceParams
}

func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{
		ServiceParams: params,
	}
}

func (s *subscriptionService) CreateSubscription(ctx context.Context, req dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cust, err := s.CustomerRepo.Get(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	p, err := s.activePlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	sub := req.ToSubscription(s.now())
	if err := s.SubRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription created",
		"subscription_id", sub.ID,
		"customer_id", sub.CustomerID,
		"plan_id", sub.PlanID,
		"payment_type", sub.PaymentType,
	)
	return &dto.SubscriptionResponse{Subscription: sub, Customer: cust, Plan: p}, nil
}

func (s *subscriptionService) GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	if id == "" {
		return nil, ierr.NewError("subscription_id is required").
			WithHint("Subscription ID is required").
			Mark(ierr.ErrValidation)
	}

	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.expand(ctx, sub, newRelationLoader(s.ServiceParams))
}

func (s *subscriptionService) GetSubscriptions(ctx context.Context, filter *types.SubscriptionFilter) (*dto.ListSubscriptionsResponse, error) {
	if filter == nil {
		filter = types.NewSubscriptionFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	subs, err := s.SubRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.SubRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	loader := newRelationLoader(s.ServiceParams)
	items := make([]*dto.SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		item, err := s.expand(ctx, sub, loader)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	resp := types.NewListResponse(items, total, filter.GetLimit(), filter.GetOffset())
	return &resp, nil
}

func (s *subscriptionService) UpdateSubscription(ctx context.Context, id string, req dto.UpdateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *subscription.Subscription
	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		sub, err := s.SubRepo.Get(txCtx, id)
		if err != nil {
			return err
		}

		if req.PlanID != nil && *req.PlanID != sub.PlanID {
			if _, err := s.activePlan(txCtx, *req.PlanID); err != nil {
				return err
			}
			sub.PlanID = *req.PlanID
		}
		if req.Status != nil {
			sub.Status = *req.Status
		}
		if req.PaymentType != nil {
			sub.PaymentType = *req.PaymentType
			sub.PaymentMethodToken = lo.ToPtr(req.PaymentType.PaymentMethodToken())
		}
		sub.UpdatedAt = s.now().UTC()

		if err := s.SubRepo.Update(txCtx, sub); err != nil {
			return err
		}

		if req.Status != nil && *req.Status == types.SubscriptionStatusActive {
			cust, err := s.CustomerRepo.Get(txCtx, sub.CustomerID)
			if err != nil {
				return err
			}
			if cust.Status != types.CustomerStatusActive {
				cust.Status = types.CustomerStatusActive
				cust.UpdatedAt = sub.UpdatedAt
				if err := s.CustomerRepo.Update(txCtx, cust); err != nil {
					return err
				}
				s.Logger.Infow("customer activated by subscription", "customer_id", cust.ID, "subscription_id", sub.ID)
			}
		}

		updated = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.expand(ctx, updated, newRelationLoader(s.ServiceParams))
}

func (s *subscriptionService) DeleteSubscription(ctx context.Context, id string) error {
	return s.DB.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.SubRepo.Get(txCtx, id); err != nil {
			return err
		}

		invoices, err := s.InvoiceRepo.DeleteBySubscriptions(txCtx, []string{id})
		if err != nil {
			return err
		}

		if err := s.SubRepo.Delete(txCtx, id); err != nil {
			return err
		}

		s.Logger.Infow("subscription deleted", "subscription_id", id, "deleted_invoices", invoices)
		return nil
	})
}

// activePlan loads a plan that new subscriptions may use
func (s *subscriptionService) activePlan(ctx context.Context, planID string) (*plan.Plan, error) {
	p, err := s.PlanRepo.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ierr.NewError("plan is not active").
			WithHint("Cannot subscribe to an inactive plan").
			WithReportableDetails(map[string]any{"plan_id": planID}).
			Mark(ierr.ErrInvalidOperation)
	}
	return p, nil
}

func (s *subscriptionService) expand(ctx context.Context, sub *subscription.Subscription, loader *relationLoader) (*dto.SubscriptionResponse, error) {
	cust, err := loader.customer(ctx, sub.CustomerID)
	if err != nil {
		return nil, err
	}
	p, err := loader.plan(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	return &dto.SubscriptionResponse{Subscription: sub, Customer: cust, Plan: p}, nil
}

// relationLoader memoizes customer and plan lookups within one request
type relationLoader struct {
	params    ServiceParams
	customers map[string]*customer.Customer
	plans     map[string]*plan.Plan
}

func newRelationLoader(params ServiceParams) *relationLoader {
	return &relationLoader{
		params:    params,
		customers: make(map[string]*customer.Customer),
		plans:     make(map[string]*plan.Plan),
	}
}

func (l *relationLoader) customer(ctx context.Context, id string) (*customer.Customer, error) {
	if c, ok := l.customers[id]; ok {
		return c, nil
	}
	c, err := l.params.CustomerRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	l.customers[id] = c
	return c, nil
}

func (l *relationLoader) plan(ctx context.Context, id string) (*plan.Plan, error) {
	if p, ok := l.plans[id]; ok {
		return p, nil
	}
	p, err := l.params.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	l.plans[id] = p
	return p, nil
}
