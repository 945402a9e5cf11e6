package testutil

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/subdesk/subdesk/internal/domain/subscription"
	ierr "github.com/subdesk/subdesk/internal/errors"
	"github.com/subdesk/subdesk/internal/types"
)

// InMemorySubscriptionStore implements subscription.Repository. Joins with
// plans and customers go through the linked stores.
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
	plans     *InMemoryPlanStore
	customers *InMemoryCustomerStore
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
	}
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	if sub == nil {
		return nil
	}
	out := *sub
	if sub.EndDate != nil {
		out.EndDate = lo.ToPtr(*sub.EndDate)
	}
	if sub.PaymentMethodToken != nil {
		out.PaymentMethodToken = lo.ToPtr(*sub.PaymentMethodToken)
	}
	return &out
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if err := s.checkReferences(ctx, sub); err != nil {
		return err
	}
	return s.InMemoryStore.Create(ctx, sub.ID, copySubscription(sub))
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copySubscription(sub), nil
}

func (s *InMemorySubscriptionStore) List(ctx context.Context, filter *types.SubscriptionFilter) ([]*subscription.Subscription, error) {
	items, err := s.InMemoryStore.List(ctx, filter, s.filterFn, subscriptionSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(sub *subscription.Subscription, _ int) *subscription.Subscription {
		return copySubscription(sub)
	}), nil
}

func (s *InMemorySubscriptionStore) Count(ctx context.Context, filter *types.SubscriptionFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, s.filterFn)
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	if err := s.checkReferences(ctx, sub); err != nil {
		return err
	}
	return s.InMemoryStore.Update(ctx, sub.ID, copySubscription(sub))
}

func (s *InMemorySubscriptionStore) Delete(ctx context.Context, id string) error {
	return s.InMemoryStore.Delete(ctx, id)
}

func (s *InMemorySubscriptionStore) ListDue(ctx context.Context, now time.Time) ([]*subscription.DueSubscription, error) {
	items, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, sub *subscription.Subscription, _ interface{}) bool {
		return sub.IsDue(now)
	}, func(i, j *subscription.Subscription) bool {
		if i.NextBillingDate.Equal(j.NextBillingDate) {
			return i.ID < j.ID
		}
		return i.NextBillingDate.Before(j.NextBillingDate)
	})
	if err != nil {
		return nil, err
	}

	due := make([]*subscription.DueSubscription, 0, len(items))
	for _, sub := range items {
		p, err := s.plans.Get(ctx, sub.PlanID)
		if err != nil {
			return nil, err
		}
		due = append(due, &subscription.DueSubscription{Subscription: copySubscription(sub), Plan: p})
	}
	return due, nil
}

func (s *InMemorySubscriptionStore) GetDueForUpdate(ctx context.Context, id string, now time.Time) (*subscription.DueSubscription, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sub.IsDue(now) {
		return nil, notFound(id)
	}
	p, err := s.plans.Get(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	return &subscription.DueSubscription{Subscription: sub, Plan: p}, nil
}

func (s *InMemorySubscriptionStore) UpdateBilling(ctx context.Context, id string, update subscription.BillingUpdate) error {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	sub.NextBillingDate = update.NextBillingDate
	sub.Status = update.Status
	sub.UpdatedAt = update.UpdatedAt
	return s.InMemoryStore.Update(ctx, id, sub)
}

func (s *InMemorySubscriptionStore) SetStatusByCustomer(
	ctx context.Context,
	customerID string,
	status types.SubscriptionStatus,
	at time.Time,
) (int, error) {
	items, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, sub *subscription.Subscription, _ interface{}) bool {
		return sub.CustomerID == customerID && sub.Status != status
	}, nil)
	if err != nil {
		return 0, err
	}
	for _, sub := range items {
		updated := copySubscription(sub)
		updated.Status = status
		updated.UpdatedAt = at
		if err := s.InMemoryStore.Update(ctx, updated.ID, updated); err != nil {
			return 0, err
		}
	}
	return len(items), nil
}

func (s *InMemorySubscriptionStore) DeleteByCustomer(_ context.Context, customerID string) (int, error) {
	return s.DeleteWhere(func(sub *subscription.Subscription) bool {
		return sub.CustomerID == customerID
	}), nil
}

func (s *InMemorySubscriptionStore) ListIDsByCustomer(ctx context.Context, customerID string) ([]string, error) {
	items, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, sub *subscription.Subscription, _ interface{}) bool {
		return sub.CustomerID == customerID
	}, subscriptionSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(sub *subscription.Subscription, _ int) string { return sub.ID }), nil
}

func (s *InMemorySubscriptionStore) CountByCustomers(ctx context.Context, customerIDs []string) (map[string]int, error) {
	items, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, sub *subscription.Subscription, _ interface{}) bool {
		return lo.Contains(customerIDs, sub.CustomerID)
	}, nil)
	if err != nil {
		return nil, err
	}
	return lo.CountValuesBy(items, func(sub *subscription.Subscription) string { return sub.CustomerID }), nil
}

func (s *InMemorySubscriptionStore) CountByStatus(ctx context.Context) (map[types.SubscriptionStatus]int, error) {
	items, err := s.InMemoryStore.List(ctx, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	return lo.CountValuesBy(items, func(sub *subscription.Subscription) types.SubscriptionStatus { return sub.Status }), nil
}

func (s *InMemorySubscriptionStore) SumActivePlanPrices(ctx context.Context) (decimal.Decimal, error) {
	items, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, sub *subscription.Subscription, _ interface{}) bool {
		return sub.Status == types.SubscriptionStatusActive
	}, nil)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, sub := range items {
		p, err := s.plans.Get(ctx, sub.PlanID)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(p.Price)
	}
	return total, nil
}

func (s *InMemorySubscriptionStore) ListActiveNotScheduledAt(ctx context.Context, at time.Time) ([]*subscription.Subscription, error) {
	items, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, sub *subscription.Subscription, _ interface{}) bool {
		return sub.Status == types.SubscriptionStatusActive && !sub.NextBillingDate.Equal(at)
	}, func(i, j *subscription.Subscription) bool { return i.ID < j.ID })
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(sub *subscription.Subscription, _ int) *subscription.Subscription {
		return copySubscription(sub)
	}), nil
}

// checkReferences mirrors the foreign keys on customer_id and plan_id
func (s *InMemorySubscriptionStore) checkReferences(ctx context.Context, sub *subscription.Subscription) error {
	if s.customers != nil {
		if _, err := s.customers.Get(ctx, sub.CustomerID); err != nil {
			return ierr.WithError(err).
				WithHint("Subscription is referenced by other records").
				Mark(ierr.ErrInvalidOperation)
		}
	}
	if s.plans != nil {
		if _, err := s.plans.Get(ctx, sub.PlanID); err != nil {
			return ierr.WithError(err).
				WithHint("Subscription is referenced by other records").
				Mark(ierr.ErrInvalidOperation)
		}
	}
	return nil
}

func (s *InMemorySubscriptionStore) filterFn(ctx context.Context, sub *subscription.Subscription, filter interface{}) bool {
	f, ok := filter.(*types.SubscriptionFilter)
	if !ok || f == nil {
		return true
	}
	if f.CustomerID != "" && sub.CustomerID != f.CustomerID {
		return false
	}
	if f.PlanID != "" && sub.PlanID != f.PlanID {
		return false
	}
	if len(f.SubscriptionStatus) > 0 && !lo.Contains(f.SubscriptionStatus, sub.Status) {
		return false
	}
	if f.Search != "" && s.customers != nil {
		c, err := s.customers.Get(ctx, sub.CustomerID)
		if err != nil || (!containsFold(c.Name, f.Search) && !containsFold(c.Email, f.Search)) {
			return false
		}
	}
	return true
}

func subscriptionSortFn(i, j *subscription.Subscription) bool {
	if i.CreatedAt.Equal(j.CreatedAt) {
		return i.ID > j.ID
	}
	return i.CreatedAt.After(j.CreatedAt)
}
