package testutil

import (
	"context"

	"github.com/samber/lo"
	"github.com/subdesk/subdesk/internal/domain/plan"
	"github.com/subdesk/subdesk/internal/domain/subscription"
	ierr "github.com/subdesk/subdesk/internal/errors"
	"github.com/subdesk/subdesk/internal/types"
)

// InMemoryPlanStore implements plan.Repository. Plan names are unique and
// deletion is refused while a subscription in the linked store uses the plan.
type InMemoryPlanStore struct {
	*InMemoryStore[*plan.Plan]
	subscriptions *InMemorySubscriptionStore
}

func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{
		InMemoryStore: NewInMemoryStore[*plan.Plan](),
	}
}

func copyPlan(p *plan.Plan) *plan.Plan {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}

func (s *InMemoryPlanStore) Create(ctx context.Context, p *plan.Plan) error {
	if err := s.checkName(ctx, p); err != nil {
		return err
	}
	return s.InMemoryStore.Create(ctx, p.ID, copyPlan(p))
}

func (s *InMemoryPlanStore) Get(ctx context.Context, id string) (*plan.Plan, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyPlan(p), nil
}

func (s *InMemoryPlanStore) List(ctx context.Context, filter *types.PlanFilter) ([]*plan.Plan, error) {
	items, err := s.InMemoryStore.List(ctx, filter, planFilterFn, planSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(p *plan.Plan, _ int) *plan.Plan {
		return copyPlan(p)
	}), nil
}

func (s *InMemoryPlanStore) Count(ctx context.Context, filter *types.PlanFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, planFilterFn)
}

func (s *InMemoryPlanStore) Update(ctx context.Context, p *plan.Plan) error {
	if err := s.checkName(ctx, p); err != nil {
		return err
	}
	return s.InMemoryStore.Update(ctx, p.ID, copyPlan(p))
}

func (s *InMemoryPlanStore) Delete(ctx context.Context, id string) error {
	if s.subscriptions != nil {
		inUse, _ := s.subscriptions.InMemoryStore.Count(ctx, nil, func(_ context.Context, sub *subscription.Subscription, _ interface{}) bool {
			return sub.PlanID == id
		})
		if inUse > 0 {
			return ierr.NewError("plan is referenced by subscriptions").
				WithHint("Plan is in use by one or more subscriptions").
				WithReportableDetails(map[string]any{"plan_id": id}).
				Mark(ierr.ErrInvalidOperation)
		}
	}
	return s.InMemoryStore.Delete(ctx, id)
}

func (s *InMemoryPlanStore) checkName(ctx context.Context, p *plan.Plan) error {
	dupes, _ := s.InMemoryStore.Count(ctx, nil, func(_ context.Context, other *plan.Plan, _ interface{}) bool {
		return other.Name == p.Name && other.ID != p.ID
	})
	if dupes > 0 {
		return ierr.NewError("duplicate plan name").
			WithHint("Plan already exists").
			WithReportableDetails(map[string]any{"name": p.Name}).
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func planFilterFn(_ context.Context, p *plan.Plan, filter interface{}) bool {
	f, ok := filter.(*types.PlanFilter)
	if !ok || f == nil {
		return true
	}
	if f.Search != "" && !containsFold(p.Name, f.Search) {
		return false
	}
	if f.ActiveOnly && !p.IsActive {
		return false
	}
	return true
}

func planSortFn(i, j *plan.Plan) bool {
	if i.CreatedAt.Equal(j.CreatedAt) {
		return i.ID > j.ID
	}
	return i.CreatedAt.After(j.CreatedAt)
}
