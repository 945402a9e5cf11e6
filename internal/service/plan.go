package service

import (
	"context"

	"github.com/samber/lo"
	"github.com/subdesk/subdesk/internal/api/dto"
	"github.com/subdesk/subdesk/internal/cache"
	"github.com/subdesk/subdesk/internal/domain/plan"
	ierr "github.com/subdesk/subdesk/internal/errors"
	"github.com/subdesk/subdesk/internal/types"
)

type PlanService interface {
	CreatePlan(ctx context.Context, req dto.CreatePlanRequest) (*dto.PlanResponse, error)
	GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error)
	// GetPlans lists plans. Results are cached until the next plan write.
	GetPlans(ctx context.Context, filter *types.PlanFilter) (*dto.ListPlansResponse, error)
	UpdatePlan(ctx context.Context, id string, req dto.UpdatePlanRequest) (*dto.PlanResponse, error)
	// TogglePlan flips is_active
	TogglePlan(ctx context.Context, id string) (*dto.PlanResponse, error)
	// DeletePlan fails with ErrInvalidOperation while subscriptions use the plan
	DeletePlan(ctx context.Context, id string) error
}

type planService struct {
	ServiceParams
}

func NewPlanService(params ServiceParams) PlanService {
	return &planService{
		ServiceParams: params,
	}
}

func (s *planService) CreatePlan(ctx context.Context, req dto.CreatePlanRequest) (*dto.PlanResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := req.ToPlan(s.now())
	if err := s.PlanRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.invalidateLists(ctx)

	s.Logger.Infow("plan created", "plan_id", p.ID, "name", p.Name, "price", p.Price)
	return &dto.PlanResponse{Plan: p}, nil
}

func (s *planService) GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error) {
	if id == "" {
		return nil, ierr.NewError("plan_id is required").
			WithHint("Plan ID is required").
			Mark(ierr.ErrValidation)
	}

	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.PlanResponse{Plan: p}, nil
}

func (s *planService) GetPlans(ctx context.Context, filter *types.PlanFilter) (*dto.ListPlansResponse, error) {
	if filter == nil {
		filter = types.NewPlanFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	key := cache.GenerateKey(cache.PrefixPlanList, filter.ActiveOnly, filter.Search, filter.GetLimit(), filter.GetOffset())
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(ctx, key); ok {
			if resp, ok := cached.(*dto.ListPlansResponse); ok {
				return resp, nil
			}
		}
	}

	plans, err := s.PlanRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.PlanRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(plans, func(p *plan.Plan, _ int) *dto.PlanResponse {
		return &dto.PlanResponse{Plan: p}
	})
	resp := types.NewListResponse(items, total, filter.GetLimit(), filter.GetOffset())

	if s.Cache != nil {
		s.Cache.Set(ctx, key, &resp, 0)
	}
	return &resp, nil
}

func (s *planService) UpdatePlan(ctx context.Context, id string, req dto.UpdatePlanRequest) (*dto.PlanResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	req.Apply(p)
	p.UpdatedAt = s.now().UTC()

	if err := s.PlanRepo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidateLists(ctx)

	s.Logger.Infow("plan updated", "plan_id", p.ID)
	return &dto.PlanResponse{Plan: p}, nil
}

func (s *planService) TogglePlan(ctx context.Context, id string) (*dto.PlanResponse, error) {
	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	p.IsActive = !p.IsActive
	p.UpdatedAt = s.now().UTC()

	if err := s.PlanRepo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidateLists(ctx)

	s.Logger.Infow("plan toggled", "plan_id", p.ID, "is_active", p.IsActive)
	return &dto.PlanResponse{Plan: p}, nil
}

func (s *planService) DeletePlan(ctx context.Context, id string) error {
	if err := s.PlanRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateLists(ctx)

	s.Logger.Infow("plan deleted", "plan_id", id)
	return nil
}

func (s *planService) invalidateLists(ctx context.Context) {
	if s.Cache != nil {
		s.Cache.DeleteByPrefix(ctx, cache.PrefixPlanList)
	}
}
