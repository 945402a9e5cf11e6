package internal

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/subdesk/subdesk/internal/api/dto"
	"github.com/subdesk/subdesk/internal/cache"
	"github.com/subdesk/subdesk/internal/clock"
	"github.com/subdesk/subdesk/internal/config"
	"github.com/subdesk/subdesk/internal/domain/plan"
	"github.com/subdesk/subdesk/internal/domain/subscription"
	ierr "github.com/subdesk/subdesk/internal/errors"
	"github.com/subdesk/subdesk/internal/logger"
	"github.com/subdesk/subdesk/internal/metrics"
	"github.com/subdesk/subdesk/internal/postgres"
	"github.com/subdesk/subdesk/internal/repository"
	"github.com/subdesk/subdesk/internal/service"
	"github.com/subdesk/subdesk/internal/types"
)

type demoCustomer struct {
	name   string
	email  string
	status types.CustomerStatus
}

var demoPlans = []dto.CreatePlanRequest{
	{Name: "Basic", Price: decimal.NewFromInt(9900), BillingCycle: types.BillingCycleMonthly},
	{Name: "Pro", Price: decimal.NewFromInt(19900), BillingCycle: types.BillingCycleMonthly},
	{Name: "Annual Basic", Price: decimal.NewFromInt(99000), BillingCycle: types.BillingCycleAnnual},
}

var demoCustomers = []demoCustomer{
	{name: "Hong Gildong", email: "hong@example.com", status: types.CustomerStatusActive},
	{name: "Kim Cheolsu", email: "kim@example.com", status: types.CustomerStatusActive},
	{name: "Lee Younghee", email: "lee@example.com", status: types.CustomerStatusInactive},
	{name: "Park Minsu", email: "park@example.com", status: types.CustomerStatusActive},
	{name: "Choi Jieun", email: "choi@example.com", status: types.CustomerStatusActive},
}

type seedScript struct {
	log         *logger.Logger
	params      service.ServiceParams
	planSvc     service.PlanService
	customerSvc service.CustomerService
}

// SeedDemoData creates the demo plans and customers, each customer with one
// subscription that is next billed one cycle from now. Running it again
// leaves existing records alone.
func SeedDemoData() error {
	script, db, err := newSeedScript()
	if err != nil {
		return fmt.Errorf("failed to initialize script: %w", err)
	}
	defer db.Close()

	ctx := types.SetRequestID(context.Background(), types.GenerateUUID())
	random := strings.EqualFold(os.Getenv("SEED_RANDOM_PLANS"), "true")

	plans := make([]*plan.Plan, 0, len(demoPlans))
	for _, req := range demoPlans {
		p, err := script.ensurePlan(ctx, req)
		if err != nil {
			return err
		}
		plans = append(plans, p)
	}

	created := 0
	for i, c := range demoCustomers {
		p := plans[i%len(plans)]
		if random {
			p = lo.Sample(plans)
		}

		ok, err := script.seedCustomer(ctx, c, p)
		if err != nil {
			return err
		}
		if ok {
			created++
		}
	}

	log.Printf("Seeding finished: %d plans, %d new customers\n", len(plans), created)
	return nil
}

func newSeedScript() (*seedScript, *postgres.DB, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	db, err := postgres.NewDB(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	params := service.NewServiceParams(
		log,
		cfg,
		db,
		clock.NewSystemClock(),
		cache.NewCache(cache.NewInMemoryCache(cfg, log)),
		metrics.NewRegistry(),
		nil,
		repository.NewCustomerRepository(db, log),
		repository.NewPlanRepository(db, log),
		repository.NewSubscriptionRepository(db, log),
		repository.NewInvoiceRepository(db, log),
	)

	return &seedScript{
		log:         log,
		params:      params,
		planSvc:     service.NewPlanService(params),
		customerSvc: service.NewCustomerService(params),
	}, db, nil
}

func (s *seedScript) ensurePlan(ctx context.Context, req dto.CreatePlanRequest) (*plan.Plan, error) {
	resp, err := s.planSvc.CreatePlan(ctx, req)
	if err == nil {
		log.Printf("Created plan %s (%s)\n", resp.Name, resp.ID)
		return resp.Plan, nil
	}
	if !ierr.IsAlreadyExists(err) {
		return nil, fmt.Errorf("failed to create plan %s: %w", req.Name, err)
	}

	existing, err := s.planSvc.GetPlans(ctx, &types.PlanFilter{
		QueryFilter: types.NewDefaultQueryFilter(),
		Search:      req.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up plan %s: %w", req.Name, err)
	}
	match, ok := lo.Find(existing.Items, func(p *dto.PlanResponse) bool {
		return p.Name == req.Name
	})
	if !ok {
		return nil, fmt.Errorf("plan %s exists but could not be found", req.Name)
	}
	log.Printf("Plan %s already exists (%s)\n", match.Name, match.ID)
	return match.Plan, nil
}

// seedCustomer reports false when the customer was seeded before
func (s *seedScript) seedCustomer(ctx context.Context, c demoCustomer, p *plan.Plan) (bool, error) {
	if _, err := s.params.CustomerRepo.GetByEmail(ctx, c.email); err == nil {
		log.Printf("Skipping %s - already seeded\n", c.email)
		return false, nil
	} else if !ierr.IsNotFound(err) {
		return false, err
	}

	now := s.params.Clock.Now().In(s.params.Config.Billing.Location())
	next, err := types.NextBillingDate(now, p.BillingCycle)
	if err != nil {
		return false, err
	}

	err = s.params.DB.WithTx(ctx, func(ctx context.Context) error {
		cust, err := s.customerSvc.CreateCustomer(ctx, dto.CreateCustomerRequest{
			Name:   c.name,
			Email:  c.email,
			Status: lo.ToPtr(c.status),
		})
		if err != nil {
			return err
		}

		// an inactive customer cannot own a billable subscription
		status := types.SubscriptionStatusActive
		if c.status == types.CustomerStatusInactive {
			status = types.SubscriptionStatusInactive
		}

		return s.params.SubRepo.Create(ctx, &subscription.Subscription{
			ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
			CustomerID:         cust.ID,
			PlanID:             p.ID,
			PaymentType:        types.PaymentTypeRecurring,
			Status:             status,
			StartDate:          now.UTC(),
			NextBillingDate:    next.UTC(),
			PaymentMethodToken: lo.ToPtr(types.PaymentTypeRecurring.PaymentMethodToken()),
			BaseModel:          types.GetDefaultBaseModel(now),
		})
	})
	if err != nil {
		return false, fmt.Errorf("failed to seed %s: %w", c.email, err)
	}

	log.Printf("Seeded %s on plan %s\n", c.email, p.Name)
	return true, nil
}
