package api

import (
	v1 "github.com/subdesk/subdesk/internal/api/v1"
	"go.uber.org/fx"
)

// Handlers groups every v1 handler for the router
type Handlers struct {
	Health       *v1.HealthHandler
	Customer     *v1.CustomerHandler
	Plan         *v1.PlanHandler
	Subscription *v1.SubscriptionHandler
	Billing      *v1.BillingHandler
	Dashboard    *v1.DashboardHandler
	Debug        *v1.DebugHandler
}

// HandlerParams is filled in by fx from the handler constructors
type HandlerParams struct {
	fx.In

	Health       *v1.HealthHandler
	Customer     *v1.CustomerHandler
	Plan         *v1.PlanHandler
	Subscription *v1.SubscriptionHandler
	Billing      *v1.BillingHandler
	Dashboard    *v1.DashboardHandler
	Debug        *v1.DebugHandler
}

func NewHandlers(p HandlerParams) Handlers {
	return Handlers{
		Health:       p.Health,
		Customer:     p.Customer,
		Plan:         p.Plan,
		Subscription: p.Subscription,
		Billing:      p.Billing,
		Dashboard:    p.Dashboard,
		Debug:        p.Debug,
	}
}
