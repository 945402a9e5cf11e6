package types

import (
	"github.com/samber/lo"
	ierr "github.com/subdesk/subdesk/internal/errors"
)

// BillingCycle is the recurring interval at which a plan is charged
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "MONTHLY"
	BillingCycleAnnual  BillingCycle = "ANNUAL"
)

func (b BillingCycle) String() string {
	return string(b)
}

func (b BillingCycle) Validate() error {
	allowed := []BillingCycle{
		BillingCycleMonthly,
		BillingCycleAnnual,
	}
	if !lo.Contains(allowed, b) {
		return ierr.NewError("invalid billing cycle").
			WithHint("Billing cycle must be MONTHLY or ANNUAL").
			WithReportableDetails(map[string]any{
				"billing_cycle":  b,
				"allowed_cycles": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

const DefaultCurrency = "KRW"

// PlanFilter narrows plan listings
type PlanFilter struct {
	*QueryFilter
	// Search matches the plan name, case insensitive
	Search string `json:"search,omitempty" form:"search"`
	// ActiveOnly hides deactivated plans
	ActiveOnly bool `json:"active_only,omitempty" form:"-"`
}

func NewPlanFilter() *PlanFilter {
	return &PlanFilter{QueryFilter: NewDefaultQueryFilter()}
}

func (f *PlanFilter) Validate() error {
	if f.QueryFilter == nil {
		f.QueryFilter = NewDefaultQueryFilter()
	}
	return f.QueryFilter.Validate()
}
