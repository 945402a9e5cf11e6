package dto

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/subdesk/subdesk/internal/domain/plan"
	ierr "github.com/subdesk/subdesk/internal/errors"
	"github.com/subdesk/subdesk/internal/types"
	"github.com/subdesk/subdesk/internal/validator"
)

type CreatePlanRequest struct {
	Name         string             `json:"name" validate:"required,max=255"`
	Price        decimal.Decimal    `json:"price" swaggertype:"string"`
	Currency     string             `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	BillingCycle types.BillingCycle `json:"billing_cycle" validate:"required"`
	// IsActive defaults to true
	IsActive *bool `json:"is_active,omitempty"`
}

func (r *CreatePlanRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := validatePrice(r.Price); err != nil {
		return err
	}
	return r.BillingCycle.Validate()
}

func (r *CreatePlanRequest) ToPlan(now time.Time) *plan.Plan {
	currency := types.DefaultCurrency
	if r.Currency != "" {
		currency = strings.ToUpper(r.Currency)
	}
	isActive := true
	if r.IsActive != nil {
		isActive = *r.IsActive
	}
	return &plan.Plan{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN),
		Name:         r.Name,
		Price:        r.Price.Round(2),
		Currency:     currency,
		BillingCycle: r.BillingCycle,
		IsActive:     isActive,
		BaseModel:    types.GetDefaultBaseModel(now),
	}
}

type UpdatePlanRequest struct {
	Name         *string             `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Price        *decimal.Decimal    `json:"price,omitempty" swaggertype:"string"`
	Currency     *string             `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	BillingCycle *types.BillingCycle `json:"billing_cycle,omitempty"`
	IsActive     *bool               `json:"is_active,omitempty"`
}

func (r *UpdatePlanRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.Price != nil {
		if err := validatePrice(*r.Price); err != nil {
			return err
		}
	}
	if r.BillingCycle != nil {
		return r.BillingCycle.Validate()
	}
	return nil
}

// Apply copies the set fields onto p
func (r *UpdatePlanRequest) Apply(p *plan.Plan) {
	if r.Name != nil {
		p.Name = strings.TrimSpace(*r.Name)
	}
	if r.Price != nil {
		p.Price = r.Price.Round(2)
	}
	if r.Currency != nil {
		p.Currency = strings.ToUpper(*r.Currency)
	}
	if r.BillingCycle != nil {
		p.BillingCycle = *r.BillingCycle
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return ierr.NewError("price cannot be negative").
			WithHint("Price must be zero or greater").
			WithReportableDetails(map[string]any{"price": price.String()}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

type PlanResponse struct {
	*plan.Plan
}

type ListPlansResponse = types.ListResponse[*PlanResponse]
