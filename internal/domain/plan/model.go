package plan

import (
	"github.com/shopspring/decimal"
	"github.com/subdesk/subdesk/internal/types"
)

// Plan is a priced offering that subscriptions are billed against
type Plan struct {
	// ID is the unique identifier for the plan
	ID string `db:"id" json:"id"`

	// Name is unique across plans
	Name string `db:"name" json:"name"`

	// Price is charged once per billing cycle
	Price decimal.Decimal `db:"price" json:"price" swaggertype:"string"`

	// Currency is a three letter ISO 4217 code
	Currency string `db:"currency" json:"currency"`

	BillingCycle types.BillingCycle `db:"billing_cycle" json:"billing_cycle"`

	// IsActive controls whether new subscriptions may use the plan.
	// Existing subscriptions keep being billed either way.
	IsActive bool `db:"is_active" json:"is_active"`

	types.BaseModel
}
