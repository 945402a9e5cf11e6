package subscription

import (
	"time"

	"github.com/subdesk/subdesk/internal/domain/plan"
	"github.com/subdesk/subdesk/internal/types"
)

// Subscription binds a customer to a plan and tracks when it is billed next
type Subscription struct {
	ID         string `db:"id" json:"id"`
	CustomerID string `db:"customer_id" json:"customer_id"`
	PlanID     string `db:"plan_id" json:"plan_id"`

	PaymentType types.PaymentType        `db:"payment_type" json:"payment_type"`
	Status      types.SubscriptionStatus `db:"status" json:"status"`

	StartDate time.Time `db:"start_date" json:"start_date"`

	// NextBillingDate is the scheduled date of the next charge. A billing
	// run advances it by exactly one cycle from its previous value.
	NextBillingDate time.Time `db:"next_billing_date" json:"next_billing_date"`

	EndDate *time.Time `db:"end_date" json:"end_date,omitempty"`

	// PaymentMethodToken identifies the simulated card on file
	PaymentMethodToken *string `db:"payment_method_token" json:"payment_method_token,omitempty"`

	types.BaseModel
}

// IsDue reports whether a billing run at now should invoice the subscription
func (s *Subscription) IsDue(now time.Time) bool {
	return s.Status.IsBillable() && !s.NextBillingDate.After(now)
}

// DueSubscription is a subscription selected for billing together with the
// plan it is charged against
type DueSubscription struct {
	Subscription *Subscription
	Plan         *plan.Plan
}

// BillingUpdate is the state written back after a subscription is invoiced
type BillingUpdate struct {
	NextBillingDate time.Time
	Status          types.SubscriptionStatus
	UpdatedAt       time.Time
}
