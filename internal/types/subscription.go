package types

import (
	"github.com/samber/lo"
	ierr "github.com/subdesk/subdesk/internal/errors"
)

// SubscriptionStatus is the billing state of a subscription.
// WAITING subscriptions have not been billed yet, ACTIVE ones have been billed
// at least once, INACTIVE ones are never billed.
type SubscriptionStatus string

const (
	SubscriptionStatusWaiting  SubscriptionStatus = "WAITING"
	SubscriptionStatusActive   SubscriptionStatus = "ACTIVE"
	SubscriptionStatusInactive SubscriptionStatus = "INACTIVE"
)

// BillableSubscriptionStatuses are the statuses picked up by a billing run
var BillableSubscriptionStatuses = []SubscriptionStatus{
	SubscriptionStatusActive,
	SubscriptionStatusWaiting,
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsBillable reports whether a billing run may invoice a subscription in this status
func (s SubscriptionStatus) IsBillable() bool {
	return lo.Contains(BillableSubscriptionStatuses, s)
}

func (s SubscriptionStatus) Validate() error {
	allowed := []SubscriptionStatus{
		SubscriptionStatusWaiting,
		SubscriptionStatusActive,
		SubscriptionStatusInactive,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid subscription status").
			WithHint("Invalid subscription status").
			WithReportableDetails(map[string]any{
				"status":         s,
				"allowed_status": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PaymentType is how a subscription is paid for
type PaymentType string

const (
	PaymentTypeRecurring PaymentType = "RECURRING"
	PaymentTypeOneTime   PaymentType = "ONE_TIME"
)

func (p PaymentType) String() string {
	return string(p)
}

func (p PaymentType) Validate() error {
	allowed := []PaymentType{
		PaymentTypeRecurring,
		PaymentTypeOneTime,
	}
	if !lo.Contains(allowed, p) {
		return ierr.NewError("invalid payment type").
			WithHint("Payment type must be RECURRING or ONE_TIME").
			WithReportableDetails(map[string]any{
				"payment_type":  p,
				"allowed_types": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PaymentMethodToken returns the simulated card token stored for a payment type
func (p PaymentType) PaymentMethodToken() string {
	if p == PaymentTypeOneTime {
		return "tok_onetime_card"
	}
	return "tok_recurring_visa"
}

// SubscriptionFilter narrows subscription listings
type SubscriptionFilter struct {
	*QueryFilter
	// Search matches the owning customer's name or email, case insensitive
	Search             string               `json:"search,omitempty" form:"search"`
	CustomerID         string               `json:"customer_id,omitempty" form:"customer_id"`
	PlanID             string               `json:"plan_id,omitempty" form:"plan_id"`
	SubscriptionStatus []SubscriptionStatus `json:"status,omitempty" form:"status"`
}

func NewSubscriptionFilter() *SubscriptionFilter {
	return &SubscriptionFilter{QueryFilter: NewDefaultQueryFilter()}
}

func (f *SubscriptionFilter) Validate() error {
	if f.QueryFilter == nil {
		f.QueryFilter = NewDefaultQueryFilter()
	}
	if err := f.QueryFilter.Validate(); err != nil {
		return err
	}
	for _, status := range f.SubscriptionStatus {
		if err := status.Validate(); err != nil {
			return err
		}
	}
	return nil
}
