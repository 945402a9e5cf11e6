package dto

import (
	"time"

	"github.com/samber/lo"
	"github.com/subdesk/subdesk/internal/domain/customer"
	"github.com/subdesk/subdesk/internal/domain/plan"
	"github.com/subdesk/subdesk/internal/domain/subscription"
	"github.com/subdesk/subdesk/internal/types"
	"github.com/subdesk/subdesk/internal/validator"
)

type CreateSubscriptionRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	PlanID     string `json:"plan_id" validate:"required"`
	// PaymentType defaults to RECURRING
	PaymentType types.PaymentType `json:"payment_type,omitempty"`
}

func (r *CreateSubscriptionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.PaymentType != "" {
		return r.PaymentType.Validate()
	}
	return nil
}

// ToSubscription builds a WAITING subscription that is due immediately, so
// the first charge happens on the next billing run
func (r *CreateSubscriptionRequest) ToSubscription(now time.Time) *subscription.Subscription {
	paymentType := r.PaymentType
	if paymentType == "" {
		paymentType = types.PaymentTypeRecurring
	}
	return &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		CustomerID:         r.CustomerID,
		PlanID:             r.PlanID,
		PaymentType:        paymentType,
		Status:             types.SubscriptionStatusWaiting,
		StartDate:          now.UTC(),
		NextBillingDate:    now.UTC(),
		PaymentMethodToken: lo.ToPtr(paymentType.PaymentMethodToken()),
		BaseModel:          types.GetDefaultBaseModel(now),
	}
}

type UpdateSubscriptionRequest struct {
	PlanID      *string                   `json:"plan_id,omitempty" validate:"omitempty,min=1"`
	Status      *types.SubscriptionStatus `json:"status,omitempty"`
	PaymentType *types.PaymentType        `json:"payment_type,omitempty"`
}

func (r *UpdateSubscriptionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.Status != nil {
		if err := r.Status.Validate(); err != nil {
			return err
		}
	}
	if r.PaymentType != nil {
		return r.PaymentType.Validate()
	}
	return nil
}

type SubscriptionResponse struct {
	*subscription.Subscription
	Customer *customer.Customer `json:"customer,omitempty"`
	Plan     *plan.Plan         `json:"plan,omitempty"`
}

type ListSubscriptionsResponse = types.ListResponse[*SubscriptionResponse]
