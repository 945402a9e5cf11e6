package dto

import (
	"strings"
	"time"

	"github.com/subdesk/subdesk/internal/domain/customer"
	"github.com/subdesk/subdesk/internal/types"
	"github.com/subdesk/subdesk/internal/validator"
)

type CreateCustomerRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email,max=255"`
	// Status defaults to ACTIVE
	Status *types.CustomerStatus `json:"status,omitempty"`
}

func (r *CreateCustomerRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.Status != nil {
		return r.Status.Validate()
	}
	return nil
}

func (r *CreateCustomerRequest) ToCustomer(now time.Time) *customer.Customer {
	status := types.CustomerStatusActive
	if r.Status != nil {
		status = *r.Status
	}
	return &customer.Customer{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CUSTOMER),
		Name:      r.Name,
		Email:     r.Email,
		Status:    status,
		BaseModel: types.GetDefaultBaseModel(now),
	}
}

type UpdateCustomerRequest struct {
	Name   *string               `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Email  *string               `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Status *types.CustomerStatus `json:"status,omitempty"`
}

func (r *UpdateCustomerRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.Status != nil {
		return r.Status.Validate()
	}
	return nil
}

type CustomerResponse struct {
	*customer.Customer
	SubscriptionCount int `json:"subscription_count"`
}

// ListCustomersResponse pages customers and carries the aggregate stats
// shown above the customer table
type ListCustomersResponse struct {
	types.ListResponse[*CustomerResponse]
	Stats customer.Stats `json:"stats"`
}
