package types

import (
	"github.com/samber/lo"
	ierr "github.com/subdesk/subdesk/internal/errors"
)

// CustomerStatus is the lifecycle state of a customer
type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "ACTIVE"
	CustomerStatusInactive CustomerStatus = "INACTIVE"
	CustomerStatusWaiting  CustomerStatus = "WAITING"
)

func (s CustomerStatus) String() string {
	return string(s)
}

func (s CustomerStatus) Validate() error {
	allowed := []CustomerStatus{
		CustomerStatusActive,
		CustomerStatusInactive,
		CustomerStatusWaiting,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid customer status").
			WithHint("Invalid customer status").
			WithReportableDetails(map[string]any{
				"status":         s,
				"allowed_status": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CustomerFilter narrows customer listings
type CustomerFilter struct {
	*QueryFilter
	// Search matches name or email, case insensitive
	Search string          `json:"search,omitempty" form:"search"`
	Status *CustomerStatus `json:"status,omitempty" form:"status"`
}

func NewCustomerFilter() *CustomerFilter {
	return &CustomerFilter{QueryFilter: NewDefaultQueryFilter()}
}

func (f *CustomerFilter) Validate() error {
	if f.QueryFilter == nil {
		f.QueryFilter = NewDefaultQueryFilter()
	}
	if err := f.QueryFilter.Validate(); err != nil {
		return err
	}
	if f.Status != nil {
		return f.Status.Validate()
	}
	return nil
}
