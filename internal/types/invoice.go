package types

import (
	"time"

	"github.com/samber/lo"
	ierr "github.com/subdesk/subdesk/internal/errors"
)

// PaymentStatus is the settlement state of an invoice. Payments are simulated
// so every generated invoice is PAID.
type PaymentStatus string

const (
	PaymentStatusPaid PaymentStatus = "PAID"
)

func (p PaymentStatus) String() string {
	return string(p)
}

func (p PaymentStatus) Validate() error {
	allowed := []PaymentStatus{PaymentStatusPaid}
	if !lo.Contains(allowed, p) {
		return ierr.NewError("invalid payment status").
			WithHint("Invalid payment status").
			WithReportableDetails(map[string]any{
				"payment_status": p,
				"allowed_status": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InvoiceFilter narrows the billing history
type InvoiceFilter struct {
	*QueryFilter
	// Search matches the customer's name or email, case insensitive
	Search         string         `json:"search,omitempty" form:"search"`
	SubscriptionID string         `json:"subscription_id,omitempty" form:"subscription_id"`
	PaymentStatus  *PaymentStatus `json:"payment_status,omitempty" form:"payment_status"`
	// StartTime and EndTime bound the billing date, EndTime is exclusive
	StartTime *time.Time `json:"start_time,omitempty" form:"start_time" time_format:"2006-01-02T15:04:05Z07:00"`
	EndTime   *time.Time `json:"end_time,omitempty" form:"end_time" time_format:"2006-01-02T15:04:05Z07:00"`
}

func NewInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{QueryFilter: NewDefaultQueryFilter()}
}

func (f *InvoiceFilter) Validate() error {
	if f.QueryFilter == nil {
		f.QueryFilter = NewDefaultQueryFilter()
	}
	if err := f.QueryFilter.Validate(); err != nil {
		return err
	}
	if f.PaymentStatus != nil {
		if err := f.PaymentStatus.Validate(); err != nil {
			return err
		}
	}
	if f.StartTime != nil && f.EndTime != nil && !f.EndTime.After(*f.StartTime) {
		return ierr.NewError("invalid time range").
			WithHint("End time must be after start time").
			Mark(ierr.ErrValidation)
	}
	return nil
}
