package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	ierr "github.com/subdesk/subdesk/internal/errors"
)

func TestSubscriptionStatus(t *testing.T) {
	assert.True(t, SubscriptionStatusActive.IsBillable())
	assert.True(t, SubscriptionStatusWaiting.IsBillable())
	assert.False(t, SubscriptionStatusInactive.IsBillable())

	assert.NoError(t, SubscriptionStatusInactive.Validate())
	err := SubscriptionStatus("CANCELLED").Validate()
	assert.True(t, ierr.IsValidation(err))
}

func TestPaymentTypeToken(t *testing.T) {
	assert.Equal(t, "tok_recurring_visa", PaymentTypeRecurring.PaymentMethodToken())
	assert.Equal(t, "tok_onetime_card", PaymentTypeOneTime.PaymentMethodToken())
	assert.True(t, ierr.IsValidation(PaymentType("CASH").Validate()))
}

func TestQueryFilterValidate(t *testing.T) {
	tests := []struct {
		name    string
		filter  *QueryFilter
		wantErr bool
	}{
		{name: "default", filter: NewDefaultQueryFilter()},
		{name: "unlimited", filter: NewNoLimitQueryFilter()},
		{name: "zero limit", filter: &QueryFilter{Limit: intPtr(0)}, wantErr: true},
		{name: "limit too large", filter: &QueryFilter{Limit: intPtr(FILTER_MAX_LIMIT + 1)}, wantErr: true},
		{name: "negative offset", filter: &QueryFilter{Offset: intPtr(-1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.wantErr {
				assert.True(t, ierr.IsValidation(err))
				return
			}
			assert.NoError(t, err)
		})
	}

	assert.Equal(t, 0, NewNoLimitQueryFilter().GetLimit())
	assert.True(t, (*QueryFilter)(nil).IsUnlimited())
}

func intPtr(v int) *int { return &v }
