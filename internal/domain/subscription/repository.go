package subscription

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/subdesk/subdesk/internal/types"
)

// Repository defines the interface for subscription data access
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	List(ctx context.Context, filter *types.SubscriptionFilter) ([]*Subscription, error)
	Count(ctx context.Context, filter *types.SubscriptionFilter) (int, error)
	Update(ctx context.Context, sub *Subscription) error
	Delete(ctx context.Context, id string) error

	// ListDue returns every WAITING or ACTIVE subscription whose next billing
	// date is at or before now, with its plan
	ListDue(ctx context.Context, now time.Time) ([]*DueSubscription, error)

	// GetDueForUpdate locks the subscription row for the rest of the
	// transaction on ctx and returns it only if it is still due at now.
	// A subscription that is no longer due yields ErrNotFound.
	GetDueForUpdate(ctx context.Context, id string, now time.Time) (*DueSubscription, error)

	// UpdateBilling persists the next billing date and status after invoicing
	UpdateBilling(ctx context.Context, id string, update BillingUpdate) error

	// SetStatusByCustomer moves every subscription of the customer to status
	SetStatusByCustomer(ctx context.Context, customerID string, status types.SubscriptionStatus, at time.Time) (int, error)
	DeleteByCustomer(ctx context.Context, customerID string) (int, error)
	// ListIDsByCustomer returns the ids of every subscription the customer owns
	ListIDsByCustomer(ctx context.Context, customerID string) ([]string, error)

	// CountByCustomers returns the number of subscriptions per customer id.
	// Customers without subscriptions are absent from the map.
	CountByCustomers(ctx context.Context, customerIDs []string) (map[string]int, error)
	// CountByStatus returns the number of subscriptions in each status
	CountByStatus(ctx context.Context) (map[types.SubscriptionStatus]int, error)
	// SumActivePlanPrices is the monthly recurring revenue: the current plan
	// price summed over ACTIVE subscriptions
	SumActivePlanPrices(ctx context.Context) (decimal.Decimal, error)
	// ListActiveNotScheduledAt returns ACTIVE subscriptions whose next billing
	// date differs from at
	ListActiveNotScheduledAt(ctx context.Context, at time.Time) ([]*Subscription, error)
}
