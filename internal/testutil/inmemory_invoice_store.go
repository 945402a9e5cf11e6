package testutil

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/subdesk/subdesk/internal/domain/invoice"
	"github.com/subdesk/subdesk/internal/types"
)

// InMemoryInvoiceStore implements invoice.Repository. History rows are
// joined through the linked subscription store.
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
	subscriptions *InMemorySubscriptionStore
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
	}
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}
	out := *inv
	return &out
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	return s.InMemoryStore.Create(ctx, inv.ID, copyInvoice(inv))
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyInvoice(inv), nil
}

// ListBySubscription is a test helper returning every invoice of a subscription
// ordered by billing date
func (s *InMemoryInvoiceStore) ListBySubscription(ctx context.Context, subscriptionID string) []*invoice.Invoice {
	items, _ := s.InMemoryStore.List(ctx, nil, func(_ context.Context, inv *invoice.Invoice, _ interface{}) bool {
		return inv.SubscriptionID == subscriptionID
	}, func(i, j *invoice.Invoice) bool {
		return i.BillingDate.Before(j.BillingDate)
	})
	return lo.Map(items, func(inv *invoice.Invoice, _ int) *invoice.Invoice { return copyInvoice(inv) })
}

func (s *InMemoryInvoiceStore) ListHistory(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.HistoryEntry, error) {
	entries, err := s.history(ctx, filter)
	if err != nil {
		return nil, err
	}
	if filter == nil || filter.IsUnlimited() {
		return entries, nil
	}

	start := filter.GetOffset()
	if start >= len(entries) {
		return []*invoice.HistoryEntry{}, nil
	}
	end := min(start+filter.GetLimit(), len(entries))
	return entries[start:end], nil
}

func (s *InMemoryInvoiceStore) CountHistory(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	entries, err := s.history(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (s *InMemoryInvoiceStore) DeleteAll(_ context.Context) (int, error) {
	return s.DeleteWhere(func(*invoice.Invoice) bool { return true }), nil
}

func (s *InMemoryInvoiceStore) DeleteBySubscriptions(_ context.Context, subscriptionIDs []string) (int, error) {
	return s.DeleteWhere(func(inv *invoice.Invoice) bool {
		return lo.Contains(subscriptionIDs, inv.SubscriptionID)
	}), nil
}

func (s *InMemoryInvoiceStore) SumPaid(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	items, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, inv *invoice.Invoice, _ interface{}) bool {
		return inv.PaymentStatus == types.PaymentStatusPaid &&
			!inv.BillingDate.Before(start) &&
			inv.BillingDate.Before(end)
	}, nil)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, inv := range items {
		total = total.Add(inv.AmountPaid)
	}
	return total, nil
}

// history joins every invoice matching filter, newest billing date first
func (s *InMemoryInvoiceStore) history(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.HistoryEntry, error) {
	items, err := s.InMemoryStore.List(ctx, nil, nil, func(i, j *invoice.Invoice) bool {
		if i.BillingDate.Equal(j.BillingDate) {
			return i.ID > j.ID
		}
		return i.BillingDate.After(j.BillingDate)
	})
	if err != nil {
		return nil, err
	}

	entries := make([]*invoice.HistoryEntry, 0, len(items))
	for _, inv := range items {
		entry, err := s.join(ctx, inv)
		if err != nil {
			// the subscription is gone, an inner join drops the row
			continue
		}
		if matchesHistory(entry, filter) {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (s *InMemoryInvoiceStore) join(ctx context.Context, inv *invoice.Invoice) (*invoice.HistoryEntry, error) {
	sub, err := s.subscriptions.Get(ctx, inv.SubscriptionID)
	if err != nil {
		return nil, err
	}
	c, err := s.subscriptions.customers.Get(ctx, sub.CustomerID)
	if err != nil {
		return nil, err
	}
	p, err := s.subscriptions.plans.Get(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	return &invoice.HistoryEntry{
		Invoice:         *copyInvoice(inv),
		CustomerID:      c.ID,
		CustomerName:    c.Name,
		CustomerEmail:   c.Email,
		PlanID:          p.ID,
		PlanName:        p.Name,
		NextBillingDate: sub.NextBillingDate,
	}, nil
}

func matchesHistory(e *invoice.HistoryEntry, f *types.InvoiceFilter) bool {
	if f == nil {
		return true
	}
	if f.Search != "" && !containsFold(e.CustomerName, f.Search) && !containsFold(e.CustomerEmail, f.Search) {
		return false
	}
	if f.SubscriptionID != "" && e.SubscriptionID != f.SubscriptionID {
		return false
	}
	if f.PaymentStatus != nil && e.PaymentStatus != *f.PaymentStatus {
		return false
	}
	if f.StartTime != nil && e.BillingDate.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && !e.BillingDate.Before(*f.EndTime) {
		return false
	}
	return true
}
